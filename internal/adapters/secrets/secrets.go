// Package secrets resolves credentials from AWS Secrets Manager.
package secrets

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// API is the subset of the Secrets Manager client used here.
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Client fetches secret strings and caches them for the process lifetime.
type Client struct {
	client API
	cache  map[string]string
	mu     sync.RWMutex
}

func NewClient(cfg aws.Config) *Client {
	return newClient(secretsmanager.NewFromConfig(cfg))
}

func newClient(api API) *Client {
	return &Client{
		client: api,
		cache:  make(map[string]string),
	}
}

func (s *Client) GetSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	s.mu.Lock()
	s.cache[name] = *out.SecretString
	s.mu.Unlock()

	return *out.SecretString, nil
}

// ResolveGatewaySecret returns the inline secret when set, otherwise the value
// stored under secretID.
func (s *Client) ResolveGatewaySecret(ctx context.Context, inline, secretID string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if secretID == "" {
		return "", fmt.Errorf("neither GATEWAY_SECRET nor GATEWAY_SECRET_ID is set")
	}
	return s.GetSecret(ctx, secretID)
}
