package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/ledgerworks/payments/internal/core/domain"
)

const eventContractProvisioned = "contract.provisioned"

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier publishes notifications to an SNS topic for fan-out.
type SNSNotifier struct {
	client   SNSAPI
	topicARN string
}

// NewSNSNotifier creates a notifier for the given topic.
func NewSNSNotifier(cfg aws.Config, topicARN string) (*SNSNotifier, error) {
	return newSNSNotifier(sns.NewFromConfig(cfg), topicARN)
}

func newSNSNotifier(client SNSAPI, topicARN string) (*SNSNotifier, error) {
	if topicARN == "" {
		return nil, fmt.Errorf("NOTIFY_SNS_TOPIC_ARN not set")
	}
	return &SNSNotifier{client: client, topicARN: topicARN}, nil
}

func (p *SNSNotifier) NotifyContractProvisioned(ctx context.Context, n domain.ContractNotification) error {
	msgBytes, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(msgBytes)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(eventContractProvisioned),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: sns publish failed for topic %s: %v", domain.ErrNotificationFailed, p.topicARN, err)
	}
	return nil
}
