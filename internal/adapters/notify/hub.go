// Package notify delivers contract notifications to the notification collaborator.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ledgerworks/payments/internal/core/domain"
)

// HubClient posts notifications to the notification hub over HTTP.
type HubClient struct {
	http *resty.Client
}

// NewHubClient creates a new notification hub client.
func NewHubClient(baseURL, apiKey string, timeout time.Duration) *HubClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Internal-API-Key", apiKey)

	return &HubClient{http: httpClient}
}

// NotifyContractProvisioned sends the contract summary to the hub.
// POST /api/v1/notifications/contracts
func (c *HubClient) NotifyContractProvisioned(ctx context.Context, n domain.ContractNotification) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(n).
		Post("/api/v1/notifications/contracts")
	if err != nil {
		return domain.NewServiceError(domain.ErrNotificationFailed,
			"request failed: "+err.Error(), "HTTP_ERROR")
	}

	if resp.IsError() {
		return domain.NewServiceError(domain.ErrNotificationFailed,
			fmt.Sprintf("hub returned status %d: %s", resp.StatusCode(), resp.String()),
			"HUB_ERROR")
	}
	return nil
}
