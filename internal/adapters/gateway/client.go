// Package gateway provides the HTTP client for the hosted-checkout payment gateway.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ledgerworks/payments/internal/core/domain"
)

// CheckoutPath is the gateway endpoint for creating a checkout. It is part of
// the signed payload, so both sides must agree on it exactly.
const CheckoutPath = "/v1/checkouts"

// Client implements ports.GatewayClient over HTTPS.
type Client struct {
	http  *resty.Client
	appID string
}

// NewClient creates a gateway client. Every request is bounded by timeout in
// addition to any deadline on the caller's context.
func NewClient(baseURL, appID string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, appID: appID}
}

type checkoutResponse struct {
	CheckoutID  string `json:"checkoutId"`
	RedirectURL string `json:"redirectUrl"`
}

// CreateCheckout POSTs the already-signed body. The body bytes are sent as-is
// so that the signature stays valid.
func (c *Client) CreateCheckout(ctx context.Context, req domain.SignedGatewayRequest) (*domain.GatewayResponse, error) {
	path := req.Path
	if path == "" {
		path = CheckoutPath
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-App-Id", c.appID).
		SetHeader("X-Signature", req.Signature).
		SetBody(req.Body).
		Post(path)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
		}
		return nil, fmt.Errorf("%w: request failed: %v", domain.ErrGateway, err)
	}

	out := &domain.GatewayResponse{
		StatusCode: resp.StatusCode(),
		RawBody:    resp.Body(),
	}
	if resp.IsError() {
		return out, fmt.Errorf("%w: gateway returned status %d", domain.ErrGateway, resp.StatusCode())
	}

	var body checkoutResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return out, fmt.Errorf("%w: failed to decode response: %v", domain.ErrGateway, err)
	}
	if body.RedirectURL == "" {
		return out, fmt.Errorf("%w: response has no redirectUrl", domain.ErrGateway)
	}

	out.CheckoutID = body.CheckoutID
	out.RedirectURL = body.RedirectURL
	return out, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
