package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ledgerworks/payments/internal/core/domain"
)

// StubClient answers checkout requests locally. It backs GATEWAY_PROVIDER=stub
// for development and end-to-end tests.
type StubClient struct {
	BaseURL string
}

func NewStubClient(baseURL string) *StubClient {
	return &StubClient{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *StubClient) CreateCheckout(ctx context.Context, req domain.SignedGatewayRequest) (*domain.GatewayResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := "stub_" + req.Request.ExternalTransactionID
	return &domain.GatewayResponse{
		StatusCode:  http.StatusCreated,
		CheckoutID:  id,
		RedirectURL: fmt.Sprintf("%s/checkout/%s", s.BaseURL, id),
		RawBody:     []byte(fmt.Sprintf(`{"checkoutId":%q}`, id)),
	}, nil
}
