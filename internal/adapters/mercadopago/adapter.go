// Package mercadopago implements the GatewayClient and PaymentProvider ports
// on Mercado Pago Checkout Pro.
package mercadopago

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/ports"
	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/shopspring/decimal"
)

// paymentGetter is the part of the SDK payment client the adapter uses.
type paymentGetter interface {
	Get(ctx context.Context, id int) (*payment.Response, error)
}

// Adapter creates Checkout Pro preferences for signed payment requests and
// resolves the notifications Mercado Pago posts back. The preference's
// external reference carries the payment reference so that settlement can
// resolve the order.
type Adapter struct {
	client        preference.Client
	payments      paymentGetter
	webhookSecret string
}

var (
	_ ports.GatewayClient   = (*Adapter)(nil)
	_ ports.PaymentProvider = (*Adapter)(nil)
)

// NewAdapter creates a new Mercado Pago adapter. webhookSecret is the secret
// Mercado Pago signs notifications with.
func NewAdapter(accessToken, webhookSecret string) (*Adapter, error) {
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrGateway,
			"failed to create MP config", "MP_CONFIG_ERROR")
	}
	return &Adapter{
		client:        preference.NewClient(cfg),
		payments:      payment.NewClient(cfg),
		webhookSecret: webhookSecret,
	}, nil
}

// CreateCheckout creates a preference and returns its init point as the
// redirect URL. TEST mode returns the sandbox init point.
func (a *Adapter) CreateCheckout(ctx context.Context, req domain.SignedGatewayRequest) (*domain.GatewayResponse, error) {
	r := req.Request
	prefRequest := preference.Request{
		Items: []preference.ItemRequest{
			{
				ID:          r.ExternalTransactionID,
				Title:       r.Description,
				Description: r.Description,
				Quantity:    1,
				UnitPrice:   domain.FromMinorUnits(r.Amount).InexactFloat64(),
				CurrencyID:  strings.ToUpper(r.Currency),
			},
		},
		ExternalReference: r.ExternalTransactionID,
		AutoReturn:        "approved",
		BackURLs: &preference.BackURLsRequest{
			Success: r.URLs.SuccessPageURL,
			Failure: r.URLs.FailurePageURL,
			Pending: r.URLs.CancelURL,
		},
		NotificationURL: r.URLs.CallbackURL,
	}

	result, err := a.client.Create(ctx, prefRequest)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, err)
		}
		return nil, domain.NewServiceError(domain.ErrGateway,
			"failed to create preference: "+err.Error(), "MP_PREFERENCE_ERROR")
	}

	redirect := result.InitPoint
	if strings.EqualFold(r.Mode, "TEST") && result.SandboxInitPoint != "" {
		redirect = result.SandboxInitPoint
	}

	return &domain.GatewayResponse{
		StatusCode:  http.StatusCreated,
		CheckoutID:  result.ID,
		RedirectURL: redirect,
	}, nil
}

// LookupPayment retrieves a payment from Mercado Pago.
func (a *Adapter) LookupPayment(ctx context.Context, paymentID string) (*domain.ProviderPayment, error) {
	id, err := strconv.Atoi(paymentID)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrMalformedPayload,
			"invalid payment ID format", "MALFORMED_PAYLOAD")
	}

	result, err := a.payments.Get(ctx, id)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrGateway,
			"failed to get payment info: "+err.Error(), "MP_PAYMENT_ERROR")
	}

	return &domain.ProviderPayment{
		ID:                paymentID,
		Status:            result.Status,
		ExternalReference: result.ExternalReference,
		Amount:            decimal.NewFromFloat(result.TransactionAmount),
		Currency:          strings.ToUpper(result.CurrencyID),
	}, nil
}
