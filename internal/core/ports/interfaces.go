// Package ports defines the interfaces (ports) for the payment service.
// These are contracts that adapters must implement.
package ports

import (
	"context"

	"github.com/ledgerworks/payments/internal/core/domain"
)

// OrderRepository reads orders and applies conditional status transitions.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error

	// Get returns domain.ErrOrderNotFound when the order does not exist.
	Get(ctx context.Context, orderID string) (*domain.Order, error)

	// TransitionStatus moves the order from `from` to `to` in a single
	// conditional statement. It reports false when the order was not in `from`.
	TransitionStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) (bool, error)
}

// AttemptRepository persists outbound payment attempts.
type AttemptRepository interface {
	ReferenceExists(ctx context.Context, reference string) (bool, error)

	// Create inserts the attempt and supersedes any other open attempt of the
	// same order. Returns domain.ErrDuplicateReference on a reference collision.
	Create(ctx context.Context, attempt *domain.PaymentAttempt) error

	// SetCheckoutURL stores the redirect URL once; later calls are no-ops.
	SetCheckoutURL(ctx context.Context, reference, checkoutURL string) error

	// FindByReference returns domain.ErrAttemptNotFound for an unknown reference.
	FindByReference(ctx context.Context, reference string) (*domain.PaymentAttempt, error)

	// MarkSettled sets the terminal status of an open attempt. Reports false
	// when the attempt was missing or already terminal.
	MarkSettled(ctx context.Context, reference string, status domain.AttemptStatus) (bool, error)
}

// WebhookEventLog appends audit rows for inbound callbacks.
type WebhookEventLog interface {
	Append(ctx context.Context, event *domain.WebhookEvent) error
}

// GatewayAuditLog records every outbound gateway call.
type GatewayAuditLog interface {
	Record(ctx context.Context, entry *domain.GatewayCallLog) error
}

// ContractRepository persists provisioned service contracts.
type ContractRepository interface {
	// Create returns domain.ErrDuplicateContractNumber when the number is taken
	// and domain.ErrContractExists when the order already has a contract.
	Create(ctx context.Context, contract *domain.ServiceContract) error

	// FindByOrderID returns nil, nil when the order has no contract.
	FindByOrderID(ctx context.Context, orderID string) (*domain.ServiceContract, error)
}

// ContractNumberSource hands out candidate contract numbers. Uniqueness is
// finally enforced by ContractRepository.Create.
type ContractNumberSource interface {
	Next(ctx context.Context, prefix string, year int) (string, error)
}

// GatewayClient sends a signed checkout request to the payment gateway.
type GatewayClient interface {
	CreateCheckout(ctx context.Context, req domain.SignedGatewayRequest) (*domain.GatewayResponse, error)
}

// Notifier dispatches outcome notifications to the notification collaborator.
type Notifier interface {
	NotifyContractProvisioned(ctx context.Context, n domain.ContractNotification) error
}

// PaymentProvider verifies and resolves provider notifications that carry a
// payment id instead of an outcome.
type PaymentProvider interface {
	// VerifyNotification checks the provider's signature header for dataID.
	VerifyNotification(signatureHeader, requestID, dataID string) bool
	LookupPayment(ctx context.Context, paymentID string) (*domain.ProviderPayment, error)
}
