// Package domain contains the core business entities for the payment service.
// This is the innermost layer - no infrastructure dependencies.
package domain

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusPaid          OrderStatus = "paid"
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusPaid, OrderStatusPaymentFailed, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is a single line of an order.
type OrderItem struct {
	ServiceRef     string `json:"service_ref"`
	ServiceName    string `json:"service_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceMinor int64  `json:"unit_price_minor"` // cents
}

// Subtotal returns quantity times unit price in minor units.
func (i OrderItem) Subtotal() int64 {
	return int64(i.Quantity) * i.UnitPriceMinor
}

// Order represents a purchase intent created at checkout.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Items      []OrderItem `json:"items"`
	TotalMinor int64       `json:"total_minor"`
	Currency   string      `json:"currency"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// AttemptStatus is the state of a single outbound payment attempt.
type AttemptStatus string

const (
	AttemptStatusOpen       AttemptStatus = "open"
	AttemptStatusSuperseded AttemptStatus = "superseded"
	AttemptStatusSucceeded  AttemptStatus = "succeeded"
	AttemptStatusFailed     AttemptStatus = "failed"
)

// PaymentAttempt is one signed request sent to the gateway for an order.
// Reference doubles as the external transaction id echoed back by the webhook.
type PaymentAttempt struct {
	Reference      string        `json:"reference"`
	OrderID        string        `json:"order_id"`
	AmountMinor    int64         `json:"amount_minor"`
	Currency       string        `json:"currency"`
	CheckoutURL    string        `json:"checkout_url,omitempty"`
	CallbackURL    string        `json:"callback_url"`
	SuccessURL     string        `json:"success_url"`
	FailureURL     string        `json:"failure_url"`
	CancelURL      string        `json:"cancel_url"`
	RequestPayload []byte        `json:"-"` // exact signed body
	Signature      string        `json:"-"`
	Status         AttemptStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	SettledAt      *time.Time    `json:"settled_at,omitempty"`
}

// Verification describes how the signature of an inbound callback was judged.
type Verification string

const (
	VerificationVerified        Verification = "verified"
	VerificationInvalid         Verification = "invalid"
	VerificationMissing         Verification = "missing"
	VerificationUnsignedAllowed Verification = "unsigned_allowed"
	VerificationUnchecked       Verification = "unchecked"
)

// WebhookEventStatus is the processing result recorded for an inbound callback.
type WebhookEventStatus string

const (
	WebhookEventApplied              WebhookEventStatus = "applied"
	WebhookEventDuplicate            WebhookEventStatus = "duplicate"
	WebhookEventStaleAttempt         WebhookEventStatus = "stale_attempt"
	WebhookEventIgnored              WebhookEventStatus = "ignored"
	WebhookEventRejectedSignature    WebhookEventStatus = "rejected_signature"
	WebhookEventRejectedMalformed    WebhookEventStatus = "rejected_malformed"
	WebhookEventRejectedUnresolvable WebhookEventStatus = "rejected_unresolvable"
	WebhookEventError                WebhookEventStatus = "error"
)

// WebhookEvent is the append-only audit row written for every inbound callback.
type WebhookEvent struct {
	ID                    string             `json:"id"`
	OrderID               *string            `json:"order_id,omitempty"`
	RawPayload            []byte             `json:"-"`
	Signature             string             `json:"signature,omitempty"`
	Verification          Verification       `json:"verification"`
	Status                WebhookEventStatus `json:"status"`
	ExternalTransactionID string             `json:"external_transaction_id,omitempty"`
	ResponseCode          string             `json:"response_code,omitempty"`
	ErrorMessage          string             `json:"error_message,omitempty"`
	ProcessedAt           time.Time          `json:"processed_at"`
}

// Contract and payment statuses stamped on a freshly provisioned contract.
const (
	ContractStatusActive      = "active"
	ContractPaymentStatusPaid = "paid"
)

// ServiceContract is the subscription derived from a settled order.
type ServiceContract struct {
	ID             string    `json:"id"`
	ContractNumber string    `json:"contract_number"`
	UserID         string    `json:"user_id"`
	OrderID        string    `json:"order_id"`
	ServiceName    string    `json:"service_name"`
	PriceMinor     int64     `json:"price_minor"`
	Currency       string    `json:"currency"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Status         string    `json:"status"`
	PaymentStatus  string    `json:"payment_status"`
	CreatedAt      time.Time `json:"created_at"`
}

// GatewayCallLog audits one outbound call to the payment gateway.
type GatewayCallLog struct {
	ID             string    `json:"id"`
	Reference      string    `json:"reference"`
	OrderID        string    `json:"order_id"`
	RequestBody    []byte    `json:"-"`
	ResponseStatus int       `json:"response_status"`
	ResponseBody   []byte    `json:"-"`
	Error          string    `json:"error,omitempty"`
	DurationMillis int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}
