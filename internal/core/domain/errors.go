// Package domain contains the core business entities for the payment service.
package domain

import "errors"

// Domain errors - represent business rule violations.
var (
	// ErrValidation is returned for bad input to the request builder. Not retryable
	// without correcting the input.
	ErrValidation = errors.New("validation error")

	// ErrGateway is returned when the outbound gateway call fails (network error,
	// non-2xx, malformed response). Retryable with a new attempt.
	ErrGateway = errors.New("payment gateway error")

	// ErrGatewayTimeout is returned when the gateway call exceeds its deadline.
	ErrGatewayTimeout = errors.New("payment gateway timeout")

	// ErrSignatureMissing is returned when a webhook carries no signature in production.
	ErrSignatureMissing = errors.New("webhook signature missing")

	// ErrInvalidSignature is returned when the webhook signature does not match the body.
	ErrInvalidSignature = errors.New("webhook signature invalid")

	// ErrMalformedPayload is returned when a webhook body cannot be parsed.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrUnresolvableOrder is returned when a webhook references no known order.
	ErrUnresolvableOrder = errors.New("webhook references no known order")

	// ErrDuplicateSettlement marks a callback for an already terminal order.
	// It is a no-op for the caller, never surfaced as a failure.
	ErrDuplicateSettlement = errors.New("order already settled")

	// ErrContractProvision is logged when contract creation fails after settlement.
	ErrContractProvision = errors.New("contract provisioning failed")

	// ErrNotificationFailed is returned by notifiers; callers log it and move on.
	ErrNotificationFailed = errors.New("notification delivery failed")

	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderNotPending         = errors.New("order is not pending")
	ErrAttemptNotFound         = errors.New("payment attempt not found")
	ErrDuplicateReference      = errors.New("payment reference already issued")
	ErrDuplicateContractNumber = errors.New("contract number already issued")
	ErrContractExists          = errors.New("contract already exists for order")
)

// ServiceError wraps errors with additional context.
type ServiceError struct {
	Err     error
	Message string
	Code    string
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(err error, message, code string) *ServiceError {
	return &ServiceError{Err: err, Message: message, Code: code}
}

// CodeOf returns the error code carried by err, falling back to a code derived
// from the wrapped sentinel.
func CodeOf(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Code != "" {
		return svcErr.Code
	}
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrGatewayTimeout):
		return "GATEWAY_TIMEOUT"
	case errors.Is(err, ErrGateway):
		return "GATEWAY_ERROR"
	case errors.Is(err, ErrSignatureMissing):
		return "SIGNATURE_MISSING"
	case errors.Is(err, ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	case errors.Is(err, ErrMalformedPayload):
		return "MALFORMED_PAYLOAD"
	case errors.Is(err, ErrUnresolvableOrder):
		return "UNRESOLVABLE_ORDER"
	case errors.Is(err, ErrOrderNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, ErrOrderNotPending):
		return "ORDER_NOT_PENDING"
	}
	return "INTERNAL_ERROR"
}
