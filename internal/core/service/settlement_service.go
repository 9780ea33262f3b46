package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/ports"
	"go.uber.org/zap"
)

// SettlementService applies authenticated gateway callbacks to orders.
type SettlementService struct {
	auth        *WebhookAuthenticator
	orders      ports.OrderRepository
	attempts    ports.AttemptRepository
	events      ports.WebhookEventLog
	provisioner *ContractProvisioner
	provider    ports.PaymentProvider
	now         func() time.Time
	logger      *zap.Logger
}

// NewSettlementService creates a new settlement service.
func NewSettlementService(
	auth *WebhookAuthenticator,
	orders ports.OrderRepository,
	attempts ports.AttemptRepository,
	events ports.WebhookEventLog,
	provisioner *ContractProvisioner,
	logger *zap.Logger,
) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{
		auth:        auth,
		orders:      orders,
		attempts:    attempts,
		events:      events,
		provisioner: provisioner,
		now:         time.Now,
		logger:      logger,
	}
}

// WithProvider enables HandleProviderNotification.
func (s *SettlementService) WithProvider(p ports.PaymentProvider) *SettlementService {
	s.provider = p
	return s
}

// HandleCallback authenticates a webhook, resolves its order and settles it.
// A callback for an order that is already terminal is a no-op reported with
// Duplicate set. Exactly one WebhookEvent is appended per call.
func (s *SettlementService) HandleCallback(ctx context.Context, raw []byte, signatureHeader string) (result *domain.SettlementResult, err error) {
	event := &domain.WebhookEvent{
		ID:         uuid.NewString(),
		RawPayload: raw,
		Signature:  signatureHeader,
	}
	defer func() {
		event.ProcessedAt = s.now().UTC()
		if err != nil {
			event.Status = eventStatusFor(err)
			if event.ErrorMessage == "" {
				event.ErrorMessage = err.Error()
			}
		}
		s.appendEvent(ctx, event)
	}()

	payload, verification, err := s.auth.Authenticate(raw, signatureHeader)
	event.Verification = verification
	if payload != nil {
		event.ExternalTransactionID = payload.ExternalTransactionID
		event.ResponseCode = payload.ResponseCode
	}
	if err != nil {
		s.logger.Warn("Rejected webhook",
			zap.String("verification", string(verification)),
			zap.String("external_transaction_id", event.ExternalTransactionID),
			zap.Error(err),
		)
		return nil, err
	}
	if verification == domain.VerificationUnsignedAllowed {
		s.logger.Warn("Accepting unsigned webhook outside production",
			zap.String("external_transaction_id", payload.ExternalTransactionID),
		)
	}

	return s.settle(ctx, event, payload)
}

// HandleProviderNotification settles a provider notification (Mercado Pago):
// the signature header covers the payment id, and the outcome is read back
// from the provider's API before the common settlement path runs. Payments
// that are not final yet and non-payment topics are recorded and ignored.
func (s *SettlementService) HandleProviderNotification(ctx context.Context, raw []byte, signatureHeader, requestID string) (result *domain.SettlementResult, err error) {
	event := &domain.WebhookEvent{
		ID:         uuid.NewString(),
		RawPayload: raw,
		Signature:  signatureHeader,
	}
	defer func() {
		event.ProcessedAt = s.now().UTC()
		if err != nil {
			event.Status = eventStatusFor(err)
			if event.ErrorMessage == "" {
				event.ErrorMessage = err.Error()
			}
		}
		s.appendEvent(ctx, event)
	}()

	if s.provider == nil {
		return nil, domain.NewServiceError(domain.ErrValidation,
			"provider notifications are not enabled", "VALIDATION_ERROR")
	}

	var n domain.ProviderNotification
	if jsonErr := json.Unmarshal(raw, &n); jsonErr != nil || n.Data.ID == "" {
		event.Verification = domain.VerificationUnchecked
		return nil, domain.NewServiceError(domain.ErrMalformedPayload,
			"notification has no data.id", "MALFORMED_PAYLOAD")
	}

	event.Verification = domain.VerificationVerified
	switch {
	case strings.TrimSpace(signatureHeader) == "":
		if s.auth.production {
			event.Verification = domain.VerificationMissing
			return nil, domain.NewServiceError(domain.ErrSignatureMissing,
				"webhook signature is required", "SIGNATURE_MISSING")
		}
		event.Verification = domain.VerificationUnsignedAllowed
	case !s.provider.VerifyNotification(signatureHeader, requestID, n.Data.ID):
		event.Verification = domain.VerificationInvalid
		return nil, domain.NewServiceError(domain.ErrInvalidSignature,
			"notification signature does not match", "INVALID_SIGNATURE")
	}

	if n.Type != "payment" {
		s.logger.Info("Ignoring provider notification", zap.String("type", n.Type))
		event.Status = domain.WebhookEventIgnored
		return &domain.SettlementResult{Ignored: true}, nil
	}

	p, err := s.provider.LookupPayment(ctx, n.Data.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up provider payment %s: %w", n.Data.ID, err)
	}
	event.ExternalTransactionID = p.ExternalReference

	code, final := domain.ProviderResponseCode(p.Status)
	if !final {
		s.logger.Info("Provider payment not final yet",
			zap.String("payment_id", p.ID),
			zap.String("status", p.Status),
		)
		event.Status = domain.WebhookEventIgnored
		return &domain.SettlementResult{Ignored: true}, nil
	}
	event.ResponseCode = code

	amount := p.Amount
	payload := &domain.CallbackPayload{
		ExternalTransactionID: p.ExternalReference,
		ResponseCode:          code,
		ResponseDescription:   p.Status,
		Amount:                &amount,
		Currency:              p.Currency,
	}
	return s.settle(ctx, event, payload)
}

// settle applies an authenticated payload. It fills in event but never
// appends it; the caller owns the event record.
func (s *SettlementService) settle(ctx context.Context, event *domain.WebhookEvent, payload *domain.CallbackPayload) (*domain.SettlementResult, error) {
	attempt, order, err := s.resolve(ctx, payload.ExternalTransactionID)
	if err != nil {
		if errors.Is(err, domain.ErrUnresolvableOrder) {
			s.logger.Warn("Unresolvable webhook",
				zap.String("external_transaction_id", payload.ExternalTransactionID),
				zap.Error(err),
			)
		}
		return nil, err
	}
	event.OrderID = &order.ID

	if note := amountMismatch(order, payload); note != "" {
		s.logger.Warn("Callback amount differs from order",
			zap.String("order_id", order.ID),
			zap.String("detail", note),
		)
		event.ErrorMessage = note
	}

	// Only the open attempt of an order may move it out of pending.
	if attempt.Status != domain.AttemptStatusOpen {
		s.logger.Info("Callback for closed payment attempt ignored",
			zap.String("order_id", order.ID),
			zap.String("reference", attempt.Reference),
			zap.String("attempt_status", string(attempt.Status)),
			zap.String("order_status", string(order.Status)),
			zap.String("response_code", payload.ResponseCode),
		)
		event.Status = domain.WebhookEventDuplicate
		if attempt.Status == domain.AttemptStatusSuperseded {
			event.Status = domain.WebhookEventStaleAttempt
		}
		return &domain.SettlementResult{OrderID: order.ID, Status: order.Status, Duplicate: true}, nil
	}

	target := domain.OutcomeForResponseCode(payload.ResponseCode)
	applied, err := s.orders.TransitionStatus(ctx, order.ID, domain.OrderStatusPending, target)
	if err != nil {
		return nil, fmt.Errorf("failed to settle order %s: %w", order.ID, err)
	}

	if !applied {
		current, err := s.orders.Get(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload order %s: %w", order.ID, err)
		}
		if !current.Status.IsTerminal() {
			return nil, fmt.Errorf("order %s left pending after conditional update", order.ID)
		}
		s.logger.Info("Duplicate settlement ignored",
			zap.String("order_id", order.ID),
			zap.String("status", string(current.Status)),
			zap.String("response_code", payload.ResponseCode),
		)
		event.Status = domain.WebhookEventDuplicate
		return &domain.SettlementResult{OrderID: order.ID, Status: current.Status, Duplicate: true}, nil
	}

	event.Status = domain.WebhookEventApplied
	settledAt := s.now().UTC()
	s.logger.Info("Order settled",
		zap.String("order_id", order.ID),
		zap.String("status", string(target)),
		zap.String("response_code", payload.ResponseCode),
	)

	attemptStatus := domain.AttemptStatusFailed
	if target == domain.OrderStatusPaid {
		attemptStatus = domain.AttemptStatusSucceeded
	}
	marked, markErr := s.attempts.MarkSettled(ctx, attempt.Reference, attemptStatus)
	switch {
	case markErr != nil:
		s.logger.Warn("Failed to mark payment attempt settled",
			zap.String("reference", attempt.Reference),
			zap.Error(markErr),
		)
	case !marked:
		s.logger.Warn("Payment attempt closed while its order settled",
			zap.String("order_id", order.ID),
			zap.String("reference", attempt.Reference),
		)
	}

	result := &domain.SettlementResult{OrderID: order.ID, Status: target}
	if target != domain.OrderStatusPaid {
		return result, nil
	}

	order.Status = domain.OrderStatusPaid
	contract, provErr := s.provisioner.Provision(ctx, order, settledAt)
	if provErr != nil {
		// The order stays paid; the contract can be provisioned again later.
		s.logger.Error("Contract provisioning failed",
			zap.String("order_id", order.ID),
			zap.Error(fmt.Errorf("%w: %v", domain.ErrContractProvision, provErr)),
		)
		return result, nil
	}
	result.Contract = contract
	return result, nil
}

// RejectOversized records a callback whose body exceeded limit bytes as a
// malformed event and returns the matching error. head holds the bytes read
// before the limit was hit; the signature is not checked.
func (s *SettlementService) RejectOversized(ctx context.Context, head []byte, signatureHeader string, limit int64) error {
	err := domain.NewServiceError(domain.ErrMalformedPayload,
		fmt.Sprintf("webhook body exceeds %d bytes", limit), "MALFORMED_PAYLOAD")
	s.logger.Warn("Rejected oversized webhook",
		zap.Int64("limit", limit),
		zap.Int("bytes_kept", len(head)),
	)
	s.appendEvent(ctx, &domain.WebhookEvent{
		ID:           uuid.NewString(),
		RawPayload:   head,
		Signature:    signatureHeader,
		Verification: domain.VerificationUnchecked,
		Status:       domain.WebhookEventRejectedMalformed,
		ErrorMessage: err.Error(),
		ProcessedAt:  s.now().UTC(),
	})
	return err
}

func (s *SettlementService) appendEvent(ctx context.Context, event *domain.WebhookEvent) {
	if err := s.events.Append(ctx, event); err != nil {
		s.logger.Error("Failed to append webhook event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}
}

// resolve maps an external transaction id to the attempt that issued it and
// the attempt's order. References that were never issued are unresolvable.
func (s *SettlementService) resolve(ctx context.Context, externalTxnID string) (*domain.PaymentAttempt, *domain.Order, error) {
	orderID, ok := domain.OrderIDFromExternalTransactionID(externalTxnID)
	if !ok {
		return nil, nil, domain.NewServiceError(domain.ErrUnresolvableOrder,
			fmt.Sprintf("unrecognised external transaction id '%s'", externalTxnID), "UNRESOLVABLE_ORDER")
	}

	attempt, err := s.attempts.FindByReference(ctx, externalTxnID)
	if err != nil {
		if errors.Is(err, domain.ErrAttemptNotFound) {
			return nil, nil, domain.NewServiceError(domain.ErrUnresolvableOrder,
				fmt.Sprintf("reference '%s' was never issued", externalTxnID), "UNRESOLVABLE_ORDER")
		}
		return nil, nil, fmt.Errorf("failed to load payment attempt %s: %w", externalTxnID, err)
	}
	if attempt.OrderID != orderID {
		return nil, nil, domain.NewServiceError(domain.ErrUnresolvableOrder,
			fmt.Sprintf("reference '%s' belongs to another order", externalTxnID), "UNRESOLVABLE_ORDER")
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, nil, domain.NewServiceError(domain.ErrUnresolvableOrder,
				fmt.Sprintf("order '%s' not found", orderID), "UNRESOLVABLE_ORDER")
		}
		return nil, nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	return attempt, order, nil
}

func amountMismatch(order *domain.Order, payload *domain.CallbackPayload) string {
	var notes []string
	if payload.Amount != nil {
		if got := domain.ToMinorUnits(*payload.Amount); got != order.TotalMinor {
			notes = append(notes, fmt.Sprintf("amount %d does not match order total %d", got, order.TotalMinor))
		}
	}
	if payload.Currency != "" && !strings.EqualFold(payload.Currency, order.Currency) {
		notes = append(notes, fmt.Sprintf("currency %s does not match order currency %s", payload.Currency, order.Currency))
	}
	return strings.Join(notes, "; ")
}

func eventStatusFor(err error) domain.WebhookEventStatus {
	switch {
	case errors.Is(err, domain.ErrSignatureMissing), errors.Is(err, domain.ErrInvalidSignature):
		return domain.WebhookEventRejectedSignature
	case errors.Is(err, domain.ErrMalformedPayload):
		return domain.WebhookEventRejectedMalformed
	case errors.Is(err, domain.ErrUnresolvableOrder):
		return domain.WebhookEventRejectedUnresolvable
	}
	return domain.WebhookEventError
}
