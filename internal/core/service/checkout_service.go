// Package service implements the core business logic.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/ports"
	"github.com/ledgerworks/payments/internal/core/signature"
	"go.uber.org/zap"
)

const maxReferenceAttempts = 5

// CheckoutConfig carries the gateway settings the request builder needs.
type CheckoutConfig struct {
	EntityID string
	Currency string // operating currency, e.g. ZAR
	Mode     string // LIVE or TEST
	Path     string // URL path the request is POSTed to; part of the signed payload
	URLs     domain.GatewayURLs
	Timeout  time.Duration
}

// CheckoutService builds, persists, signs and sends payment requests.
type CheckoutService struct {
	orders   ports.OrderRepository
	attempts ports.AttemptRepository
	audit    ports.GatewayAuditLog
	gateway  ports.GatewayClient
	signer   *signature.Signer
	cfg      CheckoutConfig
	nextRef  ReferenceFunc
	now      func() time.Time
	logger   *zap.Logger
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	orders ports.OrderRepository,
	attempts ports.AttemptRepository,
	audit ports.GatewayAuditLog,
	gateway ports.GatewayClient,
	signer *signature.Signer,
	cfg CheckoutConfig,
	nextRef ReferenceFunc,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &CheckoutService{
		orders:   orders,
		attempts: attempts,
		audit:    audit,
		gateway:  gateway,
		signer:   signer,
		cfg:      cfg,
		nextRef:  nextRef,
		now:      time.Now,
		logger:   logger,
	}
}

// BuildPaymentRequest creates a payment attempt for a pending order and sends
// the signed request to the gateway. The attempt is persisted before the
// outbound call so that a failed or interrupted call leaves an auditable record.
func (s *CheckoutService) BuildPaymentRequest(ctx context.Context, in domain.CheckoutInput) (*domain.CheckoutResult, error) {
	order, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}

	attempt, signed, err := s.persistAttempt(ctx, order, in)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := s.now()
	resp, callErr := s.gateway.CreateCheckout(callCtx, signed)
	if callErr == nil && (resp == nil || resp.RedirectURL == "") {
		callErr = fmt.Errorf("%w: response without redirect url", domain.ErrGateway)
	}
	s.recordCall(ctx, attempt, signed.Body, resp, callErr, s.now().Sub(start))

	if callErr != nil {
		s.logger.Warn("Gateway call failed",
			zap.String("order_id", order.ID),
			zap.String("reference", attempt.Reference),
			zap.Error(callErr),
		)
		if errors.Is(callErr, context.DeadlineExceeded) || errors.Is(callErr, domain.ErrGatewayTimeout) {
			return nil, domain.NewServiceError(domain.ErrGatewayTimeout,
				"payment gateway did not respond in time", "GATEWAY_TIMEOUT")
		}
		return nil, domain.NewServiceError(domain.ErrGateway,
			"failed to create gateway checkout", "GATEWAY_ERROR")
	}

	if err := s.attempts.SetCheckoutURL(ctx, attempt.Reference, resp.RedirectURL); err != nil {
		s.logger.Error("Failed to store checkout url",
			zap.String("reference", attempt.Reference),
			zap.Error(err),
		)
	}

	s.logger.Info("Created payment request",
		zap.String("order_id", order.ID),
		zap.String("reference", attempt.Reference),
		zap.Int64("amount_minor", attempt.AmountMinor),
		zap.String("currency", attempt.Currency),
	)

	return &domain.CheckoutResult{
		Reference:   attempt.Reference,
		CheckoutURL: resp.RedirectURL,
		CheckoutID:  resp.CheckoutID,
		Signature:   signed.Signature,
		Request:     signed.Request,
	}, nil
}

func (s *CheckoutService) validate(ctx context.Context, in domain.CheckoutInput) (*domain.Order, error) {
	if in.AmountMinor <= 0 {
		return nil, domain.NewServiceError(domain.ErrValidation,
			"amount must be greater than 0", "VALIDATION_ERROR")
	}
	if !strings.EqualFold(in.Currency, s.cfg.Currency) {
		return nil, domain.NewServiceError(domain.ErrValidation,
			fmt.Sprintf("currency must be %s", s.cfg.Currency), "VALIDATION_ERROR")
	}
	if in.OrderID == "" {
		return nil, domain.NewServiceError(domain.ErrValidation,
			"order_id is required", "VALIDATION_ERROR")
	}

	order, err := s.orders.Get(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, domain.NewServiceError(domain.ErrValidation,
				fmt.Sprintf("order '%s' not found", in.OrderID), "VALIDATION_ERROR")
		}
		return nil, fmt.Errorf("failed to load order %s: %w", in.OrderID, err)
	}
	if order.Status != domain.OrderStatusPending {
		return nil, domain.NewServiceError(domain.ErrValidation,
			fmt.Sprintf("order '%s' is %s, not pending", order.ID, order.Status), "VALIDATION_ERROR")
	}
	if order.TotalMinor != in.AmountMinor {
		return nil, domain.NewServiceError(domain.ErrValidation,
			"amount does not match order total", "VALIDATION_ERROR")
	}
	return order, nil
}

// persistAttempt picks an unused reference, signs the request built for it and
// stores the attempt. Generated references are regenerated on collision; a
// caller-supplied one is rejected instead.
func (s *CheckoutService) persistAttempt(ctx context.Context, order *domain.Order, in domain.CheckoutInput) (*domain.PaymentAttempt, domain.SignedGatewayRequest, error) {
	supplied := in.ExternalTransactionID != ""
	if supplied {
		if id, ok := domain.OrderIDFromExternalTransactionID(in.ExternalTransactionID); !ok || id != order.ID {
			return nil, domain.SignedGatewayRequest{}, domain.NewServiceError(domain.ErrValidation,
				"external_transaction_id must have the form ORDER-<order-id>-<timestamp>", "VALIDATION_ERROR")
		}
	}

	for i := 0; i < maxReferenceAttempts; i++ {
		ref := in.ExternalTransactionID
		if !supplied {
			ref = s.nextRef(order.ID)
		}

		exists, err := s.attempts.ReferenceExists(ctx, ref)
		if err != nil {
			return nil, domain.SignedGatewayRequest{}, fmt.Errorf("failed to check reference: %w", err)
		}
		if exists {
			if supplied {
				break
			}
			s.logger.Warn("Payment reference collision, regenerating", zap.String("reference", ref))
			continue
		}

		signed, err := s.sign(order, in, ref)
		if err != nil {
			return nil, domain.SignedGatewayRequest{}, err
		}

		attempt := &domain.PaymentAttempt{
			Reference:      ref,
			OrderID:        order.ID,
			AmountMinor:    in.AmountMinor,
			Currency:       signed.Request.Currency,
			CallbackURL:    s.cfg.URLs.CallbackURL,
			SuccessURL:     s.cfg.URLs.SuccessPageURL,
			FailureURL:     s.cfg.URLs.FailurePageURL,
			CancelURL:      s.cfg.URLs.CancelURL,
			RequestPayload: signed.Body,
			Signature:      signed.Signature,
			Status:         domain.AttemptStatusOpen,
			CreatedAt:      s.now().UTC(),
		}
		err = s.attempts.Create(ctx, attempt)
		if errors.Is(err, domain.ErrDuplicateReference) {
			if supplied {
				break
			}
			continue
		}
		if err != nil {
			return nil, domain.SignedGatewayRequest{}, fmt.Errorf("failed to persist payment attempt: %w", err)
		}
		return attempt, signed, nil
	}

	if supplied {
		return nil, domain.SignedGatewayRequest{}, domain.NewServiceError(domain.ErrValidation,
			"external_transaction_id was already used", "VALIDATION_ERROR")
	}
	return nil, domain.SignedGatewayRequest{}, domain.NewServiceError(domain.ErrDuplicateReference,
		"could not generate a unique payment reference", "INTERNAL_ERROR")
}

func (s *CheckoutService) sign(order *domain.Order, in domain.CheckoutInput, ref string) (domain.SignedGatewayRequest, error) {
	req := domain.GatewayRequest{
		EntityID:              s.cfg.EntityID,
		ExternalTransactionID: ref,
		Amount:                in.AmountMinor,
		Currency:              strings.ToUpper(s.cfg.Currency),
		Mode:                  s.cfg.Mode,
		Description:           in.Description,
		URLs:                  s.cfg.URLs,
	}
	if req.Description == "" {
		req.Description = fmt.Sprintf("Order %s", order.ID)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.SignedGatewayRequest{}, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	return domain.SignedGatewayRequest{
		Path:      s.cfg.Path,
		Body:      body,
		Signature: s.signer.SignRequest(s.cfg.Path, body),
		Request:   req,
	}, nil
}

func (s *CheckoutService) recordCall(ctx context.Context, attempt *domain.PaymentAttempt, body []byte, resp *domain.GatewayResponse, callErr error, elapsed time.Duration) {
	entry := &domain.GatewayCallLog{
		Reference:      attempt.Reference,
		OrderID:        attempt.OrderID,
		RequestBody:    body,
		DurationMillis: elapsed.Milliseconds(),
		CreatedAt:      s.now().UTC(),
	}
	if resp != nil {
		entry.ResponseStatus = resp.StatusCode
		entry.ResponseBody = resp.RawBody
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("Failed to record gateway call",
			zap.String("reference", attempt.Reference),
			zap.Error(err),
		)
	}
}
