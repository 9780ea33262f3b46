// Package handlers contains the HTTP handlers for the payment service.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledgerworks/payments/internal/adapters/mercadopago"
	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/service"
	"github.com/ledgerworks/payments/internal/platform/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SignatureHeader carries the gateway's HMAC of the raw webhook body.
const SignatureHeader = "X-Signature"

// PaymentHandler handles HTTP requests for orders and payments.
type PaymentHandler struct {
	checkout    *service.CheckoutService
	settlement  *service.SettlementService
	orders      *service.OrderService
	serviceName string
	logger      *zap.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(
	checkout *service.CheckoutService,
	settlement *service.SettlementService,
	orders *service.OrderService,
	serviceName string,
	log *zap.Logger,
) *PaymentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentHandler{
		checkout:    checkout,
		settlement:  settlement,
		orders:      orders,
		serviceName: serviceName,
		logger:      log,
	}
}

// CheckoutRequest is the body of POST /api/v1/payments/checkout. Amount is in
// major units and may be sent as a JSON string or number.
type CheckoutRequest struct {
	OrderID               string          `json:"order_id" binding:"required"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency" binding:"required,len=3"`
	Description           string          `json:"description"`
	ExternalTransactionID string          `json:"external_transaction_id"`
}

// CreateCheckout handles POST /api/v1/payments/checkout
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
			"code":    "VALIDATION_ERROR",
		})
		return
	}

	result, err := h.checkout.BuildPaymentRequest(c.Request.Context(), domain.CheckoutInput{
		OrderID:               req.OrderID,
		AmountMinor:           domain.ToMinorUnits(req.Amount),
		Currency:              req.Currency,
		Description:           req.Description,
		ExternalTransactionID: req.ExternalTransactionID,
	})
	if err != nil {
		h.respondError(c, "CreateCheckout", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"reference":    result.Reference,
		"checkout_url": result.CheckoutURL,
		"checkout_id":  result.CheckoutID,
		"signature":    result.Signature,
		"request":      result.Request,
	})
}

// MaxWebhookBodyBytes bounds the callback body read into memory.
const MaxWebhookBodyBytes = 64 << 10

// HandleWebhook handles POST /webhooks/payments
// The body is read raw: the signature covers the exact bytes received.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	raw, ok := h.readWebhookBody(c, "HandleWebhook", c.GetHeader(SignatureHeader))
	if !ok {
		return
	}

	result, err := h.settlement.HandleCallback(c.Request.Context(), raw, c.GetHeader(SignatureHeader))
	if err != nil {
		h.respondError(c, "HandleWebhook", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  domain.PublicStatus(result.Status),
	})
}

// HandleProviderWebhook handles POST /webhooks/mercadopago
// The notification only names a payment; its outcome is fetched from the
// provider before settling.
func (h *PaymentHandler) HandleProviderWebhook(c *gin.Context) {
	xSignature := c.GetHeader(mercadopago.SignatureHeader)
	raw, ok := h.readWebhookBody(c, "HandleProviderWebhook", xSignature)
	if !ok {
		return
	}

	result, err := h.settlement.HandleProviderNotification(c.Request.Context(), raw,
		xSignature, c.GetHeader(mercadopago.RequestIDHeader))
	if err != nil {
		h.respondError(c, "HandleProviderWebhook", err)
		return
	}

	status := domain.PublicStatus(result.Status)
	if result.Ignored {
		status = "ignored"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  status,
	})
}

// readWebhookBody reads at most MaxWebhookBodyBytes. Larger bodies are
// recorded as malformed events and answered; ok is false when a response
// has already been written.
func (h *PaymentHandler) readWebhookBody(c *gin.Context, op, signatureHeader string) (raw []byte, ok bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodyBytes)
	raw, err := io.ReadAll(c.Request.Body)
	if err == nil {
		return raw, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.respondError(c, op, h.settlement.RejectOversized(c.Request.Context(), raw, signatureHeader, tooLarge.Limit))
		return nil, false
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "failed to read body",
		"code":    "MALFORMED_PAYLOAD",
	})
	return nil, false
}

// Health handles GET /health
func (h *PaymentHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.serviceName,
	})
}

func (h *PaymentHandler) respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	msg := "Internal server error"
	var svcErr *domain.ServiceError
	if status != http.StatusInternalServerError && errors.As(err, &svcErr) && svcErr.Message != "" {
		msg = svcErr.Message
	}

	log := logger.FromGin(h.logger, c)
	if status >= http.StatusInternalServerError {
		log.Error(op+" failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Info(op+" rejected", zap.Int("status", status), zap.Error(err))
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    domain.CodeOf(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrMalformedPayload),
		errors.Is(err, domain.ErrUnresolvableOrder):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSignatureMissing), errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrOrderNotPending):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
