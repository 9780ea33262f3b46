package repository

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ledgerworks/payments/internal/core/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Byte limits for caller-supplied audit columns. The raw payload keeps the
// full value; an indexed text column must stay under the btree row limit.
const (
	maxSignatureLen    = 512
	maxIndexedTextLen  = 255
	maxResponseCodeLen = 16
	maxErrorMessageLen = 4096
)

// auditText makes s storable in a text column: invalid UTF-8 is replaced, NUL
// bytes are dropped and the result is cut to at most max bytes on a rune
// boundary.
func auditText(s string, max int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.ReplaceAll(s, "\x00", "")
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// GormWebhookEventLog implements ports.WebhookEventLog. Rows are only ever inserted.
type GormWebhookEventLog struct {
	db *gorm.DB
}

func NewGormWebhookEventLog(db *gorm.DB) *GormWebhookEventLog {
	return &GormWebhookEventLog{db: db}
}

func (l *GormWebhookEventLog) Append(ctx context.Context, e *domain.WebhookEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return l.db.WithContext(ctx).Create(&webhookEventModel{
		ID:                    e.ID,
		OrderID:               e.OrderID,
		RawPayload:            e.RawPayload,
		Signature:             auditText(e.Signature, maxSignatureLen),
		Verification:          string(e.Verification),
		Status:                string(e.Status),
		ExternalTransactionID: auditText(e.ExternalTransactionID, maxIndexedTextLen),
		ResponseCode:          auditText(e.ResponseCode, maxResponseCodeLen),
		ErrorMessage:          auditText(e.ErrorMessage, maxErrorMessageLen),
		ProcessedAt:           e.ProcessedAt,
	}).Error
}

// ListByOrder returns the events recorded for an order, oldest first.
func (l *GormWebhookEventLog) ListByOrder(ctx context.Context, orderID string) ([]domain.WebhookEvent, error) {
	var rows []webhookEventModel
	if err := l.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("processed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	events := make([]domain.WebhookEvent, 0, len(rows))
	for _, m := range rows {
		events = append(events, domain.WebhookEvent{
			ID:                    m.ID,
			OrderID:               m.OrderID,
			RawPayload:            m.RawPayload,
			Signature:             m.Signature,
			Verification:          domain.Verification(m.Verification),
			Status:                domain.WebhookEventStatus(m.Status),
			ExternalTransactionID: m.ExternalTransactionID,
			ResponseCode:          m.ResponseCode,
			ErrorMessage:          m.ErrorMessage,
			ProcessedAt:           m.ProcessedAt,
		})
	}
	return events, nil
}

// GormGatewayAuditLog implements ports.GatewayAuditLog.
type GormGatewayAuditLog struct {
	db *gorm.DB
}

func NewGormGatewayAuditLog(db *gorm.DB) *GormGatewayAuditLog {
	return &GormGatewayAuditLog{db: db}
}

func (l *GormGatewayAuditLog) Record(ctx context.Context, entry *domain.GatewayCallLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return l.db.WithContext(ctx).Create(&gatewayCallModel{
		ID:             entry.ID,
		Reference:      entry.Reference,
		OrderID:        entry.OrderID,
		RequestBody:    datatypes.JSON(entry.RequestBody),
		ResponseStatus: entry.ResponseStatus,
		ResponseBody:   entry.ResponseBody,
		Error:          auditText(entry.Error, maxErrorMessageLen),
		DurationMillis: entry.DurationMillis,
		CreatedAt:      entry.CreatedAt,
	}).Error
}
