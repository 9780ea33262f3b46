package repository

import (
	"encoding/json"
	"time"

	"github.com/ledgerworks/payments/internal/core/domain"
	"gorm.io/datatypes"
)

type orderModel struct {
	ID         string         `gorm:"primaryKey;size:64"`
	UserID     string         `gorm:"size:64;not null;index"`
	Items      datatypes.JSON `gorm:"type:jsonb;not null"`
	TotalMinor int64          `gorm:"not null"`
	Currency   string         `gorm:"size:3;not null"`
	Status     string         `gorm:"size:20;not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (orderModel) TableName() string { return "orders" }

func toOrderModel(o *domain.Order) (*orderModel, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, err
	}
	return &orderModel{
		ID:         o.ID,
		UserID:     o.UserID,
		Items:      datatypes.JSON(items),
		TotalMinor: o.TotalMinor,
		Currency:   o.Currency,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}, nil
}

func (m *orderModel) toDomain() (*domain.Order, error) {
	var items []domain.OrderItem
	if len(m.Items) > 0 {
		if err := json.Unmarshal(m.Items, &items); err != nil {
			return nil, err
		}
	}
	return &domain.Order{
		ID:         m.ID,
		UserID:     m.UserID,
		Items:      items,
		TotalMinor: m.TotalMinor,
		Currency:   m.Currency,
		Status:     domain.OrderStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

// The signed request body is kept as json, not jsonb, so the stored bytes
// stay identical to what was signed.
type attemptModel struct {
	Reference      string         `gorm:"primaryKey;size:128"`
	OrderID        string         `gorm:"size:64;not null;index"`
	AmountMinor    int64          `gorm:"not null"`
	Currency       string         `gorm:"size:3;not null"`
	CheckoutURL    string         `gorm:"size:2048"`
	CallbackURL    string         `gorm:"size:2048"`
	SuccessURL     string         `gorm:"size:2048"`
	FailureURL     string         `gorm:"size:2048"`
	CancelURL      string         `gorm:"size:2048"`
	RequestPayload datatypes.JSON `gorm:"type:json"`
	Signature      string         `gorm:"size:128"`
	Status         string         `gorm:"size:20;not null;index"`
	CreatedAt      time.Time
	SettledAt      *time.Time
}

func (attemptModel) TableName() string { return "payment_attempts" }

func toAttemptModel(a *domain.PaymentAttempt) *attemptModel {
	return &attemptModel{
		Reference:      a.Reference,
		OrderID:        a.OrderID,
		AmountMinor:    a.AmountMinor,
		Currency:       a.Currency,
		CheckoutURL:    a.CheckoutURL,
		CallbackURL:    a.CallbackURL,
		SuccessURL:     a.SuccessURL,
		FailureURL:     a.FailureURL,
		CancelURL:      a.CancelURL,
		RequestPayload: datatypes.JSON(a.RequestPayload),
		Signature:      a.Signature,
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt,
		SettledAt:      a.SettledAt,
	}
}

func (m *attemptModel) toDomain() *domain.PaymentAttempt {
	return &domain.PaymentAttempt{
		Reference:      m.Reference,
		OrderID:        m.OrderID,
		AmountMinor:    m.AmountMinor,
		Currency:       m.Currency,
		CheckoutURL:    m.CheckoutURL,
		CallbackURL:    m.CallbackURL,
		SuccessURL:     m.SuccessURL,
		FailureURL:     m.FailureURL,
		CancelURL:      m.CancelURL,
		RequestPayload: []byte(m.RequestPayload),
		Signature:      m.Signature,
		Status:         domain.AttemptStatus(m.Status),
		CreatedAt:      m.CreatedAt,
		SettledAt:      m.SettledAt,
	}
}

// Raw payloads are stored as bytes: a rejected callback need not be JSON or
// even UTF-8. The other caller-supplied columns hold sanitized text.
type webhookEventModel struct {
	ID                    string  `gorm:"primaryKey;size:36"`
	OrderID               *string `gorm:"size:64;index"`
	RawPayload            []byte
	Signature             string `gorm:"type:text"`
	Verification          string `gorm:"size:20;not null"`
	Status                string `gorm:"size:30;not null;index"`
	ExternalTransactionID string `gorm:"type:text;index"`
	ResponseCode          string `gorm:"type:text"`
	ErrorMessage          string `gorm:"type:text"`
	ProcessedAt           time.Time
}

func (webhookEventModel) TableName() string { return "webhook_events" }

type gatewayCallModel struct {
	ID             string         `gorm:"primaryKey;size:36"`
	Reference      string         `gorm:"size:128;index"`
	OrderID        string         `gorm:"size:64;index"`
	RequestBody    datatypes.JSON `gorm:"type:json"`
	ResponseStatus int
	ResponseBody   []byte
	Error          string `gorm:"type:text"`
	DurationMillis int64
	CreatedAt      time.Time
}

func (gatewayCallModel) TableName() string { return "gateway_call_logs" }

type contractModel struct {
	ID             string    `gorm:"primaryKey;size:36"`
	ContractNumber string    `gorm:"size:32;not null;uniqueIndex"`
	UserID         string    `gorm:"size:64;not null;index"`
	OrderID        string    `gorm:"size:64;not null;uniqueIndex"`
	ServiceName    string    `gorm:"size:255;not null"`
	PriceMinor     int64     `gorm:"not null"`
	Currency       string    `gorm:"size:3;not null"`
	StartDate      time.Time `gorm:"not null"`
	EndDate        time.Time `gorm:"not null"`
	Status         string    `gorm:"size:20;not null"`
	PaymentStatus  string    `gorm:"size:20;not null"`
	CreatedAt      time.Time
}

func (contractModel) TableName() string { return "service_contracts" }

func toContractModel(c *domain.ServiceContract) *contractModel {
	return &contractModel{
		ID:             c.ID,
		ContractNumber: c.ContractNumber,
		UserID:         c.UserID,
		OrderID:        c.OrderID,
		ServiceName:    c.ServiceName,
		PriceMinor:     c.PriceMinor,
		Currency:       c.Currency,
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		Status:         c.Status,
		PaymentStatus:  c.PaymentStatus,
		CreatedAt:      c.CreatedAt,
	}
}

func (m *contractModel) toDomain() *domain.ServiceContract {
	return &domain.ServiceContract{
		ID:             m.ID,
		ContractNumber: m.ContractNumber,
		UserID:         m.UserID,
		OrderID:        m.OrderID,
		ServiceName:    m.ServiceName,
		PriceMinor:     m.PriceMinor,
		Currency:       m.Currency,
		StartDate:      m.StartDate.UTC(),
		EndDate:        m.EndDate.UTC(),
		Status:         m.Status,
		PaymentStatus:  m.PaymentStatus,
		CreatedAt:      m.CreatedAt,
	}
}
