package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/ports"
	"go.uber.org/zap"
)

// OrderService manages the order lifecycle outside of settlement.
type OrderService struct {
	orders   ports.OrderRepository
	currency string
	now      func() time.Time
	logger   *zap.Logger
}

// NewOrderService creates a new order service for the given operating currency.
func NewOrderService(orders ports.OrderRepository, currency string, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orders:   orders,
		currency: strings.ToUpper(currency),
		now:      time.Now,
		logger:   logger,
	}
}

// CreateOrder validates the items and stores a new pending order.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, items []domain.OrderItem) (*domain.Order, error) {
	if userID == "" {
		return nil, domain.NewServiceError(domain.ErrValidation, "user_id is required", "VALIDATION_ERROR")
	}
	if len(items) == 0 {
		return nil, domain.NewServiceError(domain.ErrValidation, "at least one item is required", "VALIDATION_ERROR")
	}

	var total int64
	for i, it := range items {
		if it.ServiceName == "" {
			return nil, domain.NewServiceError(domain.ErrValidation,
				fmt.Sprintf("item %d: service_name is required", i), "VALIDATION_ERROR")
		}
		if it.Quantity < 1 {
			return nil, domain.NewServiceError(domain.ErrValidation,
				fmt.Sprintf("item %d: quantity must be at least 1", i), "VALIDATION_ERROR")
		}
		if it.UnitPriceMinor < 0 {
			return nil, domain.NewServiceError(domain.ErrValidation,
				fmt.Sprintf("item %d: unit price must not be negative", i), "VALIDATION_ERROR")
		}
		total += it.Subtotal()
	}
	if total <= 0 {
		return nil, domain.NewServiceError(domain.ErrValidation, "order total must be greater than 0", "VALIDATION_ERROR")
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		Items:      items,
		TotalMinor: total,
		Currency:   s.currency,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int64("total_minor", total),
	)
	return order, nil
}

// GetOrder returns the order or domain.ErrOrderNotFound.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.Get(ctx, orderID)
}

// CancelOrder moves a pending order to cancelled.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	ok, err := s.orders.TransitionStatus(ctx, orderID, domain.OrderStatusPending, domain.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewServiceError(domain.ErrOrderNotPending,
			fmt.Sprintf("order '%s' is %s", orderID, order.Status), "ORDER_NOT_PENDING")
	}
	s.logger.Info("Order cancelled", zap.String("order_id", orderID))
	return order, nil
}
