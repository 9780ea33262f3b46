package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrders()
	svc := NewOrderService(orders, "zar", nil)

	order, err := svc.CreateOrder(ctx, "U1", []domain.OrderItem{
		{ServiceRef: "svc-basic", ServiceName: "Basic Plan", Quantity: 2, UnitPriceMinor: 45000},
		{ServiceRef: "svc-setup", ServiceName: "Setup", Quantity: 1, UnitPriceMinor: 10000},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), order.TotalMinor)
	assert.Equal(t, "ZAR", order.Currency)
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	stored, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalMinor, stored.TotalMinor)
}

func TestCreateOrder_Validation(t *testing.T) {
	svc := NewOrderService(newMemOrders(), "ZAR", nil)
	cases := map[string][]domain.OrderItem{
		"no items":       nil,
		"zero quantity":  {{ServiceName: "A", Quantity: 0, UnitPriceMinor: 100}},
		"negative price": {{ServiceName: "A", Quantity: 1, UnitPriceMinor: -1}},
		"missing name":   {{Quantity: 1, UnitPriceMinor: 100}},
		"free order":     {{ServiceName: "A", Quantity: 1, UnitPriceMinor: 0}},
	}
	for name, items := range cases {
		_, err := svc.CreateOrder(context.Background(), "U1", items)
		assert.True(t, errors.Is(err, domain.ErrValidation), name)
	}

	_, err := svc.CreateOrder(context.Background(), "", []domain.OrderItem{{ServiceName: "A", Quantity: 1, UnitPriceMinor: 1}})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	paid := pendingOrder("O2", 100)
	paid.Status = domain.OrderStatusPaid
	svc := NewOrderService(newMemOrders(pendingOrder("O1", 100), paid), "ZAR", nil)

	order, err := svc.CancelOrder(ctx, "O1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)

	_, err = svc.CancelOrder(ctx, "O1")
	assert.True(t, errors.Is(err, domain.ErrOrderNotPending))

	_, err = svc.CancelOrder(ctx, "O2")
	assert.True(t, errors.Is(err, domain.ErrOrderNotPending))

	_, err = svc.CancelOrder(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
}
