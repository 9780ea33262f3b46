package domain_test

import (
	"errors"
	"testing"

	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"1000.00": 100000,
		"1000":    100000,
		"0.1":     10,
		"19.995":  2000,
		"0.29":    29,
		"12.345":  1235,
	}
	for in, want := range cases {
		got, err := domain.ParseMinorUnits(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := domain.ParseMinorUnits("ten rand")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestToMinorUnits_NoFloatDrift(t *testing.T) {
	// 0.1 + 0.2 drifts in float64; decimal does not.
	sum := decimal.RequireFromString("0.1").Add(decimal.RequireFromString("0.2"))
	assert.Equal(t, int64(30), domain.ToMinorUnits(sum))
	assert.Equal(t, "1000", domain.FromMinorUnits(100000).String())
}

func TestOutcomeForResponseCode(t *testing.T) {
	assert.Equal(t, domain.OrderStatusPaid, domain.OutcomeForResponseCode("00"))
	for _, code := range []string{"05", "01", "0", "000", "", "OO", " 00"} {
		assert.Equal(t, domain.OrderStatusPaymentFailed, domain.OutcomeForResponseCode(code), code)
	}
}

func TestPublicStatus(t *testing.T) {
	assert.Equal(t, "paid", domain.PublicStatus(domain.OrderStatusPaid))
	for _, s := range []domain.OrderStatus{domain.OrderStatusPaymentFailed, domain.OrderStatusCancelled, domain.OrderStatusPending} {
		assert.Equal(t, "failed", domain.PublicStatus(s), string(s))
	}
}

func TestOrderIDFromExternalTransactionID(t *testing.T) {
	id, ok := domain.OrderIDFromExternalTransactionID("ORDER-O1-123")
	assert.True(t, ok)
	assert.Equal(t, "O1", id)

	id, ok = domain.OrderIDFromExternalTransactionID("ORDER-6f1c2a9e-2b1d-4c55-9f0e-0a3b5e7d9c11-1734012345")
	assert.True(t, ok)
	assert.Equal(t, "6f1c2a9e-2b1d-4c55-9f0e-0a3b5e7d9c11", id)

	for _, bad := range []string{"", "ORDER-", "ORDER--123", "ORDER-O1", "ORDER-O1-abc", "PAY-O1-123"} {
		_, ok := domain.OrderIDFromExternalTransactionID(bad)
		assert.False(t, ok, bad)
	}
}

func TestExternalTransactionID_RoundTrip(t *testing.T) {
	ref := domain.ExternalTransactionID("abc-def", 42)
	assert.Equal(t, "ORDER-abc-def-42", ref)
	id, ok := domain.OrderIDFromExternalTransactionID(ref)
	assert.True(t, ok)
	assert.Equal(t, "abc-def", id)
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, domain.OrderStatusPending.IsTerminal())
	assert.True(t, domain.OrderStatusPaid.IsTerminal())
	assert.True(t, domain.OrderStatusPaymentFailed.IsTerminal())
	assert.True(t, domain.OrderStatusCancelled.IsTerminal())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR", domain.CodeOf(domain.ErrValidation))
	assert.Equal(t, "GATEWAY_TIMEOUT", domain.CodeOf(domain.NewServiceError(domain.ErrGatewayTimeout, "x", "")))
	assert.Equal(t, "CUSTOM", domain.CodeOf(domain.NewServiceError(domain.ErrGateway, "x", "CUSTOM")))
	assert.Equal(t, "INTERNAL_ERROR", domain.CodeOf(errors.New("boom")))
}
