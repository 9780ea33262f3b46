package domain

import (
	"fmt"
	"regexp"
)

// ResponseCodeSuccess is the single gateway response code that settles an order as paid.
const ResponseCodeSuccess = "00"

// OutcomeForResponseCode maps a gateway response code to the order status it
// settles to. Every code other than ResponseCodeSuccess is a failure.
func OutcomeForResponseCode(code string) OrderStatus {
	if code == ResponseCodeSuccess {
		return OrderStatusPaid
	}
	return OrderStatusPaymentFailed
}

// ProviderResponseCode maps a provider payment status onto a gateway response
// code. final is false while the provider may still change the outcome.
func ProviderResponseCode(status string) (code string, final bool) {
	switch status {
	case "approved":
		return ResponseCodeSuccess, true
	case "rejected", "cancelled", "refunded", "charged_back":
		return "05", true
	}
	return "", false
}

// PublicStatus is the status string reported back to the gateway: "paid" or
// "failed". The stored order status is kept on the webhook event.
func PublicStatus(s OrderStatus) string {
	if s == OrderStatusPaid {
		return "paid"
	}
	return "failed"
}

var externalTxnPattern = regexp.MustCompile(`^ORDER-(.+)-(\d+)$`)

// ExternalTransactionID builds the gateway correlation id for an order.
func ExternalTransactionID(orderID string, suffix int64) string {
	return fmt.Sprintf("ORDER-%s-%d", orderID, suffix)
}

// OrderIDFromExternalTransactionID extracts the order id segment from an id of
// the form ORDER-<order-id>-<timestamp>.
func OrderIDFromExternalTransactionID(id string) (string, bool) {
	m := externalTxnPattern.FindStringSubmatch(id)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}
