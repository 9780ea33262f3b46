package mercadopago

import (
	"crypto/hmac"
	"strings"

	"github.com/ledgerworks/payments/internal/core/signature"
)

// SignatureHeader and RequestIDHeader are the headers Mercado Pago sends
// with every notification.
const (
	SignatureHeader = "x-signature"
	RequestIDHeader = "x-request-id"
)

// VerifyNotification validates the x-signature header of a notification.
// See: https://www.mercadopago.com.ar/developers/es/docs/your-integrations/notifications/webhooks
//
// The x-signature header contains: ts=<timestamp>,v1=<signature>
// The signature is HMAC-SHA256 of: id:<data.id>;request-id:<x-request-id>;ts:<timestamp>;
func (a *Adapter) VerifyNotification(xSignature, xRequestID, dataID string) bool {
	return verifyNotification(xSignature, xRequestID, dataID, a.webhookSecret)
}

func verifyNotification(xSignature, xRequestID, dataID, secret string) bool {
	if xSignature == "" || secret == "" {
		return false
	}

	ts, hash := parseSignatureHeader(xSignature)
	if ts == "" || hash == "" {
		return false
	}

	expected := signature.Sign([]byte(secret), []byte(buildManifest(dataID, xRequestID, ts)))

	// Compare signatures (constant-time comparison)
	return hmac.Equal([]byte(hash), []byte(expected))
}

// parseSignatureHeader extracts the ts and v1 values from x-signature.
func parseSignatureHeader(header string) (ts, hash string) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			hash = value
		}
	}
	return ts, hash
}

// buildManifest constructs the string to be signed. Absent parts are left
// out, as Mercado Pago does.
func buildManifest(dataID, requestID, ts string) string {
	var parts []string

	if dataID != "" {
		// Alphanumeric ids are signed in lower case.
		parts = append(parts, "id:"+strings.ToLower(dataID))
	}
	if requestID != "" {
		parts = append(parts, "request-id:"+requestID)
	}
	if ts != "" {
		parts = append(parts, "ts:"+ts)
	}

	return strings.Join(parts, ";") + ";"
}
