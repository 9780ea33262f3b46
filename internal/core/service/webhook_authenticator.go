package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/signature"
)

// WebhookAuthenticator verifies inbound gateway callbacks and parses them.
type WebhookAuthenticator struct {
	signer     *signature.Signer
	production bool
}

// NewWebhookAuthenticator creates an authenticator. In production an unsigned
// callback is rejected; elsewhere it is accepted and flagged.
func NewWebhookAuthenticator(signer *signature.Signer, production bool) *WebhookAuthenticator {
	return &WebhookAuthenticator{signer: signer, production: production}
}

// Authenticate checks the signature over the raw body and then parses it.
// The returned payload is nil whenever err is non-nil, except for signature
// failures where a best-effort parse is returned for audit purposes.
func (a *WebhookAuthenticator) Authenticate(raw []byte, signatureHeader string) (*domain.CallbackPayload, domain.Verification, error) {
	verification := domain.VerificationVerified

	if strings.TrimSpace(signatureHeader) == "" {
		if a.production {
			return peek(raw), domain.VerificationMissing, domain.NewServiceError(domain.ErrSignatureMissing,
				"webhook signature is required", "SIGNATURE_MISSING")
		}
		verification = domain.VerificationUnsignedAllowed
	} else if !a.signer.VerifyBody(raw, signatureHeader) {
		return peek(raw), domain.VerificationInvalid, domain.NewServiceError(domain.ErrInvalidSignature,
			"webhook signature does not match body", "INVALID_SIGNATURE")
	}

	payload, err := parseCallback(raw)
	if err != nil {
		return nil, verification, err
	}
	return payload, verification, nil
}

func parseCallback(raw []byte) (*domain.CallbackPayload, error) {
	var payload domain.CallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, domain.NewServiceError(domain.ErrMalformedPayload,
			fmt.Sprintf("invalid callback body: %v", err), "MALFORMED_PAYLOAD")
	}
	if payload.ExternalTransactionID == "" {
		return nil, domain.NewServiceError(domain.ErrMalformedPayload,
			"externalTransactionID is required", "MALFORMED_PAYLOAD")
	}
	if len(payload.ResponseCode) != 2 {
		return nil, domain.NewServiceError(domain.ErrMalformedPayload,
			"responseCode must be a two character code", "MALFORMED_PAYLOAD")
	}
	return &payload, nil
}

// peek extracts what an unauthenticated body claims, for the audit trail only.
func peek(raw []byte) *domain.CallbackPayload {
	var payload domain.CallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return &payload
}
