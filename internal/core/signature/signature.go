// Package signature computes and verifies the gateway HMAC signatures.
//
// Outbound requests are signed over the escaped concatenation of the URL path
// and the JSON body. Inbound callbacks are verified over the raw body bytes.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the lower-case hex HMAC-SHA256 of payload under secret.
func Sign(secret, payload []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether supplied is exactly the lower-case hex HMAC of
// payload. Upper-case digits, padding or any other variant is no match.
func Verify(secret, payload []byte, supplied string) bool {
	expected := Sign(secret, payload)

	// Compare signatures (constant-time comparison)
	return hmac.Equal([]byte(supplied), []byte(expected))
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\x00", `\0`,
)

// Escape applies the backslash, quote and NUL escaping both parties use
// before signing a request.
func Escape(s string) string {
	return escaper.Replace(s)
}

// CanonicalRequest builds the byte sequence signed for an outbound request.
func CanonicalRequest(path string, body []byte) []byte {
	return []byte(Escape(path + string(body)))
}

// Signer holds the shared gateway secret.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer for the given shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// SignRequest signs an outbound request for the given URL path and body.
func (s *Signer) SignRequest(path string, body []byte) string {
	return Sign(s.secret, CanonicalRequest(path, body))
}

// VerifyBody checks an inbound signature against the raw, unmodified body.
func (s *Signer) VerifyBody(raw []byte, supplied string) bool {
	if len(s.secret) == 0 {
		return false
	}
	return Verify(s.secret, raw, supplied)
}
