// Package signature authenticates inbound payloads from the payment gateway
// and from client-submitted payment confirmations.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verify compares providedSignature against the HMAC-SHA256 hex digest of
// payload under secret. The comparison is constant-time so partial matches
// leak nothing through timing.
func Verify(payload []byte, providedSignature, secret string) bool {
	if providedSignature == "" || secret == "" {
		return false
	}
	provided, err := hex.DecodeString(providedSignature)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hmac.Equal(h.Sum(nil), provided)
}

// VerifyPaymentConfirmation checks a client-side confirmation, whose message
// is the concatenation "{orderID}|{paymentID}" signed with the gateway API
// secret.
func VerifyPaymentConfirmation(orderID, paymentID, providedSignature, secret string) bool {
	return Verify([]byte(orderID+"|"+paymentID), providedSignature, secret)
}

// Sign returns the lowercase hex HMAC-SHA256 digest of payload under secret.
// Used by tests and by callers that need to produce signatures.
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
