// Package crypt holds the HMAC helpers used to verify payment-gateway
// signatures.
//
//	sig := crypt.Sign(secret, gatewayOrderID, paymentID) // hex HMAC-SHA256 of "a|b"
//	ok := crypt.Verify(secret, sig, gatewayOrderID, paymentID)
package crypt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Separator joins the signed parts.
const Separator = "|"

// Sign returns the lowercase hex HMAC-SHA256 of parts joined by Separator.
func Sign(secret string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, Separator)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the HMAC of parts under secret. The
// comparison is constant time; an empty secret never verifies.
func Verify(secret, signature string, parts ...string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, Separator)))
	return hmac.Equal(got, mac.Sum(nil))
}
