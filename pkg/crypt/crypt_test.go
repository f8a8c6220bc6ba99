package crypt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artisanmart/storefront/pkg/crypt"
)

func TestSignMatchesKnownVector(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	assert.Equal(t,
		"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		crypt.Sign("key", "The quick brown fox jumps over the lazy dog"))
}

func TestVerifyRejectsTampering(t *testing.T) {
	const secret = "rzp_test_secret"
	sig := crypt.Sign(secret, "order_Nx1", "pay_Qz9")
	flipped := "a" + sig[1:]
	if sig[0] == 'a' {
		flipped = "b" + sig[1:]
	}

	assert.True(t, crypt.Verify(secret, sig, "order_Nx1", "pay_Qz9"))
	assert.True(t, crypt.Verify(secret, strings.ToUpper(sig), "order_Nx1", "pay_Qz9"))

	cases := []struct {
		name, secret, sig, order, payment string
	}{
		{"other payment", secret, sig, "order_Nx1", "pay_Qz8"},
		{"other order", secret, sig, "order_Nx2", "pay_Qz9"},
		{"swapped", secret, sig, "pay_Qz9", "order_Nx1"},
		{"wrong secret", "other", sig, "order_Nx1", "pay_Qz9"},
		{"empty secret", "", crypt.Sign("", "order_Nx1", "pay_Qz9"), "order_Nx1", "pay_Qz9"},
		{"flipped nibble", secret, flipped, "order_Nx1", "pay_Qz9"},
		{"truncated", secret, sig[:10], "order_Nx1", "pay_Qz9"},
		{"not hex", secret, "zz" + sig[2:], "order_Nx1", "pay_Qz9"},
		{"empty", secret, "", "order_Nx1", "pay_Qz9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, crypt.Verify(tc.secret, tc.sig, tc.order, tc.payment))
		})
	}
}
