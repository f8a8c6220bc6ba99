package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmart/storefront/config"
	"github.com/artisanmart/storefront/pkg/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	token, expires, err := auth.GenerateToken(42, "ana@example.com", auth.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, expires.IsZero())

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestTokenSignedWithOtherSecretIsRejected(t *testing.T) {
	t.Cleanup(config.Reset)

	config.Set("JWT_SECRET", "first")
	token, _, err := auth.GenerateToken(1, "a@b.c", auth.RoleUser)
	require.NoError(t, err)

	config.Set("JWT_SECRET", "second")
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestClaimsContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.WithClaims(context.Background(), &auth.Claims{UserID: 3, Role: auth.RoleUser})
	c, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.EqualValues(t, 3, c.UserID)
	assert.False(t, c.IsAdmin())
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(hash, "correct horse"))
	assert.False(t, auth.CheckPassword(hash, "battery staple"))
}
