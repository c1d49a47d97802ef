package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	ti := NewTokenIssuer("test-secret", 0)

	token, err := ti.GenerateToken(42)
	require.NoError(t, err)

	userID, err := ti.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).GenerateToken(42)
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrSignatureInvalid)
}

func TestTokenExpires(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	ti.now = func() time.Time { return issued }

	token, err := ti.GenerateToken(42)
	require.NoError(t, err)

	ti.now = time.Now
	_, err = ti.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenRejectsGarbage(t *testing.T) {
	_, err := NewTokenIssuer("test-secret", time.Hour).ValidateToken("not-a-token")
	assert.Error(t, err)
}
