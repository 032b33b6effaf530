package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "access-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken(7, "Ravi", "staff", secret, 15)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "Ravi", claims.Name)
	assert.Equal(t, "staff", claims.Role)
	assert.Equal(t, "7", claims.Subject)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	token, err := GenerateAccessToken(7, "Ravi", "staff", secret, -5)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, secret)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(7, "Ravi", "staff", secret, 15)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "other")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = ValidateAccessToken("not-a-token", secret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	token, err := GenerateRefreshToken(3, "token-id", "refresh-secret", 7)
	require.NoError(t, err)

	claims, err := ValidateRefreshToken(token, "refresh-secret")
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
	assert.Equal(t, "token-id", claims.TokenID)

	_, err = ValidateAccessToken(token, secret)
	assert.Error(t, err)
}
