package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPair(t *testing.T, expiry time.Duration) (*JWTGenerator, *JWTValidator) {
	t.Helper()
	cfg := JWTConfig{
		SecretKey: "test-secret-key",
		Issuer:    "treeviz-test",
	}
	generator, err := NewJWTGenerator(cfg, expiry)
	require.NoError(t, err)
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)
	return generator, validator
}

func TestJWT_RoundTrip(t *testing.T) {
	// Arrange
	generator, validator := newTestPair(t, time.Hour)

	// Act
	token, err := generator.GenerateToken("user-123", "user@example.com")
	require.NoError(t, err)

	claims, err := validator.ValidateToken(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestJWT_BearerPrefixAccepted(t *testing.T) {
	generator, validator := newTestPair(t, time.Hour)
	token, err := generator.GenerateToken("user-123", "")
	require.NoError(t, err)

	claims, err := validator.ValidateToken("Bearer " + token)

	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestJWT_ExpiredTokenRejected(t *testing.T) {
	generator, validator := newTestPair(t, -time.Minute)
	token, err := generator.GenerateToken("user-123", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWT_WrongSecretRejected(t *testing.T) {
	generator, _ := newTestPair(t, time.Hour)
	token, err := generator.GenerateToken("user-123", "")
	require.NoError(t, err)

	otherValidator, err := NewJWTValidator(JWTConfig{
		SecretKey: "different-secret",
		Issuer:    "treeviz-test",
	})
	require.NoError(t, err)

	_, err = otherValidator.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWT_WrongIssuerRejected(t *testing.T) {
	generator, err := NewJWTGenerator(JWTConfig{
		SecretKey: "test-secret-key",
		Issuer:    "someone-else",
	}, time.Hour)
	require.NoError(t, err)

	_, validator := newTestPair(t, time.Hour)

	token, err := generator.GenerateToken("user-123", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestJWT_MissingTokenRejected(t *testing.T) {
	_, validator := newTestPair(t, time.Hour)

	_, err := validator.ValidateToken("")

	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestUserContext_RoundTrip(t *testing.T) {
	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "u1", Email: "e@x.com"})

	user, err := GetUserFromContext(ctx)

	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)
}

func TestUserContext_MissingUser(t *testing.T) {
	_, err := GetUserFromContext(context.Background())

	assert.Error(t, err)
}
