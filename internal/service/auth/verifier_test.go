package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskward/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// signToken builds a token the way the external identity provider does.
func signToken(t *testing.T, secret string, userID uuid.UUID, groups []string, expiresAt time.Time) string {
	t.Helper()

	claims := tokenClaims{
		UserID: userID,
		Groups: groups,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestNewVerifier(t *testing.T) {
	t.Run("rejects short secret", func(t *testing.T) {
		_, err := NewVerifier(config.AuthConfig{JWTSecret: "short"})
		assert.Error(t, err)
	})

	t.Run("accepts sufficient secret", func(t *testing.T) {
		verifier, err := NewVerifier(config.AuthConfig{JWTSecret: testSecret})
		require.NoError(t, err)
		assert.NotNil(t, verifier)
	})
}

func TestVerify(t *testing.T) {
	verifier, err := NewVerifier(config.AuthConfig{JWTSecret: testSecret})
	require.NoError(t, err)

	userID := uuid.New()

	t.Run("valid token yields claims", func(t *testing.T) {
		token := signToken(t, testSecret, userID, []string{"ops"}, time.Now().Add(time.Hour))

		claims, err := verifier.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.True(t, claims.HasGroup("ops"))
		assert.False(t, claims.HasGroup("admins"))
	})

	t.Run("expired token", func(t *testing.T) {
		token := signToken(t, testSecret, userID, nil, time.Now().Add(-time.Hour))

		_, err := verifier.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token := signToken(t, "ffffffffffffffffffffffffffffffff", userID, nil,
			time.Now().Add(time.Hour))

		_, err := verifier.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := verifier.Verify(context.Background(), "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing user id claim", func(t *testing.T) {
		token := signToken(t, testSecret, uuid.Nil, []string{"ops"}, time.Now().Add(time.Hour))

		_, err := verifier.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
