package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskward/internal/config"
	"github.com/phrazzld/taskward/internal/platform/logger"
)

// Claims are the verified contents of a bearer token.
type Claims struct {
	UserID uuid.UUID
	Groups []string
}

// HasGroup reports whether the claims carry the named group.
func (c *Claims) HasGroup(group string) bool {
	for _, g := range c.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Verifier validates bearer tokens.
type Verifier interface {
	// Verify validates a token string and returns its claims.
	// Returns ErrExpiredToken or ErrInvalidToken on failure.
	Verify(ctx context.Context, tokenString string) (*Claims, error)
}

// hmacVerifier is an implementation of Verifier using HMAC-SHA signing,
// sharing the secret with the identity provider.
type hmacVerifier struct {
	signingKey []byte
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration    // Allowed time difference to handle clock drift
}

// tokenClaims defines the structure of JWT claims we consume.
type tokenClaims struct {
	UserID uuid.UUID `json:"uid"`
	Groups []string  `json:"groups"`
	jwt.RegisteredClaims
}

// Ensure hmacVerifier implements Verifier interface
var _ Verifier = (*hmacVerifier)(nil)

// NewVerifier creates a token Verifier from the auth configuration.
// Returns an error if the shared secret is too short to be safe.
func NewVerifier(cfg config.AuthConfig) (Verifier, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	return &hmacVerifier{
		signingKey: []byte(cfg.JWTSecret),
		timeFunc:   time.Now,
		// Allow 2 minutes of clock skew to handle minor time drifts
		clockSkew: 2 * time.Minute,
	}, nil
}

// Verify validates a bearer token and returns the claims if valid.
func (v *hmacVerifier) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)
	now := v.timeFunc()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&tokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.signingKey, nil
		},
		parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug("token validation failed: token expired", "error", err)
			return nil, ErrExpiredToken
		}
		log.Debug("token validation failed", "error", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == uuid.Nil {
		log.Debug("token has no user id claim")
		return nil, ErrInvalidToken
	}

	return &Claims{
		UserID: claims.UserID,
		Groups: claims.Groups,
	}, nil
}
