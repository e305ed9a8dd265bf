// Package auth verifies bearer tokens issued by the external identity
// provider. The engine never issues tokens itself; it only checks signatures,
// expiry, and group claims on its own endpoints.
package auth

import "errors"

// Token verification errors.
var (
	// ErrInvalidToken is returned when a token is malformed, has a bad
	// signature, or fails claim validation.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")

	// ErrMissingGroup is returned when a token lacks a required group claim.
	ErrMissingGroup = errors.New("required group claim missing")
)
