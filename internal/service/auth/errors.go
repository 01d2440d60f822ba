package auth

import "errors"

// Predefined errors for authentication operations.
var (
	// ErrInvalidCredentials indicates the supplied password does not
	// match the configured operator password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates the token is malformed or has an invalid signature.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("token has expired")

	// ErrEmptyToken indicates an empty token was provided.
	ErrEmptyToken = errors.New("token is empty")

	// ErrDisabled indicates authentication is not configured.
	ErrDisabled = errors.New("authentication is disabled")
)
