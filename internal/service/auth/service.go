// Package auth implements the optional operator-authentication gate.
// A single operator password, stored as a bcrypt hash in configuration,
// is exchanged for a short-lived HS256 session token.
package auth

import "context"

// Service defines the authentication operations the API layer depends on.
type Service interface {
	// Login verifies the operator password and returns a signed session
	// token. Returns ErrInvalidCredentials on a mismatch and ErrDisabled
	// when authentication is not configured.
	Login(ctx context.Context, password string) (string, error)

	// ValidateToken verifies a session token's signature and expiry.
	ValidateToken(ctx context.Context, token string) error
}
