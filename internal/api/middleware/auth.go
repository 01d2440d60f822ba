package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pixfetch/pixfetch/internal/api/shared"
	"github.com/pixfetch/pixfetch/internal/platform/logger"
	"github.com/pixfetch/pixfetch/internal/redact"
	"github.com/pixfetch/pixfetch/internal/service/auth"
)

// AuthMiddleware gates routes behind operator session tokens.
type AuthMiddleware struct {
	authService auth.Service
}

// NewAuthMiddleware creates an AuthMiddleware backed by the given service.
func NewAuthMiddleware(authService auth.Service) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate validates the bearer token from the Authorization header.
// Streaming clients that cannot set headers may pass the token as a
// "token" query parameter instead.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization required")
			return
		}

		if err := m.authService.ValidateToken(r.Context(), token); err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrEmptyToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				logger.FromContext(r.Context()).Error("failed to validate token", "error", redact.Error(err))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
