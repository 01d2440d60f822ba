package api

import (
	"errors"
	"net/http"

	"github.com/pixfetch/pixfetch/internal/domain"
	"github.com/pixfetch/pixfetch/internal/scheduler"
	"github.com/pixfetch/pixfetch/internal/service/auth"
	"github.com/pixfetch/pixfetch/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes based
// on the error type. This prevents leaking internal error types to
// clients.
func MapErrorToStatusCode(err error) int {
	var dup *scheduler.DuplicateError
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, scheduler.ErrJobNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.As(err, &dup):
		return http.StatusConflict

	case errors.Is(err, domain.ErrEmptyURL),
		errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest

	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly message for the
// error type.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Invalid credentials"

	case errors.Is(err, scheduler.ErrJobNotFound), errors.Is(err, store.ErrNotFound):
		return "Job not found"

	case errors.Is(err, domain.ErrEmptyURL):
		return "URL is required"

	case errors.Is(err, domain.ErrInvalidURL):
		return "Invalid URL"

	case errors.Is(err, store.ErrUnavailable):
		return "History storage unavailable"

	default:
		return "An unexpected error occurred"
	}
}
