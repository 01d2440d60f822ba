package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/pixfetch/pixfetch/internal/api/shared"
	"github.com/pixfetch/pixfetch/internal/service/auth"
)

// LoginRequest represents the request body for operator login.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the signed session token.
type LoginResponse struct {
	Token string `json:"token"`
}

// AuthHandler handles operator authentication requests.
type AuthHandler struct {
	authService auth.Service
	validator   *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator.New(),
	}
}

// Login handles POST /api/auth/login requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Password is required")
		return
	}

	token, err := h.authService.Login(r.Context(), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Login failed", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, LoginResponse{Token: token})
}
