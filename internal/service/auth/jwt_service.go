package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixfetch/pixfetch/internal/config"
)

// jwtService implements Service using HMAC-SHA256 signed tokens and a
// bcrypt password hash from configuration.
type jwtService struct {
	secret        []byte
	passwordHash  string
	tokenLifetime time.Duration
	logger        *slog.Logger
	timeFn        func() time.Time
}

// NewJWTService creates a Service backed by the given auth configuration.
func NewJWTService(cfg config.AuthConfig, logger *slog.Logger) Service {
	return &jwtService{
		secret:        []byte(cfg.JWTSecret),
		passwordHash:  cfg.PasswordHash,
		tokenLifetime: time.Duration(cfg.TokenLifetimeMinutes) * time.Minute,
		logger:        logger.With("component", "auth_service"),
		timeFn:        time.Now,
	}
}

func (s *jwtService) Login(ctx context.Context, password string) (string, error) {
	if s.passwordHash == "" {
		return "", ErrDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("login attempt with wrong password")
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to verify password: %w", err)
	}

	now := s.timeFn().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   "operator",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("operator logged in", "expires_at", claims.ExpiresAt.Time)
	return signed, nil
}

func (s *jwtService) ValidateToken(ctx context.Context, tokenString string) error {
	if tokenString == "" {
		return ErrEmptyToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.timeFn().UTC() }),
	)

	_, err := parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	return nil
}
