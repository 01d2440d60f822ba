package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pixfetch/pixfetch/internal/config"
)

const testPassword = "correct-horse-battery"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) *jwtService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	svc := NewJWTService(config.AuthConfig{
		Enabled:              true,
		JWTSecret:            "0123456789abcdef0123456789abcdef",
		PasswordHash:         string(hash),
		TokenLifetimeMinutes: 60,
	}, testLogger())
	return svc.(*jwtService)
}

func TestLoginAndValidate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, svc.ValidateToken(ctx, token))
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Login(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	svc := NewJWTService(config.AuthConfig{
		JWTSecret: "0123456789abcdef0123456789abcdef",
	}, testLogger())

	_, err := svc.Login(context.Background(), "whatever")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestValidateTokenErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.ValidateToken(ctx, ""), ErrEmptyToken)
	assert.ErrorIs(t, svc.ValidateToken(ctx, "not.a.token"), ErrInvalidToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, testPassword)
	require.NoError(t, err)

	other := newTestService(t)
	other.secret = []byte("ffffffffffffffffffffffffffffffff")
	assert.ErrorIs(t, other.ValidateToken(ctx, token), ErrInvalidToken)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	issued := time.Now().Add(-2 * time.Hour)
	svc.timeFn = func() time.Time { return issued }
	token, err := svc.Login(ctx, testPassword)
	require.NoError(t, err)

	svc.timeFn = time.Now
	assert.ErrorIs(t, svc.ValidateToken(ctx, token), ErrExpiredToken)
}
