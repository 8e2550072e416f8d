package services

import (
	"context"
	"errors"
	"testing"

	"travel-marketplace/internal/apperrors"
	"travel-marketplace/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	t.Run("register normalises email and defaults role", func(t *testing.T) {
		u, err := env.users.Register(ctx, &models.RegisterRequest{
			Name:     "Alice",
			Email:    "  Alice@Example.com ",
			Password: "password123",
			Role:     "admin",
		})
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.Equal(t, string(models.RoleClient), u.Role)
		assert.NotEqual(t, "password123", u.PasswordHash)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		_, err := env.users.Register(ctx, &models.RegisterRequest{
			Name:     "Alice Again",
			Email:    "alice@example.com",
			Password: "password123",
		})
		assert.True(t, errors.Is(err, apperrors.ErrConflict))
	})

	t.Run("short password fails validation", func(t *testing.T) {
		_, err := env.users.Register(ctx, &models.RegisterRequest{
			Name:     "Bob",
			Email:    "bob@example.com",
			Password: "short",
		})
		assert.True(t, errors.Is(err, apperrors.ErrValidation))
	})

	t.Run("authenticate", func(t *testing.T) {
		u, err := env.users.Authenticate(ctx, &models.LoginRequest{Email: "ALICE@example.com", Password: "password123"})
		require.NoError(t, err)
		assert.Equal(t, "Alice", u.Name)

		_, err = env.users.Authenticate(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = env.users.Authenticate(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "password123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserService_EligibleAgencies(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	paris := env.addUser(t, "railway", models.RoleAgency, "Paris")
	all := env.addUser(t, "global", models.RoleAgency)
	env.addUser(t, "nordic", models.RoleAgency, "Oslo")
	env.addUser(t, "alice", models.RoleClient)

	agencies, err := env.users.ListAgencies(ctx)
	require.NoError(t, err)
	assert.Len(t, agencies, 3)

	eligible, err := env.users.EligibleAgencies(ctx, "Lyon", "PARIS")
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, paris.ID, eligible[0].ID)
	assert.Equal(t, all.ID, eligible[1].ID)

	ok, err := env.users.HasRole(ctx, paris.ID, models.RoleAgency)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthService_Tokens(t *testing.T) {
	auth := NewAuthService("test-secret", zerolog.Nop())

	token, err := auth.GenerateToken("user-1", "alice@example.com", "client")
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "client", claims.Role)
	assert.Equal(t, "user-1", claims.Subject)

	refresh, err := auth.GenerateRefreshToken("user-1")
	require.NoError(t, err)
	claims, err = auth.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Empty(t, claims.Role)

	_, err = auth.ValidateToken(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = auth.ValidateRefreshToken(token)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	other := NewAuthService("other-secret", zerolog.Nop())
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	_, err = auth.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestPaymentReference(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref, err := NewPaymentReference()
		require.NoError(t, err)
		assert.True(t, IsPaymentReference(ref), ref)
		assert.False(t, seen[ref])
		seen[ref] = true
	}
	assert.False(t, IsPaymentReference("PAY-abc12345"))
	assert.False(t, IsPaymentReference("PAY-ABC1234"))
}
