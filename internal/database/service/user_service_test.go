package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/database/service"
)

func TestUserService_Me(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	user := f.register(t, "anna@example.com", "")

	me, err := f.users.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", me.Email)

	require.NoError(t, f.userRepo.SetActive(ctx, user.ID, false))
	_, err = f.users.Me(ctx, user.ID)
	assert.ErrorIs(t, err, service.ErrAccountDisabled)

	_, err = f.users.Me(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserService_CreateUser(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	farmer, err := f.users.CreateUser(ctx, service.NewUser{
		Email:     "farmer@example.com",
		Password:  "password123",
		FirstName: "Oleg",
		LastName:  "Ivanov",
		Role:      models.RoleFarmer,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleFarmer, farmer.Role)

	_, err = f.users.CreateUser(ctx, service.NewUser{
		Email:    "admin2@example.com",
		Password: "password123",
		Role:     models.RoleAdmin,
	})
	assert.ErrorIs(t, err, service.ErrAdminRoleForbidden)
}

func TestUserService_SetActive(t *testing.T) {
	f := newAuthFixture(t, false)
	ctx := context.Background()

	user := f.register(t, "anna@example.com", "")
	_, tokens, err := f.auth.Login(ctx, "anna@example.com", "correct horse", nil)
	require.NoError(t, err)

	updated, err := f.users.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	// Deactivation kills every session.
	_, err = f.auth.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, service.ErrRefreshTokenReused)

	_, _, err = f.auth.Login(ctx, "anna@example.com", "correct horse", nil)
	assert.ErrorIs(t, err, service.ErrAccountDisabled)

	updated, err = f.users.SetActive(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsActive)

	_, _, err = f.auth.Login(ctx, "anna@example.com", "correct horse", nil)
	assert.NoError(t, err)

	_, err = f.users.SetActive(ctx, 999, false)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
