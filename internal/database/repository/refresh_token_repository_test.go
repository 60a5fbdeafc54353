package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/testutil"
)

func newToken(userID uint, hash string) *models.RefreshToken {
	return &models.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
}

func TestRefreshTokenRepository_CreateAndFind(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, "a@example.com", models.RoleConsumer, true)

	token := newToken(user.ID, "hash-1")
	token.DeviceInfo = testutil.Ptr("curl/8.0")
	require.NoError(t, repo.Create(ctx, token))
	assert.NotZero(t, token.ID)

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{name: "found", hash: "hash-1"},
		{name: "not found", hash: "missing", wantErr: repository.ErrTokenNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := repo.FindByHash(ctx, tt.hash)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, found)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, token.ID, found.ID)
			assert.False(t, found.Revoked)
			assert.Nil(t, found.ReplacedBy)
			require.NotNil(t, found.DeviceInfo)
			assert.Equal(t, "curl/8.0", *found.DeviceInfo)
		})
	}
}

func TestRefreshTokenRepository_DuplicateHash(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newToken(1, "same")))
	assert.Error(t, repo.Create(ctx, newToken(1, "same")))
}

func TestRefreshTokenRepository_Rotate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	ctx := context.Background()

	current := newToken(1, "current")
	require.NoError(t, repo.Create(ctx, current))

	successor := newToken(1, "successor")
	require.NoError(t, repo.Rotate(ctx, current.ID, successor))
	assert.NotZero(t, successor.ID)

	old, err := repo.FindByHash(ctx, "current")
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	require.NotNil(t, old.ReplacedBy)
	assert.Equal(t, successor.ID, *old.ReplacedBy)

	fresh, err := repo.FindByHash(ctx, "successor")
	require.NoError(t, err)
	assert.False(t, fresh.Revoked)
}

func TestRefreshTokenRepository_RotateRevokedRollsBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	ctx := context.Background()

	current := newToken(1, "current")
	require.NoError(t, repo.Create(ctx, current))
	require.NoError(t, repo.Rotate(ctx, current.ID, newToken(1, "first")))

	// A second rotation from the same, now stale, record must not persist a successor.
	err := repo.Rotate(ctx, current.ID, newToken(1, "second"))
	assert.ErrorIs(t, err, repository.ErrTokenAlreadyRevoked)

	_, err = repo.FindByHash(ctx, "second")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRefreshTokenRepository_RotateConcurrent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	ctx := context.Background()

	current := newToken(1, "current")
	require.NoError(t, repo.Create(ctx, current))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			successor := newToken(1, "successor-"+string(rune('a'+i)))
			errs[i] = repo.Rotate(ctx, current.ID, successor)
		}(i)
	}
	wg.Wait()

	var succeeded, reused int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, repository.ErrTokenAlreadyRevoked):
			reused++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, reused)

	var active int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Where("revoked = ?", false).Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestRefreshTokenRepository_Revoke(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	ctx := context.Background()

	token := newToken(1, "hash")
	require.NoError(t, repo.Create(ctx, token))

	flipped, err := repo.Revoke(ctx, token.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = repo.Revoke(ctx, token.ID)
	require.NoError(t, err)
	assert.False(t, flipped, "revoked flag only moves once")

	flipped, err = repo.RevokeByHash(ctx, "hash")
	require.NoError(t, err)
	assert.False(t, flipped)

	flipped, err = repo.RevokeByHash(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestRefreshTokenRepository_RevokeAllForUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewRefreshTokenRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newToken(1, "a")))
	require.NoError(t, repo.Create(ctx, newToken(1, "b")))
	revoked := newToken(1, "c")
	require.NoError(t, repo.Create(ctx, revoked))
	_, err := repo.Revoke(ctx, revoked.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, newToken(2, "other-user")))

	count, err := repo.RevokeAllForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	other, err := repo.FindByHash(ctx, "other-user")
	require.NoError(t, err)
	assert.False(t, other.Revoked)
}
