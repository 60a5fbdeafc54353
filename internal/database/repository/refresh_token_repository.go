package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gryadka/backend-go/internal/database/models"
)

// RefreshTokenRepository defines the interface for refresh token operations.
// Mutations are conditional updates on `revoked = false` so the flag only ever
// moves from false to true.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	// Rotate inserts successor and revokes currentID in one transaction.
	// It returns ErrTokenAlreadyRevoked, and persists nothing, when currentID
	// was revoked concurrently.
	Rotate(ctx context.Context, currentID uint, successor *models.RefreshToken) error
	Revoke(ctx context.Context, id uint) (bool, error)
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint) (int64, error)
}

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository instance
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *refreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&refreshToken).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return &refreshToken, nil
}

func (r *refreshTokenRepository) Rotate(ctx context.Context, currentID uint, successor *models.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(successor).Error; err != nil {
			return err
		}

		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = ?", currentID, false).
			Updates(map[string]any{
				"revoked":     true,
				"replaced_by": successor.ID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTokenAlreadyRevoked
		}

		return nil
	})
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)

	return result.RowsAffected > 0, result.Error
}

func (r *refreshTokenRepository) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked = ?", tokenHash, false).
		Update("revoked", true)

	return result.RowsAffected > 0, result.Error
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)

	return result.RowsAffected, result.Error
}

// Repository errors
var (
	ErrTokenNotFound       = errors.New("token not found")
	ErrTokenAlreadyRevoked = errors.New("token already revoked")
)
