package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gryadka/backend-go/internal/config"
	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/security"
)

// RefreshTokenLedger issues, rotates and revokes refresh secrets.
//
// Rotate returns exactly one of nil, ErrInvalidToken, ErrRefreshTokenExpired
// or ErrRefreshTokenReused for outcomes decided by the ledger; any other error
// comes from the store.
type RefreshTokenLedger interface {
	Issue(ctx context.Context, userID uint, deviceInfo *string) (string, *models.RefreshToken, error)
	Rotate(ctx context.Context, secret string) (*Rotation, error)
	Revoke(ctx context.Context, secret string) error
	RevokeAll(ctx context.Context, userID uint) (int64, error)
}

// Rotation is the result of a successful Rotate.
type Rotation struct {
	UserID uint
	Secret string
	Record *models.RefreshToken
}

type refreshTokenLedger struct {
	repo          repository.RefreshTokenRepository
	digester      *security.Digester
	ttl           time.Duration
	secretBytes   int
	revokeOnReuse bool
	logger        *slog.Logger
	now           func() time.Time
}

// NewRefreshTokenLedger creates a ledger keyed with cfg.RefreshTokenSecret.
func NewRefreshTokenLedger(
	repo repository.RefreshTokenRepository,
	cfg *config.Config,
	logger *slog.Logger,
) RefreshTokenLedger {
	return &refreshTokenLedger{
		repo:          repo,
		digester:      security.NewDigester(cfg.RefreshTokenSecret),
		ttl:           cfg.RefreshTokenExpiration,
		secretBytes:   cfg.RefreshTokenBytes,
		revokeOnReuse: cfg.RevokeOnReuse,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (l *refreshTokenLedger) Issue(ctx context.Context, userID uint, deviceInfo *string) (string, *models.RefreshToken, error) {
	secret, record, err := l.newRecord(userID, deviceInfo)
	if err != nil {
		return "", nil, err
	}

	if err := l.repo.Create(ctx, record); err != nil {
		l.logger.Error("❌ [RefreshTokenLedger] Failed to store refresh token", "user_id", userID, "error", err)
		return "", nil, err
	}

	l.logger.Debug("🔑 [RefreshTokenLedger] Refresh token issued", "user_id", userID, "token_id", record.ID)
	return secret, record, nil
}

func (l *refreshTokenLedger) Rotate(ctx context.Context, secret string) (*Rotation, error) {
	current, err := l.repo.FindByHash(ctx, l.digester.Sum(secret))
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if current.Revoked {
		return nil, l.reuseDetected(ctx, current)
	}

	if current.IsExpired(l.now()) {
		if _, err := l.repo.Revoke(ctx, current.ID); err != nil {
			l.logger.Error("❌ [RefreshTokenLedger] Failed to revoke expired token", "token_id", current.ID, "error", err)
			return nil, err
		}
		l.logger.Info("⌛ [RefreshTokenLedger] Expired refresh token presented", "user_id", current.UserID, "token_id", current.ID)
		return nil, ErrRefreshTokenExpired
	}

	newSecret, successor, err := l.newRecord(current.UserID, current.DeviceInfo)
	if err != nil {
		return nil, err
	}

	if err := l.repo.Rotate(ctx, current.ID, successor); err != nil {
		if errors.Is(err, repository.ErrTokenAlreadyRevoked) {
			// Lost a race with a concurrent rotation of the same record.
			return nil, l.reuseDetected(ctx, current)
		}
		l.logger.Error("❌ [RefreshTokenLedger] Rotation failed", "token_id", current.ID, "error", err)
		return nil, err
	}

	l.logger.Debug("🔄 [RefreshTokenLedger] Refresh token rotated",
		"user_id", current.UserID,
		"token_id", current.ID,
		"successor_id", successor.ID,
	)

	return &Rotation{
		UserID: current.UserID,
		Secret: newSecret,
		Record: successor,
	}, nil
}

func (l *refreshTokenLedger) Revoke(ctx context.Context, secret string) error {
	if secret == "" {
		return nil
	}
	_, err := l.repo.RevokeByHash(ctx, l.digester.Sum(secret))
	return err
}

func (l *refreshTokenLedger) RevokeAll(ctx context.Context, userID uint) (int64, error) {
	count, err := l.repo.RevokeAllForUser(ctx, userID)
	if err != nil {
		l.logger.Error("❌ [RefreshTokenLedger] Failed to revoke sessions", "user_id", userID, "error", err)
		return 0, err
	}

	l.logger.Info("🔒 [RefreshTokenLedger] Sessions revoked", "user_id", userID, "count", count)
	return count, nil
}

// reuseDetected always returns ErrRefreshTokenReused, cascading first when
// configured. A failed cascade is logged; the caller still sees reuse.
func (l *refreshTokenLedger) reuseDetected(ctx context.Context, token *models.RefreshToken) error {
	l.logger.Warn("🚨 [RefreshTokenLedger] Refresh token reuse detected",
		"user_id", token.UserID,
		"token_id", token.ID,
		"cascade", l.revokeOnReuse,
	)

	if l.revokeOnReuse {
		_, _ = l.RevokeAll(ctx, token.UserID)
	}

	return ErrRefreshTokenReused
}

func (l *refreshTokenLedger) newRecord(userID uint, deviceInfo *string) (string, *models.RefreshToken, error) {
	secret, err := security.GenerateSecret(l.secretBytes)
	if err != nil {
		return "", nil, err
	}

	now := l.now()
	return secret, &models.RefreshToken{
		UserID:     userID,
		TokenHash:  l.digester.Sum(secret),
		CreatedAt:  now,
		ExpiresAt:  now.Add(l.ttl),
		Revoked:    false,
		DeviceInfo: deviceInfo,
	}, nil
}

// Ledger errors
var (
	ErrInvalidToken        = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenReused  = errors.New("refresh token reuse detected")
)
