package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gryadka/backend-go/internal/auth"
	"github.com/gryadka/backend-go/internal/config"
	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/security"
)

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, input NewUser) (*models.User, error)
	Login(ctx context.Context, email, password string, deviceInfo *string) (*models.User, *TokenPair, error)
	// Refresh exchanges a refresh secret for a new token pair. Errors are the
	// ledger's rotation outcomes plus ErrAccountDisabled.
	Refresh(ctx context.Context, refreshSecret string) (*TokenPair, error)
	// Logout revokes the presented secret. Unknown or already revoked
	// secrets are not an error.
	Logout(ctx context.Context, refreshSecret string) error
	LogoutAll(ctx context.Context, userID uint) error
	ValidateAccessToken(tokenString string) (*auth.Identity, error)
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime in seconds
}

type authService struct {
	userRepo  repository.UserRepository
	ledger    RefreshTokenLedger
	signer    *auth.Signer
	hasher    *security.PasswordHasher
	accessTTL time.Duration
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service instance
func NewAuthService(
	userRepo repository.UserRepository,
	ledger RefreshTokenLedger,
	signer *auth.Signer,
	hasher *security.PasswordHasher,
	cfg *config.Config,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		ledger:    ledger,
		signer:    signer,
		hasher:    hasher,
		accessTTL: cfg.AccessTokenExpiration,
		logger:    logger,
	}
}

func (s *authService) Register(ctx context.Context, input NewUser) (*models.User, error) {
	s.logger.Info("📝 [AuthService] Registration attempt", "role", input.Role)

	user, err := createAccount(ctx, s.userRepo, s.hasher, input)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			s.logger.Warn("⚠️ [AuthService] Email already registered")
		}
		return nil, err
	}

	s.logger.Info("✅ [AuthService] User registered successfully", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string, deviceInfo *string) (*models.User, *TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			if err := s.hasher.VerifyDummy(ctx, password); err != nil && ctx.Err() != nil {
				return nil, nil, err
			}
			s.logger.Warn("⚠️ [AuthService] Login failed")
			return nil, nil, ErrInvalidCredentials
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, nil, err
	}

	ok, err := s.hasher.Verify(ctx, password, user.HashedPassword)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, err
		}
		s.logger.Error("❌ [AuthService] Stored password hash unusable", "user_id", user.ID, "error", err)
		ok = false
	}
	if !ok {
		s.logger.Warn("⚠️ [AuthService] Login failed", "user_id", user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.logger.Warn("⚠️ [AuthService] Login to disabled account", "user_id", user.ID)
		return nil, nil, ErrAccountDisabled
	}

	accessToken, err := s.signer.Mint(user.ID, user.Role, s.accessTTL)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to sign access token", "error", err)
		return nil, nil, err
	}

	refreshSecret, _, err := s.ledger.Issue(ctx, user.ID, deviceInfo)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("✅ [AuthService] User logged in successfully", "user_id", user.ID)
	return user, s.pair(accessToken, refreshSecret), nil
}

func (s *authService) Refresh(ctx context.Context, refreshSecret string) (*TokenPair, error) {
	if refreshSecret == "" {
		return nil, ErrInvalidToken
	}

	rotation, err := s.ledger.Rotate(ctx, refreshSecret)
	if err != nil {
		return nil, err
	}

	// Roles may change between rotations; always sign the current one.
	user, err := s.userRepo.FindByID(ctx, rotation.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		if _, err := s.ledger.RevokeAll(ctx, user.ID); err != nil {
			return nil, err
		}
		return nil, ErrAccountDisabled
	}

	accessToken, err := s.signer.Mint(user.ID, user.Role, s.accessTTL)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to sign access token", "error", err)
		return nil, err
	}

	s.logger.Info("✅ [AuthService] Token refreshed successfully", "user_id", user.ID)
	return s.pair(accessToken, rotation.Secret), nil
}

func (s *authService) Logout(ctx context.Context, refreshSecret string) error {
	if err := s.ledger.Revoke(ctx, refreshSecret); err != nil {
		s.logger.Error("❌ [AuthService] Failed to revoke refresh token", "error", err)
		return err
	}

	s.logger.Info("👋 [AuthService] User logged out")
	return nil
}

func (s *authService) LogoutAll(ctx context.Context, userID uint) error {
	_, err := s.ledger.RevokeAll(ctx, userID)
	return err
}

func (s *authService) ValidateAccessToken(tokenString string) (*auth.Identity, error) {
	return s.signer.Verify(tokenString)
}

func (s *authService) pair(accessToken, refreshSecret string) *TokenPair {
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshSecret,
		ExpiresIn:    int64(s.accessTTL / time.Second),
	}
}

// Service errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
)
