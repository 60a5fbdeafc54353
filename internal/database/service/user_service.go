package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/security"
)

const minPasswordLength = 8

var validate = validator.New()

// NewUser is the input for self-registration and admin-created accounts.
type NewUser struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	MiddleName *string
	Role       string
}

// UserService defines the interface for account management
type UserService interface {
	// Me returns the caller's account, rejecting deactivated accounts.
	Me(ctx context.Context, userID uint) (*models.User, error)
	CreateUser(ctx context.Context, input NewUser) (*models.User, error)
	// SetActive flips the account flag. Deactivation revokes every refresh
	// token the user holds.
	SetActive(ctx context.Context, userID uint, active bool) (*models.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	ledger   RefreshTokenLedger
	hasher   *security.PasswordHasher
	logger   *slog.Logger
}

// NewUserService creates a new user service instance
func NewUserService(
	userRepo repository.UserRepository,
	ledger RefreshTokenLedger,
	hasher *security.PasswordHasher,
	logger *slog.Logger,
) UserService {
	return &userService{
		userRepo: userRepo,
		ledger:   ledger,
		hasher:   hasher,
		logger:   logger,
	}
}

func (s *userService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

func (s *userService) CreateUser(ctx context.Context, input NewUser) (*models.User, error) {
	user, err := createAccount(ctx, s.userRepo, s.hasher, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info("✅ [UserService] User created by admin", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) SetActive(ctx context.Context, userID uint, active bool) (*models.User, error) {
	s.logger.Info("👤 [UserService] Updating account status", "user_id", userID, "is_active", active)

	if err := s.userRepo.SetActive(ctx, userID, active); err != nil {
		return nil, err
	}

	if !active {
		if _, err := s.ledger.RevokeAll(ctx, userID); err != nil {
			return nil, err
		}
	}

	return s.userRepo.FindByID(ctx, userID)
}

// createAccount validates input, hashes the password and stores an active
// user. Admin accounts are never created through the API.
func createAccount(
	ctx context.Context,
	repo repository.UserRepository,
	hasher *security.PasswordHasher,
	input NewUser,
) (*models.User, error) {
	role, err := accountRole(input.Role)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(input.Email)
	if validate.Var(email, "required,email,max=320") != nil {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashed, err := hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:          email,
		HashedPassword: hashed,
		IsActive:       true,
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		MiddleName:     input.MiddleName,
		Role:           role,
	}

	if err := repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	return user, nil
}

func accountRole(requested string) (string, error) {
	switch requested {
	case "", models.RoleConsumer:
		return models.RoleConsumer, nil
	case models.RoleFarmer:
		return models.RoleFarmer, nil
	case models.RoleAdmin:
		return "", ErrAdminRoleForbidden
	default:
		return "", ErrInvalidRole
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Service errors
var (
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidRole        = errors.New("invalid role")
	ErrAdminRoleForbidden = errors.New("admin accounts cannot be created")
	ErrAccountDisabled    = errors.New("account is disabled")
)
