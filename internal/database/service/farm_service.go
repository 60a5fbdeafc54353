package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gryadka/backend-go/internal/auth"
	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
)

// NewFarm is the input for FarmService.Create. A nil OwnerID means the actor.
type NewFarm struct {
	Name        string
	Description *string
	OwnerID     *uint
}

type FarmService interface {
	List(ctx context.Context) ([]models.Farm, error)
	Get(ctx context.Context, id uint) (*models.Farm, error)
	// Create is open to farmers and admins; only admins may create farms on
	// behalf of another user.
	Create(ctx context.Context, actor auth.Identity, input NewFarm) (*models.Farm, error)
}

type farmService struct {
	farmRepo repository.FarmRepository
	logger   *slog.Logger
}

func NewFarmService(farmRepo repository.FarmRepository, logger *slog.Logger) FarmService {
	return &farmService{farmRepo: farmRepo, logger: logger}
}

func (s *farmService) List(ctx context.Context) ([]models.Farm, error) {
	return s.farmRepo.List(ctx)
}

func (s *farmService) Get(ctx context.Context, id uint) (*models.Farm, error) {
	return s.farmRepo.FindByID(ctx, id)
}

func (s *farmService) Create(ctx context.Context, actor auth.Identity, input NewFarm) (*models.Farm, error) {
	if actor.Role != models.RoleFarmer && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	owner := actor.UserID
	if input.OwnerID != nil && *input.OwnerID != actor.UserID {
		if actor.Role != models.RoleAdmin {
			return nil, ErrForbidden
		}
		owner = *input.OwnerID
	}

	farm := &models.Farm{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		OwnerID:     owner,
	}
	if err := s.farmRepo.Create(ctx, farm); err != nil {
		s.logger.Error("❌ [FarmService] Failed to create farm", "error", err)
		return nil, err
	}

	s.logger.Info("✅ [FarmService] Farm created", "farm_id", farm.ID, "owner_id", owner)
	return farm, nil
}
