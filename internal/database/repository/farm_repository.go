package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gryadka/backend-go/internal/database/models"
)

type FarmRepository interface {
	Create(ctx context.Context, farm *models.Farm) error
	FindByID(ctx context.Context, id uint) (*models.Farm, error)
	List(ctx context.Context) ([]models.Farm, error)
}

type farmRepository struct {
	db *gorm.DB
}

func NewFarmRepository(db *gorm.DB) FarmRepository {
	return &farmRepository{db: db}
}

func (r *farmRepository) Create(ctx context.Context, farm *models.Farm) error {
	return r.db.WithContext(ctx).Create(farm).Error
}

func (r *farmRepository) FindByID(ctx context.Context, id uint) (*models.Farm, error) {
	var farm models.Farm
	if err := r.db.WithContext(ctx).First(&farm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFarmNotFound
		}
		return nil, err
	}
	return &farm, nil
}

func (r *farmRepository) List(ctx context.Context) ([]models.Farm, error) {
	var farms []models.Farm
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&farms).Error
	return farms, err
}

var ErrFarmNotFound = errors.New("farm not found")
