package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/gryadka/backend-go/internal/database/models"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	// List returns active products, newest first.
	List(ctx context.Context, limit, offset int) ([]models.Product, error)
	ListByFarm(ctx context.Context, farmID uint) ([]models.Product, error)
	// ListByOwner includes inactive products.
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Product, error)
	Update(ctx context.Context, id uint, fields map[string]any) (*models.Product, error)
	Delete(ctx context.Context, id uint) error
	SetPassport(ctx context.Context, id uint, passport models.JSONMap) error
	SetRecommendation(ctx context.Context, id uint, text string) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(product).Error; err != nil {
			return err
		}
		// gorm skips zero values of columns with a default, so false would become true.
		if !product.IsActive {
			return tx.Model(product).Update("is_active", false).Error
		}
		return nil
	})
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, limit, offset int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&products).Error
	return products, err
}

func (r *productRepository) ListByFarm(ctx context.Context, farmID uint) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("farm_id = ? AND is_active = ?", farmID, true).
		Order("created_at DESC, id DESC").
		Find(&products).Error
	return products, err
}

func (r *productRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&products).Error
	return products, err
}

func (r *productRepository) Update(ctx context.Context, id uint, fields map[string]any) (*models.Product, error) {
	if len(fields) > 0 {
		result := r.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", id).
			Updates(fields)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, ErrProductNotFound
		}
	}
	return r.FindByID(ctx, id)
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) SetPassport(ctx context.Context, id uint, passport models.JSONMap) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("passport", passport)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) SetRecommendation(ctx context.Context, id uint, text string) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("ai_recommendation", text).Error
}

var ErrProductNotFound = errors.New("product not found")
