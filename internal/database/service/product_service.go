package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gryadka/backend-go/internal/auth"
	"github.com/gryadka/backend-go/internal/config"
	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/worker"
)

// Recommender produces growing advice for a product.
type Recommender interface {
	Recommend(ctx context.Context, product *models.Product) (string, error)
}

const (
	defaultProductPageSize = 50
	maxProductPageSize     = 200
)

// NewProduct is the input for ProductService.Create. A nil IsActive means active.
type NewProduct struct {
	FarmID           uint
	Name             string
	Category         string
	ShortDescription *string
	Passport         map[string]any
	IsActive         *bool
	IsGrowing        bool
}

// ProductUpdate carries the fields to change; nil fields are left alone.
type ProductUpdate struct {
	FarmID           *uint
	Name             *string
	Category         *string
	ShortDescription *string
	IsActive         *bool
	IsGrowing        *bool
}

type PassportInput struct {
	Origin         *string
	Variety        *string
	HarvestDate    *string
	Certifications []map[string]any
	Data           map[string]any
}

type ProductService interface {
	// Create stores the product and schedules a recommendation in the
	// background. The recommendation never affects the result.
	Create(ctx context.Context, actor auth.Identity, input NewProduct) (*models.Product, error)
	// Get hides inactive products.
	Get(ctx context.Context, id uint) (*models.Product, error)
	List(ctx context.Context, limit, offset int) ([]models.Product, error)
	ListByFarm(ctx context.Context, farmID uint) ([]models.Product, error)
	ListMine(ctx context.Context, actor auth.Identity) ([]models.Product, error)
	Update(ctx context.Context, actor auth.Identity, id uint, input ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, actor auth.Identity, id uint) error
	GetPassport(ctx context.Context, id uint) (models.JSONMap, error)
	// SetPassport replaces the passport. A harvested product without advice
	// gets a recommendation scheduled.
	SetPassport(ctx context.Context, actor auth.Identity, id uint, input PassportInput) (models.JSONMap, error)
}

type productService struct {
	productRepo repository.ProductRepository
	farmRepo    repository.FarmRepository
	recommender Recommender // nil disables recommendations
	pool        *worker.Pool
	timeout     time.Duration
	logger      *slog.Logger
}

func NewProductService(
	productRepo repository.ProductRepository,
	farmRepo repository.FarmRepository,
	recommender Recommender,
	pool *worker.Pool,
	cfg *config.Config,
	logger *slog.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		farmRepo:    farmRepo,
		recommender: recommender,
		pool:        pool,
		timeout:     cfg.RecommendationTimeout,
		logger:      logger,
	}
}

func (s *productService) Create(ctx context.Context, actor auth.Identity, input NewProduct) (*models.Product, error) {
	if actor.Role != models.RoleFarmer && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	farm, err := s.farmRepo.FindByID(ctx, input.FarmID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleFarmer && farm.OwnerID != actor.UserID {
		return nil, ErrForbidden
	}

	product := &models.Product{
		FarmID:           farm.ID,
		OwnerID:          farm.OwnerID,
		Name:             strings.TrimSpace(input.Name),
		Category:         strings.TrimSpace(input.Category),
		ShortDescription: input.ShortDescription,
		Passport:         models.JSONMap(input.Passport),
		IsActive:         input.IsActive == nil || *input.IsActive,
		IsGrowing:        input.IsGrowing,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error("❌ [ProductService] Failed to create product", "error", err)
		return nil, err
	}

	s.logger.Info("✅ [ProductService] Product created", "product_id", product.ID, "farm_id", farm.ID)
	s.scheduleRecommendation(*product)
	return product, nil
}

func (s *productService) Get(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (s *productService) List(ctx context.Context, limit, offset int) ([]models.Product, error) {
	if limit <= 0 {
		limit = defaultProductPageSize
	}
	limit = min(limit, maxProductPageSize)
	offset = max(offset, 0)
	return s.productRepo.List(ctx, limit, offset)
}

func (s *productService) ListByFarm(ctx context.Context, farmID uint) ([]models.Product, error) {
	if _, err := s.farmRepo.FindByID(ctx, farmID); err != nil {
		return nil, err
	}
	return s.productRepo.ListByFarm(ctx, farmID)
}

func (s *productService) ListMine(ctx context.Context, actor auth.Identity) ([]models.Product, error) {
	return s.productRepo.ListByOwner(ctx, actor.UserID)
}

func (s *productService) Update(ctx context.Context, actor auth.Identity, id uint, input ProductUpdate) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrProductFieldEmpty
		}
		fields["name"] = name
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, ErrProductFieldEmpty
		}
		fields["category"] = category
	}
	if input.ShortDescription != nil {
		fields["short_description"] = *input.ShortDescription
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}
	if input.IsGrowing != nil {
		fields["is_growing"] = *input.IsGrowing
	}
	if input.FarmID != nil && *input.FarmID != product.FarmID {
		farm, err := s.farmRepo.FindByID(ctx, *input.FarmID)
		if errors.Is(err, repository.ErrFarmNotFound) {
			return nil, ErrTargetFarmNotFound
		}
		if err != nil {
			return nil, err
		}
		if actor.Role != models.RoleAdmin && farm.OwnerID != actor.UserID {
			return nil, ErrForbidden
		}
		fields["farm_id"] = farm.ID
		fields["owner_id"] = farm.OwnerID
	}

	updated, err := s.productRepo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.logger.Info("✅ [ProductService] Product updated", "product_id", id, "by", actor.UserID)
	return updated, nil
}

func (s *productService) Delete(ctx context.Context, actor auth.Identity, id uint) error {
	if _, err := s.ownedProduct(ctx, actor, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("🗑️ [ProductService] Product deleted", "product_id", id, "by", actor.UserID)
	return nil
}

func (s *productService) GetPassport(ctx context.Context, id uint) (models.JSONMap, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(product.Passport) == 0 {
		return nil, ErrPassportNotFound
	}
	return product.Passport, nil
}

func (s *productService) SetPassport(ctx context.Context, actor auth.Identity, id uint, input PassportInput) (models.JSONMap, error) {
	product, err := s.ownedProduct(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	passport, err := buildPassport(input)
	if err != nil {
		return nil, err
	}
	if err := s.productRepo.SetPassport(ctx, id, passport); err != nil {
		return nil, err
	}
	s.logger.Info("✅ [ProductService] Passport stored", "product_id", id)

	if !product.IsGrowing && product.AIRecommendation == nil {
		product.Passport = passport
		s.scheduleRecommendation(*product)
	}
	return passport, nil
}

// ownedProduct loads a product the actor may change: farmers their own, admins any.
func (s *productService) ownedProduct(ctx context.Context, actor auth.Identity, id uint) (*models.Product, error) {
	if actor.Role != models.RoleFarmer && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleFarmer && product.OwnerID != actor.UserID {
		return nil, ErrForbidden
	}
	return product, nil
}

var harvestDateLayouts = []string{time.DateOnly, "02.01.2006", time.RFC3339}

func buildPassport(input PassportInput) (models.JSONMap, error) {
	passport := models.JSONMap{}
	if v := trimmed(input.Origin); v != "" {
		passport["origin"] = v
	}
	if v := trimmed(input.Variety); v != "" {
		passport["variety"] = v
	}
	if v := trimmed(input.HarvestDate); v != "" {
		date, err := parseHarvestDate(v)
		if err != nil {
			return nil, err
		}
		passport["harvest_date"] = date
	}

	certifications := make([]any, 0, len(input.Certifications))
	for _, cert := range input.Certifications {
		name, _ := cert["name"].(string)
		if strings.TrimSpace(name) == "" {
			return nil, ErrInvalidCertification
		}
		certifications = append(certifications, cert)
	}
	passport["certifications"] = certifications

	data := input.Data
	if data == nil {
		data = map[string]any{}
	}
	passport["data"] = data
	return passport, nil
}

// parseHarvestDate accepts ISO dates and DD.MM.YYYY and returns YYYY-MM-DD.
func parseHarvestDate(value string) (string, error) {
	for _, layout := range harvestDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(time.DateOnly), nil
		}
	}
	return "", ErrInvalidHarvestDate
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func (s *productService) scheduleRecommendation(product models.Product) {
	if s.recommender == nil || s.pool == nil {
		return
	}

	s.pool.SubmitWithTimeout("recommendation", s.timeout, func(ctx context.Context) {
		text, err := s.recommender.Recommend(ctx, &product)
		if err != nil {
			s.logger.Warn("⚠️ [ProductService] Recommendation failed", "product_id", product.ID, "error", err)
			return
		}
		if text == "" {
			return
		}

		if err := s.productRepo.SetRecommendation(ctx, product.ID, text); err != nil {
			s.logger.Warn("⚠️ [ProductService] Failed to store recommendation", "product_id", product.ID, "error", err)
			return
		}
		s.logger.Info("🤖 [ProductService] Recommendation stored", "product_id", product.ID)
	})
}

var (
	ErrTargetFarmNotFound   = errors.New("target farm not found")
	ErrProductFieldEmpty    = errors.New("name and category must not be empty")
	ErrPassportNotFound     = errors.New("passport not found")
	ErrInvalidHarvestDate   = errors.New("harvest_date must be YYYY-MM-DD or DD.MM.YYYY")
	ErrInvalidCertification = errors.New("every certification needs a name")
)
