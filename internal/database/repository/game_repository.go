package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gryadka/backend-go/internal/database/models"
)

// AdoptionDetail is an adoption with the product it belongs to.
type AdoptionDetail struct {
	models.Adoption
	ProductName      string    `json:"product_name"`
	ProductCategory  string    `json:"product_category"`
	ProductCreatedAt time.Time `json:"product_created_at"`
	ProductIsGrowing bool      `json:"product_is_growing"`
	FarmName         *string   `json:"farm_name"`
}

// ActionDetail is a user action with the shop item that caused it.
type ActionDetail struct {
	models.UserAction
	ItemName *string `json:"item_name"`
	ItemIcon *string `json:"item_icon"`
}

type GameStats struct {
	Adoptions int64 `json:"adoptions"`
	Actions   int64 `json:"actions"`
	Spent     int64 `json:"spent"`
}

type GameRepository interface {
	ListItems(ctx context.Context, category string) ([]models.GameItem, error)
	FindItem(ctx context.Context, id uint) (*models.GameItem, error)

	Balance(ctx context.Context, userID uint) (int64, error)
	// TopUp credits the account and returns the new balance.
	TopUp(ctx context.Context, userID uint, amount int64) (int64, error)

	// Adopt debits adoption.Price and stores the adoption in one transaction.
	// The debit only happens while the balance covers it.
	Adopt(ctx context.Context, adoption *models.Adoption) error
	FindAdoption(ctx context.Context, userID, productID uint) (*models.Adoption, error)
	ListAdoptions(ctx context.Context, userID uint) ([]AdoptionDetail, error)
	SetNickname(ctx context.Context, userID, adoptionID uint, nickname *string) (*models.Adoption, error)
	DeleteAdoption(ctx context.Context, userID, adoptionID uint) error

	// PerformAction debits action.Price and records the action, same as Adopt.
	PerformAction(ctx context.Context, action *models.UserAction) error
	ListActionsByProduct(ctx context.Context, productID uint, limit int) ([]ActionDetail, error)
	ListActionsByUser(ctx context.Context, userID uint, limit int) ([]ActionDetail, error)

	Stats(ctx context.Context, userID uint) (*GameStats, error)

	CountGoals(ctx context.Context) (int64, error)
	CreateGoals(ctx context.Context, goals []models.CommunityGoal) error
	// ActiveGoals returns goals running at the given instant, soonest ending first.
	ActiveGoals(ctx context.Context, at time.Time) ([]models.CommunityGoal, error)
}

type gameRepository struct {
	db *gorm.DB
}

func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepository{db: db}
}

func (r *gameRepository) ListItems(ctx context.Context, category string) ([]models.GameItem, error) {
	var items []models.GameItem
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if category != "" {
		query = query.Where("effect_type LIKE ?", category+"%")
	}
	err := query.Order("price ASC, id ASC").Find(&items).Error
	return items, err
}

func (r *gameRepository) FindItem(ctx context.Context, id uint) (*models.GameItem, error) {
	var item models.GameItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *gameRepository) Balance(ctx context.Context, userID uint) (int64, error) {
	return balanceOf(r.db.WithContext(ctx), userID)
}

func (r *gameRepository) TopUp(ctx context.Context, userID uint, amount int64) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}

		var err error
		balance, err = balanceOf(tx, userID)
		return err
	})
	return balance, err
}

func (r *gameRepository) Adopt(ctx context.Context, adoption *models.Adoption) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := debit(tx, adoption.UserID, adoption.Price); err != nil {
			return err
		}
		if err := tx.Create(adoption).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyAdopted
			}
			return err
		}

		if err := bumpGoals(tx, models.GoalAdoptions, 1, adoption.AdoptedAt); err != nil {
			return err
		}
		return bumpGoals(tx, models.GoalSpent, adoption.Price, adoption.AdoptedAt)
	})
}

func (r *gameRepository) FindAdoption(ctx context.Context, userID, productID uint) (*models.Adoption, error) {
	var adoption models.Adoption
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&adoption).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdoptionNotFound
		}
		return nil, err
	}
	return &adoption, nil
}

func (r *gameRepository) ListAdoptions(ctx context.Context, userID uint) ([]AdoptionDetail, error) {
	db := r.db.WithContext(ctx)

	var adoptions []models.Adoption
	if err := db.Where("user_id = ?", userID).Order("adopted_at DESC, id DESC").Find(&adoptions).Error; err != nil {
		return nil, err
	}
	if len(adoptions) == 0 {
		return []AdoptionDetail{}, nil
	}

	productIDs := make([]uint, 0, len(adoptions))
	for _, a := range adoptions {
		productIDs = append(productIDs, a.ProductID)
	}
	var products []models.Product
	if err := db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, err
	}

	farmIDs := make([]uint, 0, len(products))
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
		farmIDs = append(farmIDs, p.FarmID)
	}
	var farms []models.Farm
	if err := db.Where("id IN ?", farmIDs).Find(&farms).Error; err != nil {
		return nil, err
	}
	farmNames := make(map[uint]string, len(farms))
	for _, f := range farms {
		farmNames[f.ID] = f.Name
	}

	details := make([]AdoptionDetail, 0, len(adoptions))
	for _, a := range adoptions {
		// Products cascade their adoptions, so a miss is a concurrent delete.
		product, ok := byID[a.ProductID]
		if !ok {
			continue
		}
		detail := AdoptionDetail{
			Adoption:         a,
			ProductName:      product.Name,
			ProductCategory:  product.Category,
			ProductCreatedAt: product.CreatedAt,
			ProductIsGrowing: product.IsGrowing,
		}
		if name, ok := farmNames[product.FarmID]; ok {
			detail.FarmName = &name
		}
		details = append(details, detail)
	}
	return details, nil
}

func (r *gameRepository) SetNickname(ctx context.Context, userID, adoptionID uint, nickname *string) (*models.Adoption, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Adoption{}).
		Where("id = ? AND user_id = ?", adoptionID, userID).
		Update("nickname", nickname)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrAdoptionNotFound
	}

	var adoption models.Adoption
	if err := r.db.WithContext(ctx).First(&adoption, adoptionID).Error; err != nil {
		return nil, err
	}
	return &adoption, nil
}

func (r *gameRepository) DeleteAdoption(ctx context.Context, userID, adoptionID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", adoptionID, userID).
		Delete(&models.Adoption{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAdoptionNotFound
	}
	return nil
}

func (r *gameRepository) PerformAction(ctx context.Context, action *models.UserAction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := debit(tx, action.UserID, action.Price); err != nil {
			return err
		}
		if err := tx.Create(action).Error; err != nil {
			return err
		}

		if err := bumpGoals(tx, models.GoalBoosts, 1, action.CreatedAt); err != nil {
			return err
		}
		return bumpGoals(tx, models.GoalSpent, action.Price, action.CreatedAt)
	})
}

func (r *gameRepository) ListActionsByProduct(ctx context.Context, productID uint, limit int) ([]ActionDetail, error) {
	return r.listActions(ctx, "user_actions.product_id = ?", productID, limit)
}

func (r *gameRepository) ListActionsByUser(ctx context.Context, userID uint, limit int) ([]ActionDetail, error) {
	return r.listActions(ctx, "user_actions.user_id = ?", userID, limit)
}

func (r *gameRepository) listActions(ctx context.Context, where string, id uint, limit int) ([]ActionDetail, error) {
	actions := []ActionDetail{}
	err := r.db.WithContext(ctx).
		Table("user_actions").
		Select("user_actions.*, game_items.name AS item_name, game_items.icon AS item_icon").
		Joins("LEFT JOIN game_items ON game_items.id = user_actions.item_id").
		Where(where, id).
		Order("user_actions.created_at DESC, user_actions.id DESC").
		Limit(limit).
		Scan(&actions).Error
	return actions, err
}

func (r *gameRepository) Stats(ctx context.Context, userID uint) (*GameStats, error) {
	db := r.db.WithContext(ctx)
	stats := &GameStats{}

	if err := db.Model(&models.Adoption{}).Where("user_id = ?", userID).Count(&stats.Adoptions).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.UserAction{}).Where("user_id = ?", userID).Count(&stats.Actions).Error; err != nil {
		return nil, err
	}

	var adoptionSpend, actionSpend int64
	if err := db.Model(&models.Adoption{}).Where("user_id = ?", userID).Select("COALESCE(SUM(price), 0)").Scan(&adoptionSpend).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.UserAction{}).Where("user_id = ?", userID).Select("COALESCE(SUM(price), 0)").Scan(&actionSpend).Error; err != nil {
		return nil, err
	}
	stats.Spent = adoptionSpend + actionSpend
	return stats, nil
}

func (r *gameRepository) CountGoals(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommunityGoal{}).Count(&count).Error
	return count, err
}

func (r *gameRepository) CreateGoals(ctx context.Context, goals []models.CommunityGoal) error {
	return r.db.WithContext(ctx).Create(&goals).Error
}

func (r *gameRepository) ActiveGoals(ctx context.Context, at time.Time) ([]models.CommunityGoal, error) {
	var goals []models.CommunityGoal
	err := activeGoals(r.db.WithContext(ctx), at).
		Order("ends_at IS NULL, ends_at ASC, id ASC").
		Find(&goals).Error
	return goals, err
}

func balanceOf(db *gorm.DB, userID uint) (int64, error) {
	var user models.User
	if err := db.Select("id", "balance").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return user.Balance, nil
}

// debit takes amount off the balance only if the balance covers it, so
// concurrent purchases can never overdraw.
func debit(tx *gorm.DB, userID uint, amount int64) error {
	result := tx.Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func bumpGoals(tx *gorm.DB, goalType string, by int64, at time.Time) error {
	if by == 0 {
		return nil
	}
	return activeGoals(tx.Model(&models.CommunityGoal{}), at).
		Where("goal_type = ?", goalType).
		Update("current_value", gorm.Expr("current_value + ?", by)).Error
}

func activeGoals(db *gorm.DB, at time.Time) *gorm.DB {
	return db.Where("is_active = ?", true).
		Where("(starts_at IS NULL OR starts_at <= ?)", at).
		Where("(ends_at IS NULL OR ends_at >= ?)", at)
}

var (
	ErrItemNotFound        = errors.New("game item not found")
	ErrAdoptionNotFound    = errors.New("adoption not found")
	ErrAlreadyAdopted      = errors.New("product already adopted")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
