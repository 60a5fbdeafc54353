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
)

const (
	defaultProductActionsLimit = 50
	defaultMyActionsLimit      = 100
	maxActionsLimit            = 200
	recentGrowthActions        = 10
	defaultGoalDuration        = 7 * 24 * time.Hour
)

// AdoptionView is an adoption with its growth progress.
type AdoptionView struct {
	repository.AdoptionDetail
	DaysGrowing   int `json:"days_growing"`
	GrowthPercent int `json:"growth_percent"`
}

type GoalView struct {
	models.CommunityGoal
	Progress  int  `json:"progress"`
	Completed bool `json:"completed"`
}

type GrowthView struct {
	ProductID        uint                      `json:"product_id"`
	ProductName      string                    `json:"product_name"`
	DaysGrowing      int                       `json:"days_growing"`
	DaysTotal        int                       `json:"days_total"`
	GrowthPercent    int                       `json:"growth_percent"`
	IsAdopted        bool                      `json:"is_adopted"`
	AdoptionNickname *string                   `json:"adoption_nickname"`
	RecentActions    []repository.ActionDetail `json:"recent_actions"`
}

type GameStatsView struct {
	repository.GameStats
	Balance int64 `json:"balance"`
}

// GameService runs the plant adoption game. Every purchase is paid from the
// user's balance, which never goes negative.
type GameService interface {
	ListItems(ctx context.Context, category string) ([]models.GameItem, error)
	GetItem(ctx context.Context, id uint) (*models.GameItem, error)

	Balance(ctx context.Context, actor auth.Identity) (int64, error)
	TopUp(ctx context.Context, actor auth.Identity, amount int64) (int64, error)
	Stats(ctx context.Context, actor auth.Identity) (*GameStatsView, error)

	AdoptionPrice() int64
	Adopt(ctx context.Context, actor auth.Identity, productID uint, nickname *string) (*models.Adoption, error)
	ListAdoptions(ctx context.Context, actor auth.Identity) ([]AdoptionView, error)
	RenameAdoption(ctx context.Context, actor auth.Identity, adoptionID uint, nickname *string) (*models.Adoption, error)
	DeleteAdoption(ctx context.Context, actor auth.Identity, adoptionID uint) error

	PerformAction(ctx context.Context, actor auth.Identity, productID, itemID uint) (*repository.ActionDetail, error)
	ProductActions(ctx context.Context, productID uint, limit int) ([]repository.ActionDetail, error)
	MyActions(ctx context.Context, actor auth.Identity, limit int) ([]repository.ActionDetail, error)

	// CommunityGoals lists running goals, creating the default weekly pair
	// the first time no goal exists at all.
	CommunityGoals(ctx context.Context) ([]GoalView, error)
	Growth(ctx context.Context, actor auth.Identity, productID uint) (*GrowthView, error)
}

type gameService struct {
	gameRepo      repository.GameRepository
	productRepo   repository.ProductRepository
	adoptionPrice int64
	maxTopUp      int64
	growthDays    int
	logger        *slog.Logger
	now           func() time.Time
}

func NewGameService(
	gameRepo repository.GameRepository,
	productRepo repository.ProductRepository,
	cfg *config.Config,
	logger *slog.Logger,
) GameService {
	return &gameService{
		gameRepo:      gameRepo,
		productRepo:   productRepo,
		adoptionPrice: cfg.GameAdoptionPrice,
		maxTopUp:      cfg.GameMaxTopUp,
		growthDays:    int(cfg.GameGrowthDays),
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *gameService) ListItems(ctx context.Context, category string) ([]models.GameItem, error) {
	return s.gameRepo.ListItems(ctx, strings.ToLower(strings.TrimSpace(category)))
}

func (s *gameService) GetItem(ctx context.Context, id uint) (*models.GameItem, error) {
	return s.gameRepo.FindItem(ctx, id)
}

func (s *gameService) Balance(ctx context.Context, actor auth.Identity) (int64, error) {
	return s.gameRepo.Balance(ctx, actor.UserID)
}

func (s *gameService) TopUp(ctx context.Context, actor auth.Identity, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if amount > s.maxTopUp {
		return 0, ErrTopUpTooLarge
	}

	balance, err := s.gameRepo.TopUp(ctx, actor.UserID, amount)
	if err != nil {
		return 0, err
	}
	s.logger.Info("💰 [GameService] Balance topped up", "user_id", actor.UserID, "amount", amount, "balance", balance)
	return balance, nil
}

func (s *gameService) Stats(ctx context.Context, actor auth.Identity) (*GameStatsView, error) {
	stats, err := s.gameRepo.Stats(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	balance, err := s.gameRepo.Balance(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &GameStatsView{GameStats: *stats, Balance: balance}, nil
}

func (s *gameService) AdoptionPrice() int64 {
	return s.adoptionPrice
}

func (s *gameService) Adopt(ctx context.Context, actor auth.Identity, productID uint, nickname *string) (*models.Adoption, error) {
	if _, err := s.growingProduct(ctx, productID); err != nil {
		return nil, err
	}

	_, err := s.gameRepo.FindAdoption(ctx, actor.UserID, productID)
	if err == nil {
		return nil, repository.ErrAlreadyAdopted
	}
	if !errors.Is(err, repository.ErrAdoptionNotFound) {
		return nil, err
	}

	adoption := &models.Adoption{
		UserID:    actor.UserID,
		ProductID: productID,
		Nickname:  cleanNickname(nickname),
		Price:     s.adoptionPrice,
		AdoptedAt: s.now(),
	}
	if err := s.gameRepo.Adopt(ctx, adoption); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			s.logger.Info("⚠️ [GameService] Adoption declined, balance too low", "user_id", actor.UserID, "product_id", productID)
		}
		return nil, err
	}

	s.logger.Info("🌱 [GameService] Product adopted", "user_id", actor.UserID, "product_id", productID, "price", adoption.Price)
	return adoption, nil
}

func (s *gameService) ListAdoptions(ctx context.Context, actor auth.Identity) ([]AdoptionView, error) {
	details, err := s.gameRepo.ListAdoptions(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]AdoptionView, 0, len(details))
	for _, d := range details {
		days, percent := s.growth(d.ProductCreatedAt)
		views = append(views, AdoptionView{AdoptionDetail: d, DaysGrowing: days, GrowthPercent: percent})
	}
	return views, nil
}

func (s *gameService) RenameAdoption(ctx context.Context, actor auth.Identity, adoptionID uint, nickname *string) (*models.Adoption, error) {
	return s.gameRepo.SetNickname(ctx, actor.UserID, adoptionID, cleanNickname(nickname))
}

// DeleteAdoption ends the adoption. The price is not refunded.
func (s *gameService) DeleteAdoption(ctx context.Context, actor auth.Identity, adoptionID uint) error {
	if err := s.gameRepo.DeleteAdoption(ctx, actor.UserID, adoptionID); err != nil {
		return err
	}
	s.logger.Info("🗑️ [GameService] Adoption removed", "user_id", actor.UserID, "adoption_id", adoptionID)
	return nil
}

func (s *gameService) PerformAction(ctx context.Context, actor auth.Identity, productID, itemID uint) (*repository.ActionDetail, error) {
	item, err := s.gameRepo.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, repository.ErrItemNotFound
	}
	if _, err := s.growingProduct(ctx, productID); err != nil {
		return nil, err
	}

	action := &models.UserAction{
		UserID:     actor.UserID,
		ProductID:  productID,
		ActionType: item.EffectType,
		ItemID:     &item.ID,
		Price:      item.Price,
		CreatedAt:  s.now(),
	}
	if err := s.gameRepo.PerformAction(ctx, action); err != nil {
		return nil, err
	}

	s.logger.Info("✅ [GameService] Boost applied", "user_id", actor.UserID, "product_id", productID, "item", item.EffectType, "price", item.Price)
	return &repository.ActionDetail{UserAction: *action, ItemName: &item.Name, ItemIcon: &item.Icon}, nil
}

func (s *gameService) ProductActions(ctx context.Context, productID uint, limit int) ([]repository.ActionDetail, error) {
	return s.gameRepo.ListActionsByProduct(ctx, productID, clampLimit(limit, defaultProductActionsLimit))
}

func (s *gameService) MyActions(ctx context.Context, actor auth.Identity, limit int) ([]repository.ActionDetail, error) {
	return s.gameRepo.ListActionsByUser(ctx, actor.UserID, clampLimit(limit, defaultMyActionsLimit))
}

func (s *gameService) CommunityGoals(ctx context.Context) ([]GoalView, error) {
	if err := s.ensureDefaultGoals(ctx); err != nil {
		return nil, err
	}

	goals, err := s.gameRepo.ActiveGoals(ctx, s.now())
	if err != nil {
		return nil, err
	}

	views := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		progress := 0
		if g.TargetValue > 0 {
			progress = int(min(max(g.CurrentValue*100/g.TargetValue, 0), 100))
		}
		views = append(views, GoalView{
			CommunityGoal: g,
			Progress:      progress,
			Completed:     g.CurrentValue >= g.TargetValue,
		})
	}
	return views, nil
}

func (s *gameService) Growth(ctx context.Context, actor auth.Identity, productID uint) (*GrowthView, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	days, percent := s.growth(product.CreatedAt)
	view := &GrowthView{
		ProductID:     product.ID,
		ProductName:   product.Name,
		DaysGrowing:   days,
		DaysTotal:     s.growthDays,
		GrowthPercent: percent,
	}

	adoption, err := s.gameRepo.FindAdoption(ctx, actor.UserID, productID)
	switch {
	case err == nil:
		view.IsAdopted = true
		view.AdoptionNickname = adoption.Nickname
	case !errors.Is(err, repository.ErrAdoptionNotFound):
		return nil, err
	}

	view.RecentActions, err = s.gameRepo.ListActionsByProduct(ctx, productID, recentGrowthActions)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *gameService) ensureDefaultGoals(ctx context.Context) error {
	count, err := s.gameRepo.CountGoals(ctx)
	if err != nil || count > 0 {
		return err
	}

	start := s.now()
	end := start.Add(defaultGoalDuration)
	goals := []models.CommunityGoal{
		{
			Title:       "Buy 20 boosts together",
			Description: strPtr("Help the plants grow, every boost counts"),
			GoalType:    models.GoalBoosts,
			TargetValue: 20,
			Reward:      strPtr("A gardener badge for every participant"),
			StartsAt:    &start,
			EndsAt:      &end,
			IsActive:    true,
		},
		{
			Title:       "Spend 3000 on plant care",
			Description: strPtr("Invest in looking after the beds"),
			GoalType:    models.GoalSpent,
			TargetValue: 3000,
			Reward:      strPtr("A rare profile sticker"),
			StartsAt:    &start,
			EndsAt:      &end,
			IsActive:    true,
		},
	}
	if err := s.gameRepo.CreateGoals(ctx, goals); err != nil {
		return err
	}
	s.logger.Info("✅ [GameService] Default community goals created", "ends_at", end)
	return nil
}

// growingProduct returns an active product that is still growing.
func (s *gameService) growingProduct(ctx context.Context, productID uint) (*models.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, repository.ErrProductNotFound
	}
	if !product.IsGrowing {
		return nil, ErrProductNotGrowing
	}
	return product, nil
}

// growth reports whole days since planting and the season progress in percent.
func (s *gameService) growth(plantedAt time.Time) (days, percent int) {
	days = max(int(s.now().Sub(plantedAt)/(24*time.Hour)), 0)
	percent = min(days*100/s.growthDays, 100)
	return days, percent
}

func cleanNickname(nickname *string) *string {
	if nickname == nil {
		return nil
	}
	name := strings.TrimSpace(*nickname)
	if name == "" {
		return nil
	}
	return &name
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxActionsLimit)
}

func strPtr(s string) *string {
	return &s
}

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrTopUpTooLarge     = errors.New("amount exceeds the top-up limit")
	ErrProductNotGrowing = errors.New("only growing products can be adopted or boosted")
)
