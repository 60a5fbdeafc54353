package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/testutil"
)

func seedPlayer(t *testing.T, db *gorm.DB, email string, balance int64) *models.User {
	t.Helper()
	user := testutil.SeedUser(t, db, email, models.RoleConsumer, true)
	require.NoError(t, db.Model(user).Update("balance", balance).Error)
	return user
}

func seedGrowing(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	product := &models.Product{FarmID: 1, OwnerID: 1, Name: name, Category: "vegetables", IsActive: true, IsGrowing: true}
	require.NoError(t, db.Create(product).Error)
	return product
}

func balanceOf(t *testing.T, repo repository.GameRepository, userID uint) int64 {
	t.Helper()
	balance, err := repo.Balance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

func TestGameRepository_Items(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewGameRepository(db)
	ctx := context.Background()

	items := []models.GameItem{
		{Name: "Fertilizer", Price: 30, Icon: "leaf", EffectType: "fertilizer_organic", IsActive: true},
		{Name: "Watering", Price: 10, Icon: "droplet", EffectType: "water_basic", IsActive: true},
		{Name: "Drip", Price: 25, Icon: "droplets", EffectType: "water_drip", IsActive: true},
	}
	require.NoError(t, db.Create(&items).Error)
	retired := &models.GameItem{Name: "Old", Price: 1, Icon: "x", EffectType: "water_old", IsActive: true}
	require.NoError(t, db.Create(retired).Error)
	require.NoError(t, db.Model(retired).Update("is_active", false).Error)

	tests := []struct {
		name     string
		category string
		want     []string
	}{
		{name: "all, cheapest first", want: []string{"Watering", "Drip", "Fertilizer"}},
		{name: "by category prefix", category: "water", want: []string{"Watering", "Drip"}},
		{name: "unknown category", category: "magic", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListItems(ctx, tt.category)
			require.NoError(t, err)
			var names []string
			for _, item := range got {
				names = append(names, item.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	found, err := repo.FindItem(ctx, retired.ID)
	require.NoError(t, err)
	assert.False(t, found.IsActive, "retired items can still be looked up")

	_, err = repo.FindItem(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrItemNotFound)
}

func TestGameRepository_TopUp(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewGameRepository(db)
	user := seedPlayer(t, db, "player@example.com", 0)

	balance, err := repo.TopUp(context.Background(), user.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	balance, err = repo.TopUp(context.Background(), user.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, int64(750), balance)

	_, err = repo.TopUp(context.Background(), 999, 10)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	_, err = repo.Balance(context.Background(), 999)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestGameRepository_Adopt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		balance     int64
		price       int64
		wantErr     error
		wantBalance int64
	}{
		{name: "exact balance", balance: 300, price: 300, wantBalance: 0},
		{name: "plenty", balance: 1000, price: 300, wantBalance: 700},
		{name: "one short", balance: 299, price: 300, wantErr: repository.ErrInsufficientBalance, wantBalance: 299},
		{name: "free", balance: 0, price: 0, wantBalance: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewTestDB(t)
			repo := repository.NewGameRepository(db)
			user := seedPlayer(t, db, "player@example.com", tt.balance)
			product := seedGrowing(t, db, "Tomato")

			err := repo.Adopt(context.Background(), &models.Adoption{UserID: user.ID, ProductID: product.ID, Price: tt.price, AdoptedAt: now})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, findErr := repo.FindAdoption(context.Background(), user.ID, product.ID)
				assert.ErrorIs(t, findErr, repository.ErrAdoptionNotFound, "a declined adoption leaves nothing behind")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantBalance, balanceOf(t, repo, user.ID))
		})
	}

	t.Run("second adoption of the same product is refunded", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		repo := repository.NewGameRepository(db)
		user := seedPlayer(t, db, "player@example.com", 1000)
		product := seedGrowing(t, db, "Tomato")

		require.NoError(t, repo.Adopt(context.Background(), &models.Adoption{UserID: user.ID, ProductID: product.ID, Price: 300, AdoptedAt: now}))
		err := repo.Adopt(context.Background(), &models.Adoption{UserID: user.ID, ProductID: product.ID, Price: 300, AdoptedAt: now})
		assert.ErrorIs(t, err, repository.ErrAlreadyAdopted)
		assert.Equal(t, int64(700), balanceOf(t, repo, user.ID))
	})
}

func TestGameRepository_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewGameRepository(db)
	user := seedPlayer(t, db, "player@example.com", 300)
	first := seedGrowing(t, db, "Tomato")
	second := seedGrowing(t, db, "Cucumber")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, product := range []*models.Product{first, second} {
		wg.Add(1)
		go func(i int, productID uint) {
			defer wg.Done()
			errs[i] = repo.Adopt(context.Background(), &models.Adoption{
				UserID: user.ID, ProductID: productID, Price: 300, AdoptedAt: time.Now().UTC(),
			})
		}(i, product.ID)
	}
	wg.Wait()

	var succeeded, declined int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, repository.ErrInsufficientBalance):
			declined++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, declined)
	assert.Equal(t, int64(0), balanceOf(t, repo, user.ID))

	adoptions, err := repo.ListAdoptions(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, adoptions, 1)
}

func TestGameRepository_PerformActionAndHistory(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewGameRepository(db)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	user := seedPlayer(t, db, "player@example.com", 45)
	other := seedPlayer(t, db, "other@example.com", 100)
	product := seedGrowing(t, db, "Tomato")
	item := &models.GameItem{Name: "Watering", Price: 20, Icon: "droplet", EffectType: "water_basic", IsActive: true}
	require.NoError(t, db.Create(item).Error)

	act := func(userID uint, at time.Time) error {
		return repo.PerformAction(ctx, &models.UserAction{
			UserID: userID, ProductID: product.ID, ActionType: item.EffectType, ItemID: &item.ID, Price: item.Price, CreatedAt: at,
		})
	}
	require.NoError(t, act(user.ID, base))
	require.NoError(t, act(user.ID, base.Add(time.Minute)))
	assert.ErrorIs(t, act(user.ID, base.Add(2*time.Minute)), repository.ErrInsufficientBalance)
	require.NoError(t, act(other.ID, base.Add(3*time.Minute)))
	assert.Equal(t, int64(5), balanceOf(t, repo, user.ID))

	history, err := repo.ListActionsByProduct(ctx, product.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, other.ID, history[0].UserID, "newest first")
	require.NotNil(t, history[0].ItemName)
	assert.Equal(t, "Watering", *history[0].ItemName)
	assert.Equal(t, "droplet", *history[0].ItemIcon)

	limited, err := repo.ListActionsByProduct(ctx, product.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	mine, err := repo.ListActionsByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	stats, err := repo.Stats(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.GameStats{Adoptions: 0, Actions: 2, Spent: 40}, *stats)
}

func TestGameRepository_Adoptions(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewGameRepository(db)
	ctx := context.Background()

	farm := &models.Farm{Name: "Green Valley", OwnerID: 1}
	require.NoError(t, db.Create(farm).Error)
	user := seedPlayer(t, db, "player@example.com", 1000)
	stranger := seedPlayer(t, db, "stranger@example.com", 0)
	product := &models.Product{FarmID: farm.ID, OwnerID: 1, Name: "Tomato", Category: "vegetables", IsActive: true, IsGrowing: true}
	require.NoError(t, db.Create(product).Error)

	adoption := &models.Adoption{UserID: user.ID, ProductID: product.ID, Price: 300, AdoptedAt: time.Now().UTC()}
	require.NoError(t, repo.Adopt(ctx, adoption))

	details, err := repo.ListAdoptions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Tomato", details[0].ProductName)
	require.NotNil(t, details[0].FarmName)
	assert.Equal(t, "Green Valley", *details[0].FarmName)

	none, err := repo.ListAdoptions(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.SetNickname(ctx, stranger.ID, adoption.ID, testutil.Ptr("Mine"))
	assert.ErrorIs(t, err, repository.ErrAdoptionNotFound, "only the adopter can rename")

	renamed, err := repo.SetNickname(ctx, user.ID, adoption.ID, testutil.Ptr("Tommy"))
	require.NoError(t, err)
	require.NotNil(t, renamed.Nickname)
	assert.Equal(t, "Tommy", *renamed.Nickname)

	cleared, err := repo.SetNickname(ctx, user.ID, adoption.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, cleared.Nickname)

	assert.ErrorIs(t, repo.DeleteAdoption(ctx, stranger.ID, adoption.ID), repository.ErrAdoptionNotFound)
	require.NoError(t, repo.DeleteAdoption(ctx, user.ID, adoption.ID))
	assert.ErrorIs(t, repo.DeleteAdoption(ctx, user.ID, adoption.ID), repository.ErrAdoptionNotFound)
	assert.Equal(t, int64(700), balanceOf(t, repo, user.ID), "removing an adoption does not refund it")
}

func TestGameRepository_GoalsFollowPurchases(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewGameRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	start, end := now.Add(-time.Hour), now.Add(7*24*time.Hour)
	past := now.Add(-48 * time.Hour)

	goals := []models.CommunityGoal{
		{Title: "Boosts", GoalType: models.GoalBoosts, TargetValue: 20, StartsAt: &start, EndsAt: &end, IsActive: true},
		{Title: "Spent", GoalType: models.GoalSpent, TargetValue: 3000, StartsAt: &start, EndsAt: &end, IsActive: true},
		{Title: "Adoptions", GoalType: models.GoalAdoptions, TargetValue: 5, IsActive: true},
		{Title: "Finished", GoalType: models.GoalBoosts, TargetValue: 20, StartsAt: &past, EndsAt: &past, IsActive: true},
	}
	require.NoError(t, repo.CreateGoals(ctx, goals))

	count, err := repo.CountGoals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	user := seedPlayer(t, db, "player@example.com", 1000)
	product := seedGrowing(t, db, "Tomato")
	require.NoError(t, repo.Adopt(ctx, &models.Adoption{UserID: user.ID, ProductID: product.ID, Price: 300, AdoptedAt: now}))
	require.NoError(t, repo.PerformAction(ctx, &models.UserAction{UserID: user.ID, ProductID: product.ID, ActionType: "water_basic", Price: 20, CreatedAt: now}))

	active, err := repo.ActiveGoals(ctx, now)
	require.NoError(t, err)
	progress := map[string]int64{}
	for _, g := range active {
		progress[g.Title] = g.CurrentValue
	}
	assert.Equal(t, map[string]int64{"Boosts": 1, "Spent": 320, "Adoptions": 1}, progress)
	assert.Equal(t, "Adoptions", active[len(active)-1].Title, "open-ended goals sort last")

	var finished models.CommunityGoal
	require.NoError(t, db.Where("title = ?", "Finished").First(&finished).Error)
	assert.Zero(t, finished.CurrentValue, "ended goals stop counting")
}
