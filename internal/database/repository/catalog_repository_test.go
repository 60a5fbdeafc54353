package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/testutil"
)

func TestFarmRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewFarmRepository(db)
	ctx := context.Background()

	first := &models.Farm{Name: "North", OwnerID: 1}
	second := &models.Farm{Name: "South", OwnerID: 2, Description: testutil.Ptr("greenhouses")}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	found, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "South", found.Name)
	require.NotNil(t, found.Description)
	assert.Equal(t, "greenhouses", *found.Description)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrFarmNotFound)

	farms, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, farms, 2)
	assert.Equal(t, second.ID, farms[0].ID)
}

func TestProductRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()

	product := &models.Product{
		FarmID:   1,
		OwnerID:  1,
		Name:     "Tomato",
		Category: "vegetables",
		Passport: models.JSONMap{"variety": "Cherry"},
		IsActive: true,
	}
	require.NoError(t, repo.Create(ctx, product))
	require.NoError(t, repo.Create(ctx, &models.Product{FarmID: 2, OwnerID: 1, Name: "Milk", Category: "dairy", IsActive: true}))

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cherry", found.Passport["variety"])
	assert.Nil(t, found.AIRecommendation)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	byFarm, err := repo.ListByFarm(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byFarm, 1)
	assert.Equal(t, product.ID, byFarm[0].ID)

	require.NoError(t, repo.SetRecommendation(ctx, product.ID, "Water daily"))
	found, err = repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, found.AIRecommendation)
	assert.Equal(t, "Water daily", *found.AIRecommendation)
}

func TestProductRepository_ListingAndVisibility(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()

	var ids []uint
	for _, name := range []string{"Tomato", "Cucumber", "Pepper"} {
		p := &models.Product{FarmID: 1, OwnerID: 1, Name: name, Category: "vegetables", IsActive: true}
		require.NoError(t, repo.Create(ctx, p))
		ids = append(ids, p.ID)
	}
	hidden := &models.Product{FarmID: 1, OwnerID: 1, Name: "Draft", Category: "vegetables", IsActive: false}
	require.NoError(t, repo.Create(ctx, hidden))
	require.NoError(t, repo.Create(ctx, &models.Product{FarmID: 2, OwnerID: 2, Name: "Milk", Category: "dairy", IsActive: true}))

	stored, err := repo.FindByID(ctx, hidden.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive, "an explicit false survives the column default")

	tests := []struct {
		name          string
		limit, offset int
		want          []string
	}{
		{name: "first page", limit: 2, offset: 0, want: []string{"Milk", "Pepper"}},
		{name: "second page", limit: 2, offset: 2, want: []string{"Cucumber", "Tomato"}},
		{name: "past the end", limit: 2, offset: 10, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.limit, tt.offset)
			require.NoError(t, err)
			var names []string
			for _, p := range page {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	byFarm, err := repo.ListByFarm(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, byFarm, 3, "inactive products stay off the farm page")

	mine, err := repo.ListByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 4, "owners see their inactive products")
	assert.Equal(t, hidden.ID, mine[0].ID)
}

func TestProductRepository_UpdateDeletePassport(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewProductRepository(db)
	ctx := context.Background()

	product := &models.Product{FarmID: 1, OwnerID: 1, Name: "Tomato", Category: "vegetables", IsActive: true}
	require.NoError(t, repo.Create(ctx, product))

	updated, err := repo.Update(ctx, product.ID, map[string]any{"name": "Cherry tomato", "is_active": false, "is_growing": true})
	require.NoError(t, err)
	assert.Equal(t, "Cherry tomato", updated.Name)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.IsGrowing)
	assert.Equal(t, "vegetables", updated.Category, "untouched fields keep their value")

	unchanged, err := repo.Update(ctx, product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Cherry tomato", unchanged.Name)

	_, err = repo.Update(ctx, 999, map[string]any{"name": "Ghost"})
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	require.NoError(t, repo.SetPassport(ctx, product.ID, models.JSONMap{"origin": "Kuban"}))
	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kuban", found.Passport["origin"])
	assert.ErrorIs(t, repo.SetPassport(ctx, 999, models.JSONMap{}), repository.ErrProductNotFound)

	require.NoError(t, repo.Delete(ctx, product.ID))
	_, err = repo.FindByID(ctx, product.ID)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, product.ID), repository.ErrProductNotFound)
}
