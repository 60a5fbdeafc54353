package database

import (
	"context"
	"io/fs"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gryadka/backend-go/internal/config"
	"github.com/gryadka/backend-go/internal/logger"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(embedMigrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		content, err := fs.ReadFile(embedMigrations, name)
		require.NoError(t, err)

		sql := string(content)
		assert.Contains(t, sql, "-- +goose Up", name)
		assert.Contains(t, sql, "-- +goose Down", name)
	}

	initial, err := fs.ReadFile(embedMigrations, "migrations/00001_init.sql")
	require.NoError(t, err)
	for _, table := range []string{"users", "refresh_tokens", "farms", "products", "sensor_devices", "sensor_readings"} {
		assert.Contains(t, string(initial), "CREATE TABLE "+table+" (")
	}
	assert.True(t, strings.Contains(string(initial), "idx_refresh_tokens_token_hash"), "refresh token hashes are unique")

	game, err := fs.ReadFile(embedMigrations, "migrations/00002_products_and_game.sql")
	require.NoError(t, err)
	for _, table := range []string{"game_items", "adoptions", "user_actions", "community_goals"} {
		assert.Contains(t, string(game), "CREATE TABLE "+table+" (")
		assert.Contains(t, string(game), "DROP TABLE IF EXISTS "+table+";")
	}
	assert.Contains(t, string(game), "CHECK (balance >= 0)")
	assert.Contains(t, string(game), "CREATE UNIQUE INDEX idx_adoptions_user_product ON adoptions (user_id, product_id)")
}

func TestGormConfig(t *testing.T) {
	cfg := GormConfig()
	assert.True(t, cfg.TranslateError)
	assert.Equal(t, "UTC", cfg.NowFunc().Location().String())
}

func TestPing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig())
	require.NoError(t, err)

	assert.NoError(t, Ping(context.Background(), db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	assert.Error(t, Ping(context.Background(), db))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.ParseInt(mr.Port(), 10, 64)
	require.NoError(t, err)

	cfg := &config.Config{RedisHost: mr.Host(), RedisPort: port}
	client, err := NewRedisClient(cfg, logger.NewNop())
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host := mr.Host()
	port, err := strconv.ParseInt(mr.Port(), 10, 64)
	require.NoError(t, err)
	mr.Close()

	cfg := &config.Config{RedisHost: host, RedisPort: port}
	_, err = NewRedisClient(cfg, logger.NewNop())
	assert.Error(t, err)
}
