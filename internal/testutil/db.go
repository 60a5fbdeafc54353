package testutil

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gryadka/backend-go/internal/config"
	"github.com/gryadka/backend-go/internal/database"
	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/security"
)

const TestJWTSecret = "test-jwt-secret-0123456789abcdef!"

// NewTestDB creates a migrated in-memory SQLite database with the server's
// gorm settings. The pool is capped at one connection so every query sees the
// same database; concurrent callers are serialised by database/sql.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := database.GormConfig()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Farm{},
		&models.Product{},
		&models.SensorDevice{},
		&models.SensorReading{},
		&models.GameItem{},
		&models.Adoption{},
		&models.UserAction{},
		&models.CommunityGoal{},
	)
	require.NoError(t, err)

	t.Cleanup(func() { sqlDB.Close() })

	return db
}

// NewTestConfig returns a valid configuration for tests.
func NewTestConfig() *config.Config {
	return &config.Config{
		AppEnv:                   "test",
		LogLevel:                 slog.LevelError,
		JWTSecret:                TestJWTSecret,
		JWTAlgorithm:             "HS256",
		AccessTokenExpiration:    30 * time.Minute,
		RefreshTokenExpiration:   30 * 24 * time.Hour,
		RefreshTokenBytes:        64,
		RefreshTokenSecret:       "test-refresh-secret",
		RefreshCookieName:        "refresh_token",
		RefreshCookiePath:        "/api/auth/refresh",
		RefreshCookieSecure:      true,
		RefreshCookieSameSite:    "lax",
		PasswordHashConcurrency:  2,
		LoginRateLimit:           10,
		LoginRateWindow:          time.Minute,
		SensorSecretKey:          "test-sensor-secret",
		SensorMinReadingInterval: 10 * time.Minute,
		RecommendationTimeout:    time.Second,
		GameAdoptionPrice:        300,
		GameMaxTopUp:             10000,
		GameGrowthDays:           30,
	}
}

// SeedUser inserts a user directly, bypassing password hashing.
func SeedUser(t *testing.T, db *gorm.DB, email, role string, active bool) *models.User {
	t.Helper()

	user := &models.User{
		Email:          email,
		HashedPassword: "unused",
		IsActive:       active,
		FirstName:      "Test",
		LastName:       "User",
		Role:           role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// FastArgon2Params keeps password hashing cheap in tests.
var FastArgon2Params = security.Argon2Params{
	Time:    1,
	Memory:  8 * 1024,
	Threads: 1,
	SaltLen: 16,
	KeyLen:  32,
}
