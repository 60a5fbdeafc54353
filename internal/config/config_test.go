package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfig_Success(t *testing.T) {
	t.Setenv("API_SERVICE_PORT", "9090")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_ALGORITHM", "hs512")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "15")
	t.Setenv("REFRESH_TOKEN_EXPIRE_DAYS", "7")
	t.Setenv("REVOKE_ON_REUSE", "1")
	t.Setenv("SENSOR_SECRET_KEY", "sensor-secret")
	t.Setenv("SENSOR_MIN_READING_INTERVAL", "300")

	cfg := LoadConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "9090", cfg.ApiServicePort)
	assert.Equal(t, "HS512", cfg.JWTAlgorithm)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenExpiration)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenExpiration)
	assert.True(t, cfg.RevokeOnReuse)
	assert.Equal(t, testSecret, cfg.RefreshTokenSecret, "refresh secret falls back to the JWT secret")
	assert.Equal(t, 5*time.Minute, cfg.SensorMinReadingInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.ApiServicePort)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenExpiration)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenExpiration)
	assert.Equal(t, 64, cfg.RefreshTokenBytes)
	assert.False(t, cfg.RevokeOnReuse)
	assert.Equal(t, "refresh_token", cfg.RefreshCookieName)
	assert.Equal(t, "/api/auth/refresh", cfg.RefreshCookiePath)
	assert.True(t, cfg.RefreshCookieSecure)
	assert.Equal(t, 10*time.Minute, cfg.SensorMinReadingInterval)
	assert.Equal(t, int64(300), cfg.GameAdoptionPrice)
	assert.Equal(t, int64(10000), cfg.GameMaxTopUp)
	assert.Equal(t, int64(30), cfg.GameGrowthDays)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	t.Setenv("REFRESH_TOKEN_BYTES", "invalid")
	t.Setenv("REVOKE_ON_REUSE", "maybe")

	cfg := LoadConfig()

	// Should use default when invalid
	assert.Equal(t, 64, cfg.RefreshTokenBytes)
	assert.False(t, cfg.RevokeOnReuse)
}

func TestLoadConfig_LogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	cfg := LoadConfig()

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			JWTSecret:              testSecret,
			JWTAlgorithm:           "HS256",
			AccessTokenExpiration:  30 * time.Minute,
			RefreshTokenExpiration: 30 * 24 * time.Hour,
			RefreshTokenBytes:      64,
			RefreshTokenSecret:     "refresh-secret",
			SensorSecretKey:        "sensor-secret",
			RefreshCookieSameSite:  "lax",
			GameAdoptionPrice:      300,
			GameMaxTopUp:           10000,
			GameGrowthDays:         30,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.JWTSecret = "" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.JWTSecret = testSecret[:31] },
			wantErr: "too short",
		},
		{
			name:    "asymmetric algorithm",
			mutate:  func(c *Config) { c.JWTAlgorithm = "RS256" },
			wantErr: "JWT_ALGORITHM",
		},
		{
			name:    "short refresh tokens",
			mutate:  func(c *Config) { c.RefreshTokenBytes = 32 },
			wantErr: "REFRESH_TOKEN_BYTES",
		},
		{
			name:    "missing sensor key",
			mutate:  func(c *Config) { c.SensorSecretKey = "" },
			wantErr: "SENSOR_SECRET_KEY",
		},
		{
			name:    "bad samesite",
			mutate:  func(c *Config) { c.RefreshCookieSameSite = "sometimes" },
			wantErr: "REFRESH_COOKIE_SAMESITE",
		},
		{
			name:    "zero top-up cap",
			mutate:  func(c *Config) { c.GameMaxTopUp = 0 },
			wantErr: "GAME_MAX_TOPUP",
		},
		{
			name:   "free adoption",
			mutate: func(c *Config) { c.GameAdoptionPrice = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
