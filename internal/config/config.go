package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const minJWTSecretLength = 32

type Config struct {
	AppEnv             string
	LogLevel           slog.Level
	ApiServicePort     string
	ApiGrpcPort        string
	PostgreSQLHost     string
	PostgreSQLPort     int64
	PostgreSQLUser     string
	PostgreSQLPassword string
	PostgreSQLDatabase string
	RedisHost          string
	RedisPort          int64
	RedisPassword      string
	RedisDB            int64

	// Access tokens
	JWTSecret             string
	JWTAlgorithm          string
	AccessTokenExpiration time.Duration

	// Refresh tokens
	RefreshTokenExpiration time.Duration
	RefreshTokenBytes      int
	RefreshTokenSecret     string
	RevokeOnReuse          bool
	RefreshCookieName      string
	RefreshCookiePath      string
	RefreshCookieSecure    bool
	RefreshCookieSameSite  string

	// Credentials
	PasswordHashConcurrency int64
	LoginRateLimit          int64
	LoginRateWindow         time.Duration

	// Sensors
	SensorSecretKey          string
	SensorMinReadingInterval time.Duration
	MQTTBrokerURL            string
	MQTTReadingsTopic        string
	MQTTClientID             string

	// Product recommendations
	RecommendationAPIURL  string
	RecommendationAPIKey  string
	RecommendationModel   string
	RecommendationTimeout time.Duration

	// Game
	GameAdoptionPrice int64
	GameMaxTopUp      int64
	GameGrowthDays    int64
}

func LoadConfig() *Config {
	jwtSecret := getEnv("JWT_SECRET", "")

	return &Config{
		AppEnv:             getEnv("APP_ENV", "development"),              // Default development
		LogLevel:           getLogLevel(),                                 // Default INFO
		ApiServicePort:     getEnv("API_SERVICE_PORT", "8080"),            // Default 8080
		ApiGrpcPort:        getEnv("API_GRPC_PORT", "50052"),              // Default 50052 (gRPC health)
		PostgreSQLHost:     getEnv("POSTGRESQL_HOST", "db"),               // Default db
		PostgreSQLPort:     getEnvAsInt64("POSTGRESQL_PORT", 5432),        // Default 5432
		PostgreSQLUser:     getEnv("POSTGRESQL_USER", "gryadka_user"),     // Default user
		PostgreSQLPassword: getEnv("POSTGRESQL_PASSWORD", "gryadka_pass"), // Default password
		PostgreSQLDatabase: getEnv("POSTGRESQL_DATABASE", "gryadka_db"),   // Default database name
		RedisHost:          getEnv("REDIS_HOST", "redis"),                 // Default redis
		RedisPort:          getEnvAsInt64("REDIS_PORT", 6379),             // Default 6379
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),                  // Default empty
		RedisDB:            getEnvAsInt64("REDIS_DATABASE", 0),            // Default 0

		JWTSecret:             jwtSecret,                                                                     // Required, >= 32 bytes
		JWTAlgorithm:          strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),                             // Default HS256
		AccessTokenExpiration: time.Duration(getEnvAsInt64("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute, // Default 30 minutes

		RefreshTokenExpiration: time.Duration(getEnvAsInt64("REFRESH_TOKEN_EXPIRE_DAYS", 30)) * 24 * time.Hour, // Default 30 days
		RefreshTokenBytes:      int(getEnvAsInt64("REFRESH_TOKEN_BYTES", 64)),                               // Default 64 bytes
		RefreshTokenSecret:     getEnv("REFRESH_TOKEN_SECRET", jwtSecret),                                   // Default JWT secret
		RevokeOnReuse:          getEnvAsBool("REVOKE_ON_REUSE", false),                                      // Default off
		RefreshCookieName:      getEnv("REFRESH_COOKIE_NAME", "refresh_token"),
		RefreshCookiePath:      getEnv("REFRESH_COOKIE_PATH", "/api/auth/refresh"),
		RefreshCookieSecure:    getEnvAsBool("REFRESH_COOKIE_SECURE", true),
		RefreshCookieSameSite:  strings.ToLower(getEnv("REFRESH_COOKIE_SAMESITE", "lax")),

		PasswordHashConcurrency: getEnvAsInt64("PASSWORD_HASH_CONCURRENCY", 4),                       // Default 4 parallel hashes
		LoginRateLimit:          getEnvAsInt64("LOGIN_RATE_LIMIT", 10),                               // Default 10 attempts
		LoginRateWindow:         time.Duration(getEnvAsInt64("LOGIN_RATE_WINDOW", 60)) * time.Second, // Default 1 minute

		SensorSecretKey:          getEnv("SENSOR_SECRET_KEY", ""),                                               // Required
		SensorMinReadingInterval: time.Duration(getEnvAsInt64("SENSOR_MIN_READING_INTERVAL", 600)) * time.Second, // Default 10 minutes
		MQTTBrokerURL:            getEnv("MQTT_BROKER_URL", ""),                                                 // Empty disables MQTT ingest
		MQTTReadingsTopic:        getEnv("MQTT_READINGS_TOPIC", "gryadka/sensors/readings"),
		MQTTClientID:             getEnv("MQTT_CLIENT_ID", "gryadka-backend"),

		RecommendationAPIURL:  getEnv("RECOMMENDATION_API_URL", "https://neuroapi.host/v1/chat/completions"),
		RecommendationAPIKey:  getEnv("RECOMMENDATION_API_KEY", ""), // Empty disables recommendations
		RecommendationModel:   getEnv("RECOMMENDATION_MODEL", "gpt-5-nano"),
		RecommendationTimeout: time.Duration(getEnvAsInt64("RECOMMENDATION_TIMEOUT", 60)) * time.Second, // Default 60 seconds

		GameAdoptionPrice: getEnvAsInt64("GAME_ADOPTION_PRICE", 300), // Default 300 coins
		GameMaxTopUp:      getEnvAsInt64("GAME_MAX_TOPUP", 10000),    // Default 10000 coins per top-up
		GameGrowthDays:    getEnvAsInt64("GAME_GROWTH_DAYS", 30),     // Default 30 day season
	}
}

// Validate reports settings the server must refuse to start with.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET is missing or too short (min %d bytes)", minJWTSecretLength))
	}

	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported JWT_ALGORITHM %q", c.JWTAlgorithm))
	}

	if c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("REFRESH_TOKEN_SECRET or JWT_SECRET must be set"))
	}
	if c.RefreshTokenBytes < 64 {
		errs = append(errs, errors.New("REFRESH_TOKEN_BYTES must be at least 64"))
	}
	if c.SensorSecretKey == "" {
		errs = append(errs, errors.New("SENSOR_SECRET_KEY must be set"))
	}
	if c.AccessTokenExpiration <= 0 || c.RefreshTokenExpiration <= 0 {
		errs = append(errs, errors.New("token expirations must be positive"))
	}

	if c.GameAdoptionPrice < 0 || c.GameMaxTopUp <= 0 || c.GameGrowthDays <= 0 {
		errs = append(errs, errors.New("GAME_ADOPTION_PRICE must not be negative, GAME_MAX_TOPUP and GAME_GROWTH_DAYS must be positive"))
	}

	switch c.RefreshCookieSameSite {
	case "lax", "strict", "none":
	default:
		errs = append(errs, fmt.Errorf("unsupported REFRESH_COOKIE_SAMESITE %q", c.RefreshCookieSameSite))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

func getLogLevel() slog.Level {
	levelStr := getEnv("LOG_LEVEL", "INFO")

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
