package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gryadka/backend-go/internal/api"
	"github.com/gryadka/backend-go/internal/auth"
	"github.com/gryadka/backend-go/internal/config"
	"github.com/gryadka/backend-go/internal/database"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/database/service"
	internalgrpc "github.com/gryadka/backend-go/internal/grpc"
	"github.com/gryadka/backend-go/internal/handler"
	"github.com/gryadka/backend-go/internal/ingest"
	"github.com/gryadka/backend-go/internal/logger"
	"github.com/gryadka/backend-go/internal/middleware"
	"github.com/gryadka/backend-go/internal/recommend"
	"github.com/gryadka/backend-go/internal/security"
	"github.com/gryadka/backend-go/internal/worker"
)

const (
	healthCheckInterval = 15 * time.Second
	shutdownTimeout     = 30 * time.Second
)

func main() {
	// 1. Config (.env is optional)
	_ = godotenv.Load()
	cfg := config.LoadConfig()

	// 2. Logger
	appLogger := logger.New(cfg)

	if err := cfg.Validate(); err != nil {
		appLogger.Error("❌ Invalid configuration", "error", err)
		os.Exit(1)
	}

	appLogger.Info("🚀 [Go] Starting API server...",
		"environment", cfg.AppEnv,
		"revoke_on_reuse", cfg.RevokeOnReuse,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Connect to Database
	db, err := database.ConnectDatabase(cfg, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	// 4. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	farmRepo := repository.NewFarmRepository(db)
	productRepo := repository.NewProductRepository(db)
	sensorRepo := repository.NewSensorRepository(db)
	gameRepo := repository.NewGameRepository(db)

	// 5. Security primitives
	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		appLogger.Error("❌ Failed to create token signer", "error", err)
		os.Exit(1)
	}
	hasher := security.NewPasswordHasher(cfg.PasswordHashConcurrency, security.DefaultArgon2Params)

	// 6. Background workers
	pool := worker.NewPool(appLogger)

	var recommender service.Recommender
	if client := recommend.NewClient(cfg, appLogger); client != nil {
		recommender = client
	} else {
		appLogger.Info("💡 Product recommendations disabled (no RECOMMENDATION_API_KEY)")
	}

	// 7. Initialize Services
	ledger := service.NewRefreshTokenLedger(refreshTokenRepo, cfg, appLogger)
	authService := service.NewAuthService(userRepo, ledger, signer, hasher, cfg, appLogger)
	userService := service.NewUserService(userRepo, ledger, hasher, appLogger)
	farmService := service.NewFarmService(farmRepo, appLogger)
	productService := service.NewProductService(productRepo, farmRepo, recommender, pool, cfg, appLogger)
	sensorService := service.NewSensorService(sensorRepo, productRepo, cfg, appLogger)
	gameService := service.NewGameService(gameRepo, productRepo, cfg, appLogger)

	// 8. Login Rate Limiter
	var loginLimiter middleware.LoginRateLimiter
	redisClient, err := database.NewRedisClient(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis, using no-op rate limiter", "error", err)
		loginLimiter = middleware.NewNoOpRateLimiter(appLogger)
	} else {
		defer redisClient.Close()
		loginLimiter = middleware.NewLoginRateLimiter(redisClient, cfg, appLogger)
	}

	// 9. MQTT readings (optional)
	var subscriber *ingest.Subscriber
	if cfg.MQTTBrokerURL != "" {
		subscriber = ingest.NewSubscriber(sensorService, cfg, appLogger)
		if err := subscriber.Start(pool.Context()); err != nil {
			appLogger.Warn("⚠️ MQTT ingest unavailable, readings are accepted over HTTP only", "error", err)
			subscriber = nil
		}
	}

	// 10. gRPC health server
	healthServer := internalgrpc.NewHealthServer(func(ctx context.Context) error {
		return database.Ping(ctx, db)
	}, appLogger)
	pool.Every("db-health", healthCheckInterval, healthServer.Refresh)

	go func() {
		grpcAddr := fmt.Sprintf(":%s", cfg.ApiGrpcPort)
		if err := healthServer.Run(ctx, grpcAddr); err != nil {
			appLogger.Error("❌ gRPC Server failed", "error", err)
		}
	}()

	// 11. Handlers, Middleware and Router
	r := api.SetupRouter(
		handler.NewAuthHandler(authService, cfg, appLogger),
		handler.NewUserHandler(userService, appLogger),
		handler.NewCatalogHandler(farmService, productService, appLogger),
		handler.NewSensorHandler(sensorService, appLogger),
		handler.NewGameHandler(gameService, appLogger),
		middleware.NewAuthMiddleware(authService, appLogger),
		loginLimiter,
		appLogger,
	)

	// 12. Start HTTP Server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ApiServicePort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("🌍 [Go] HTTP Server running...", "port", cfg.ApiServicePort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		appLogger.Info("🛑 [Go] Shutdown signal received")
	case err := <-serverErr:
		appLogger.Error("❌ HTTP Server failed", "error", err)
	}

	shutdown(srv, healthServer, subscriber, pool, appLogger)
}

func shutdown(
	srv *http.Server,
	healthServer *internalgrpc.HealthServer,
	subscriber *ingest.Subscriber,
	pool *worker.Pool,
	logger *slog.Logger,
) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("❌ HTTP Server shutdown failed", "error", err)
	}
	if subscriber != nil {
		subscriber.Stop()
	}
	healthServer.Stop()
	pool.Shutdown(shutdownTimeout)

	logger.Info("✅ [Go] Server stopped")
}
