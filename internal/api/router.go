package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/handler"
	"github.com/gryadka/backend-go/internal/middleware"
)

func SetupRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	catalogHandler *handler.CatalogHandler,
	sensorHandler *handler.SensorHandler,
	gameHandler *handler.GameHandler,
	authMiddleware *middleware.AuthMiddleware,
	loginLimiter middleware.LoginRateLimiter,
	logger *slog.Logger,
) *gin.Engine {
	// Request bodies are strict: unknown fields are rejected.
	binding.EnableDecoderDisallowUnknownFields = true

	r := gin.New()
	r.SetTrustedProxies(nil)
	r.Use(gin.Recovery(), requestid.New(), middleware.RequestLogger(logger))

	requireAuth := authMiddleware.RequireAuth()
	farmersOnly := authMiddleware.RequireRole(models.RoleFarmer, models.RoleAdmin)
	adminOnly := authMiddleware.RequireRole(models.RoleAdmin)

	// Public routes
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth routes (Public)
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", middleware.LimitLogin(loginLimiter, logger), authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.POST("/logout-all", requireAuth, authHandler.LogoutAll)
	}

	users := r.Group("/api/users", requireAuth)
	{
		users.GET("/me", userHandler.Me)
		users.POST("", adminOnly, userHandler.CreateUser)
		users.PATCH("/:id/status", adminOnly, userHandler.UpdateStatus)
	}

	farms := r.Group("/api/farms")
	{
		farms.GET("", catalogHandler.ListFarms)
		farms.POST("", requireAuth, farmersOnly, catalogHandler.CreateFarm)
		farms.GET("/:id/products", catalogHandler.ListFarmProducts)
	}

	products := r.Group("/api/products")
	{
		products.GET("", catalogHandler.ListProducts)
		products.POST("", requireAuth, farmersOnly, catalogHandler.CreateProduct)
		products.GET("/me", requireAuth, catalogHandler.MyProducts)
		products.GET("/:id", catalogHandler.GetProduct)
		products.PATCH("/:id", requireAuth, catalogHandler.UpdateProduct)
		products.DELETE("/:id", requireAuth, catalogHandler.DeleteProduct)
		products.GET("/:id/passport", catalogHandler.GetPassport)
		products.POST("/:id/passport", requireAuth, catalogHandler.SetPassport)
	}

	sensors := r.Group("/api/sensors")
	{
		// Devices authenticate with their API key, not a user token.
		sensors.POST("/readings", sensorHandler.SubmitReading)

		devices := sensors.Group("/devices", requireAuth, farmersOnly)
		devices.POST("", sensorHandler.RegisterDevice)
		devices.GET("", sensorHandler.ListDevices)
		devices.GET("/:id", sensorHandler.GetDevice)
		devices.PUT("/:id/toggle", adminOnly, sensorHandler.ToggleDevice)
		devices.GET("/:id/readings", sensorHandler.ListReadings)
	}

	game := r.Group("/api/game")
	{
		game.GET("/items", gameHandler.ListItems)
		game.GET("/items/:id", gameHandler.GetItem)
		game.GET("/adoption-price", gameHandler.AdoptionPrice)
		game.GET("/community-goals", gameHandler.CommunityGoals)
		game.GET("/actions/:product_id", gameHandler.ProductActions)

		player := game.Group("", requireAuth)
		player.GET("/balance", gameHandler.Balance)
		player.POST("/balance/topup", gameHandler.TopUp)
		player.GET("/stats", gameHandler.Stats)
		player.POST("/adopt", gameHandler.Adopt)
		player.GET("/adoptions", gameHandler.ListAdoptions)
		player.PATCH("/adoptions/:id/nickname", gameHandler.RenameAdoption)
		player.DELETE("/adoptions/:id", gameHandler.DeleteAdoption)
		player.POST("/action", gameHandler.PerformAction)
		player.GET("/my-actions", gameHandler.MyActions)
		player.GET("/growth/:product_id", gameHandler.Growth)
	}

	return r
}
