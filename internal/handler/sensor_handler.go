package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/database/service"
	"github.com/gryadka/backend-go/internal/middleware"
)

// SensorHandler serves device management and reading ingestion
type SensorHandler struct {
	service service.SensorService
	logger  *slog.Logger
}

// NewSensorHandler creates a new sensor handler
func NewSensorHandler(service service.SensorService, logger *slog.Logger) *SensorHandler {
	return &SensorHandler{
		service: service,
		logger:  logger,
	}
}

type RegisterDeviceRequest struct {
	Name      string `json:"name" binding:"required,max=200"`
	ProductID *uint  `json:"product_id"`
}

// RegisterDeviceResponse carries the plaintext API key. It is returned once.
type RegisterDeviceResponse struct {
	*models.SensorDevice
	APIKey string `json:"api_key"`
}

type ReadingRequest struct {
	APIKey      string         `json:"api_key" binding:"required"`
	Temperature *float64       `json:"temperature"`
	PH          *float64       `json:"ph"`
	Salinity    *float64       `json:"salinity"`
	Humidity    *int           `json:"humidity"`
	RawData     map[string]any `json:"raw_data"`
}

// SubmitReading handles POST /sensors/readings
func (h *SensorHandler) SubmitReading(c *gin.Context) {
	var req ReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("⚠️ [SensorHandler] Invalid reading request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	reading, err := h.service.SubmitReading(c.Request.Context(), req.APIKey, service.ReadingInput{
		Temperature: req.Temperature,
		PH:          req.PH,
		Salinity:    req.Salinity,
		Humidity:    req.Humidity,
		RawData:     req.RawData,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reading)
}

// RegisterDevice handles POST /sensors/devices
func (h *SensorHandler) RegisterDevice(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	device, apiKey, err := h.service.RegisterDevice(c.Request.Context(), identity, req.Name, req.ProductID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterDeviceResponse{SensorDevice: device, APIKey: apiKey})
}

// ListDevices handles GET /sensors/devices?product_id=
func (h *SensorHandler) ListDevices(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var productID *uint
	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
			return
		}
		pid := uint(id)
		productID = &pid
	}

	devices, err := h.service.ListDevices(c.Request.Context(), identity, productID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"devices": devices, "total": len(devices)})
}

// GetDevice handles GET /sensors/devices/:id
func (h *SensorHandler) GetDevice(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	deviceID, err := parseID(c, "id", "Invalid device ID")
	if err != nil {
		return
	}

	device, err := h.service.GetDevice(c.Request.Context(), identity, deviceID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, device)
}

// ToggleDevice handles PUT /sensors/devices/:id/toggle
func (h *SensorHandler) ToggleDevice(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	deviceID, err := parseID(c, "id", "Invalid device ID")
	if err != nil {
		return
	}

	device, err := h.service.ToggleDevice(c.Request.Context(), identity, deviceID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, device)
}

// ListReadings handles GET /sensors/devices/:id/readings?limit=100&hours=24
func (h *SensorHandler) ListReadings(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	deviceID, err := parseID(c, "id", "Invalid device ID")
	if err != nil {
		return
	}

	limit := queryInt(c, "limit", 100)
	hours := queryInt(c, "hours", 24)

	readings, err := h.service.ListReadings(c.Request.Context(), identity, deviceID, limit, hours)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"readings": readings, "total": len(readings)})
}

func (h *SensorHandler) handleServiceError(c *gin.Context, err error) {
	var rangeErr *service.MetricRangeError

	switch {
	case errors.As(err, &rangeErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": rangeErr.Error(), "field": rangeErr.Field})
	case errors.Is(err, service.ErrRawDataTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw_data is too large (max 1000 bytes)"})
	case errors.Is(err, service.ErrRawDataInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": "raw_data is invalid"})
	case errors.Is(err, service.ErrInvalidAPIKey):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
	case errors.Is(err, service.ErrReadingRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many readings, wait before submitting again"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
	case errors.Is(err, repository.ErrDeviceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
	case errors.Is(err, repository.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, repository.ErrDuplicateDevice):
		c.JSON(http.StatusConflict, gin.H{"error": "Device already exists"})
	default:
		h.logger.Error("❌ [SensorHandler] Internal error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
