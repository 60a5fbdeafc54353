package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gryadka/backend-go/internal/auth"
	"github.com/gryadka/backend-go/internal/config"
	"github.com/gryadka/backend-go/internal/database/models"
	"github.com/gryadka/backend-go/internal/database/repository"
	"github.com/gryadka/backend-go/internal/security"
)

const (
	apiKeyPrefix     = "sensor_"
	apiKeyBytes      = 32
	maxRawDataBytes  = 1000
	defaultReadLimit = 100
	maxReadLimit     = 1000
)

// Plausibility bands, inclusive.
var (
	temperatureRange = metricRange{min: -50, max: 100}
	phRange          = metricRange{min: 0, max: 14}
	salinityRange    = metricRange{min: 0, max: 10000}
	humidityRange    = metricRange{min: 0, max: 100}
)

type metricRange struct {
	min, max float64
}

// ReadingInput carries the measured values of one submission. Nil metrics
// were not measured.
type ReadingInput struct {
	Temperature *float64
	PH          *float64
	Salinity    *float64
	Humidity    *int
	RawData     map[string]any
}

// MetricRangeError reports the first metric outside its plausibility band.
type MetricRangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *MetricRangeError) Error() string {
	return fmt.Sprintf("%s must be between %g and %g", e.Field, e.Min, e.Max)
}

// SensorService defines the interface for sensor devices and their readings
type SensorService interface {
	// RegisterDevice returns the stored device and its plaintext API key.
	// The key cannot be recovered later.
	RegisterDevice(ctx context.Context, actor auth.Identity, name string, productID *uint) (*models.SensorDevice, string, error)
	Authenticate(ctx context.Context, apiKey string) (*models.SensorDevice, error)
	// AcceptReading validates input and stores it unless the device already
	// has a reading within the minimum interval.
	AcceptReading(ctx context.Context, device *models.SensorDevice, input ReadingInput) (*models.SensorReading, error)
	SubmitReading(ctx context.Context, apiKey string, input ReadingInput) (*models.SensorReading, error)
	ListDevices(ctx context.Context, actor auth.Identity, productID *uint) ([]models.SensorDevice, error)
	GetDevice(ctx context.Context, actor auth.Identity, deviceID uint) (*models.SensorDevice, error)
	ToggleDevice(ctx context.Context, actor auth.Identity, deviceID uint) (*models.SensorDevice, error)
	ListReadings(ctx context.Context, actor auth.Identity, deviceID uint, limit, hours int) ([]models.SensorReading, error)
}

type sensorService struct {
	sensorRepo  repository.SensorRepository
	productRepo repository.ProductRepository
	digester    *security.Digester
	minInterval time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewSensorService creates a new sensor service instance
func NewSensorService(
	sensorRepo repository.SensorRepository,
	productRepo repository.ProductRepository,
	cfg *config.Config,
	logger *slog.Logger,
) SensorService {
	return &sensorService{
		sensorRepo:  sensorRepo,
		productRepo: productRepo,
		digester:    security.NewDigester(cfg.SensorSecretKey),
		minInterval: cfg.SensorMinReadingInterval,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *sensorService) RegisterDevice(ctx context.Context, actor auth.Identity, name string, productID *uint) (*models.SensorDevice, string, error) {
	if !canManageSensors(actor) {
		return nil, "", ErrForbidden
	}

	if productID != nil {
		if err := s.checkProductAccess(ctx, actor, *productID); err != nil {
			return nil, "", err
		}
	}

	secret, err := security.GenerateSecret(apiKeyBytes)
	if err != nil {
		return nil, "", err
	}
	apiKey := apiKeyPrefix + secret

	device := &models.SensorDevice{
		Name:       name,
		APIKeyHash: s.digester.Sum(apiKey),
		IsActive:   true,
		ProductID:  productID,
	}
	if err := s.sensorRepo.CreateDevice(ctx, device); err != nil {
		s.logger.Error("❌ [SensorService] Failed to register device", "error", err)
		return nil, "", err
	}

	s.logger.Info("✅ [SensorService] Device registered", "device_id", device.ID, "user_id", actor.UserID)
	return device, apiKey, nil
}

func (s *sensorService) Authenticate(ctx context.Context, apiKey string) (*models.SensorDevice, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	device, err := s.sensorRepo.FindActiveDeviceByKeyHash(ctx, s.digester.Sum(apiKey))
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			s.logger.Warn("⚠️ [SensorService] Invalid API key attempt")
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}

	seen := s.now()
	if err := s.sensorRepo.TouchLastSeen(ctx, device.ID, seen); err != nil {
		return nil, err
	}
	device.LastSeen = &seen

	return device, nil
}

func (s *sensorService) AcceptReading(ctx context.Context, device *models.SensorDevice, input ReadingInput) (*models.SensorReading, error) {
	if err := validateReading(input); err != nil {
		return nil, err
	}

	now := s.now()
	reading := &models.SensorReading{
		DeviceID:    device.ID,
		Temperature: input.Temperature,
		PH:          input.PH,
		Salinity:    input.Salinity,
		Humidity:    input.Humidity,
		RawData:     models.JSONMap(input.RawData),
		CreatedAt:   now,
	}

	if err := s.sensorRepo.InsertReading(ctx, reading, now.Add(-s.minInterval)); err != nil {
		if errors.Is(err, repository.ErrRateLimited) {
			s.logger.Warn("⚠️ [SensorService] Rate limit exceeded", "device_id", device.ID)
			return nil, ErrReadingRateLimited
		}
		s.logger.Error("❌ [SensorService] Failed to save reading", "device_id", device.ID, "error", err)
		return nil, err
	}

	s.logger.Info("📡 [SensorService] Reading saved", "device_id", device.ID, "reading_id", reading.ID)
	return reading, nil
}

func (s *sensorService) SubmitReading(ctx context.Context, apiKey string, input ReadingInput) (*models.SensorReading, error) {
	device, err := s.Authenticate(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return s.AcceptReading(ctx, device, input)
}

func (s *sensorService) ListDevices(ctx context.Context, actor auth.Identity, productID *uint) ([]models.SensorDevice, error) {
	if !canManageSensors(actor) {
		return nil, ErrForbidden
	}

	filter := repository.DeviceFilter{ProductID: productID}
	if productID != nil {
		if err := s.checkProductAccess(ctx, actor, *productID); err != nil {
			return nil, err
		}
	}
	if actor.Role == models.RoleFarmer {
		filter.OwnerID = &actor.UserID
	}

	return s.sensorRepo.ListDevices(ctx, filter)
}

func (s *sensorService) GetDevice(ctx context.Context, actor auth.Identity, deviceID uint) (*models.SensorDevice, error) {
	if !canManageSensors(actor) {
		return nil, ErrForbidden
	}

	device, err := s.sensorRepo.FindDeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.checkDeviceAccess(ctx, actor, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (s *sensorService) ToggleDevice(ctx context.Context, actor auth.Identity, deviceID uint) (*models.SensorDevice, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}

	device, err := s.sensorRepo.ToggleActive(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("🔁 [SensorService] Device toggled", "device_id", device.ID, "is_active", device.IsActive)
	return device, nil
}

func (s *sensorService) ListReadings(ctx context.Context, actor auth.Identity, deviceID uint, limit, hours int) ([]models.SensorReading, error) {
	if _, err := s.GetDevice(ctx, actor, deviceID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultReadLimit
	}
	if limit > maxReadLimit {
		limit = maxReadLimit
	}

	var since *time.Time
	if hours > 0 {
		t := s.now().Add(-time.Duration(hours) * time.Hour)
		since = &t
	}

	return s.sensorRepo.ListReadings(ctx, deviceID, since, limit)
}

// checkProductAccess requires the product to exist and, for farmers, to be
// their own.
func (s *sensorService) checkProductAccess(ctx context.Context, actor auth.Identity, productID uint) error {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if actor.Role == models.RoleFarmer && product.OwnerID != actor.UserID {
		return ErrForbidden
	}
	return nil
}

// checkDeviceAccess lets farmers see unattached devices and devices on their
// own products.
func (s *sensorService) checkDeviceAccess(ctx context.Context, actor auth.Identity, device *models.SensorDevice) error {
	if actor.Role != models.RoleFarmer || device.ProductID == nil {
		return nil
	}

	product, err := s.productRepo.FindByID(ctx, *device.ProductID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil
		}
		return err
	}
	if product.OwnerID != actor.UserID {
		return ErrForbidden
	}
	return nil
}

func validateReading(input ReadingInput) error {
	if err := checkRange("temperature", input.Temperature, temperatureRange); err != nil {
		return err
	}
	if err := checkRange("ph", input.PH, phRange); err != nil {
		return err
	}
	if err := checkRange("salinity", input.Salinity, salinityRange); err != nil {
		return err
	}
	if input.Humidity != nil {
		h := float64(*input.Humidity)
		if err := checkRange("humidity", &h, humidityRange); err != nil {
			return err
		}
	}

	if input.RawData != nil {
		encoded, err := json.Marshal(input.RawData)
		if err != nil {
			return ErrRawDataInvalid
		}
		if len(encoded) > maxRawDataBytes {
			return ErrRawDataTooLarge
		}
	}

	return nil
}

func checkRange(field string, value *float64, r metricRange) error {
	if value == nil {
		return nil
	}
	if *value < r.min || *value > r.max {
		return &MetricRangeError{Field: field, Value: *value, Min: r.min, Max: r.max}
	}
	return nil
}

func canManageSensors(actor auth.Identity) bool {
	return actor.Role == models.RoleFarmer || actor.Role == models.RoleAdmin
}

// Service errors
var (
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidAPIKey      = errors.New("invalid sensor API key")
	ErrReadingRateLimited = errors.New("reading submitted too soon")
	ErrRawDataTooLarge    = errors.New("raw_data exceeds 1000 bytes")
	ErrRawDataInvalid     = errors.New("raw_data is not serializable")
)
