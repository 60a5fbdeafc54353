package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gryadka/backend-go/internal/database/models"
)

// DeviceFilter narrows ListDevices. Nil fields are ignored.
type DeviceFilter struct {
	ProductID *uint
	OwnerID   *uint // devices attached to products owned by this user
}

// SensorRepository defines the interface for sensor devices and readings
type SensorRepository interface {
	CreateDevice(ctx context.Context, device *models.SensorDevice) error
	FindDeviceByID(ctx context.Context, id uint) (*models.SensorDevice, error)
	FindActiveDeviceByKeyHash(ctx context.Context, keyHash string) (*models.SensorDevice, error)
	TouchLastSeen(ctx context.Context, id uint, at time.Time) error
	ListDevices(ctx context.Context, filter DeviceFilter) ([]models.SensorDevice, error)
	ToggleActive(ctx context.Context, id uint) (*models.SensorDevice, error)
	// InsertReading stores reading only if the device has no reading newer
	// than notAfter. The throttle check and the insert commit together.
	InsertReading(ctx context.Context, reading *models.SensorReading, notAfter time.Time) error
	ListReadings(ctx context.Context, deviceID uint, since *time.Time, limit int) ([]models.SensorReading, error)
}

type sensorRepository struct {
	db *gorm.DB
}

// NewSensorRepository creates a new sensor repository instance
func NewSensorRepository(db *gorm.DB) SensorRepository {
	return &sensorRepository{db: db}
}

func (r *sensorRepository) CreateDevice(ctx context.Context, device *models.SensorDevice) error {
	err := r.db.WithContext(ctx).Create(device).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateDevice
	}
	return err
}

func (r *sensorRepository) FindDeviceByID(ctx context.Context, id uint) (*models.SensorDevice, error) {
	var device models.SensorDevice
	err := r.db.WithContext(ctx).First(&device, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *sensorRepository) FindActiveDeviceByKeyHash(ctx context.Context, keyHash string) (*models.SensorDevice, error) {
	var device models.SensorDevice
	err := r.db.WithContext(ctx).
		Where("api_key_hash = ? AND is_active = ?", keyHash, true).
		First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &device, nil
}

func (r *sensorRepository) TouchLastSeen(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.SensorDevice{}).
		Where("id = ?", id).
		Update("last_seen", at).Error
}

func (r *sensorRepository) ListDevices(ctx context.Context, filter DeviceFilter) ([]models.SensorDevice, error) {
	query := r.db.WithContext(ctx).Model(&models.SensorDevice{})

	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.OwnerID != nil {
		owned := r.db.Model(&models.Product{}).Select("id").Where("owner_id = ?", *filter.OwnerID)
		query = query.Where("product_id IN (?)", owned)
	}

	var devices []models.SensorDevice
	err := query.Order("created_at DESC").Order("id DESC").Find(&devices).Error
	return devices, err
}

func (r *sensorRepository) ToggleActive(ctx context.Context, id uint) (*models.SensorDevice, error) {
	var device models.SensorDevice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.SensorDevice{}).
			Where("id = ?", id).
			Update("is_active", gorm.Expr("NOT is_active"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDeviceNotFound
		}
		return tx.First(&device, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *sensorRepository) InsertReading(ctx context.Context, reading *models.SensorReading, notAfter time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.SensorDevice{}).
			Where("id = ? AND (last_reading_at IS NULL OR last_reading_at <= ?)", reading.DeviceID, notAfter).
			Update("last_reading_at", reading.CreatedAt)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRateLimited
		}

		return tx.Create(reading).Error
	})
}

func (r *sensorRepository) ListReadings(ctx context.Context, deviceID uint, since *time.Time, limit int) ([]models.SensorReading, error) {
	query := r.db.WithContext(ctx).Where("device_id = ?", deviceID)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}

	var readings []models.SensorReading
	err := query.Order("created_at DESC").Limit(limit).Find(&readings).Error
	return readings, err
}

// Repository errors
var (
	ErrDeviceNotFound  = errors.New("sensor device not found")
	ErrDuplicateDevice = errors.New("sensor device already exists")
	ErrRateLimited     = errors.New("reading submitted too soon")
)
