package models

import (
	"time"
)

// SensorDevice is a physical device that authenticates with an API key.
type SensorDevice struct {
	ID            uint       `gorm:"primarykey" json:"id"`
	Name          string     `gorm:"size:200;not null" json:"name"`
	APIKeyHash    string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	IsActive      bool       `gorm:"not null" json:"is_active"`
	ProductID     *uint      `gorm:"index" json:"product_id"`
	LastSeen      *time.Time `json:"last_seen"`
	LastReadingAt *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TableName overrides the table name
func (SensorDevice) TableName() string {
	return "sensor_devices"
}

// SensorReading is a single accepted measurement.
type SensorReading struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	DeviceID    uint      `gorm:"not null;index" json:"device_id"`
	Temperature *float64  `json:"temperature"`
	PH          *float64  `gorm:"column:ph" json:"ph"`
	Salinity    *float64  `json:"salinity"`
	Humidity    *int      `json:"humidity"`
	RawData     JSONMap   `gorm:"not null" json:"raw_data"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName overrides the table name
func (SensorReading) TableName() string {
	return "sensor_readings"
}
