package models

import (
	"time"
)

// User roles
const (
	RoleConsumer = "consumer"
	RoleFarmer   = "farmer"
	RoleAdmin    = "admin"
)

// User represents the user domain entity
type User struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	Email          string    `gorm:"size:320;uniqueIndex;not null" json:"email"`
	HashedPassword string    `gorm:"size:200;not null" json:"-"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	FirstName      string    `gorm:"size:100;not null" json:"first_name"`
	LastName       string    `gorm:"size:100;not null" json:"last_name"`
	MiddleName     *string   `gorm:"size:100" json:"middle_name"`
	Role           string    `gorm:"size:30;not null" json:"role"`
	Balance        int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// CanManageSensors reports whether the user may register and inspect sensors.
func (u *User) CanManageSensors() bool {
	return u.Role == RoleFarmer || u.Role == RoleAdmin
}
