package models

import (
	"time"
)

// RefreshToken is one link of a refresh-token rotation chain. Only the keyed
// digest of the secret is stored.
type RefreshToken struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	TokenHash  string    `gorm:"size:128;uniqueIndex;not null" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `gorm:"not null" json:"expires_at"`
	Revoked    bool      `gorm:"not null" json:"revoked"`
	ReplacedBy *uint     `json:"replaced_by,omitempty"`
	DeviceInfo *string   `gorm:"type:text" json:"device_info,omitempty"`
}

// TableName overrides the table name
func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

// IsExpired reports whether the record's lifetime ended before now.
func (t RefreshToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
