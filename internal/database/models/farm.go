package models

import "time"

type Farm struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName overrides the table name
func (Farm) TableName() string {
	return "farms"
}
