package models

import "time"

// Product is a catalog item grown on a farm. Passport carries the structured
// provenance data (origin, variety, harvest date, certifications).
type Product struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	FarmID           uint      `gorm:"not null;index" json:"farm_id"`
	OwnerID          uint      `gorm:"not null;index" json:"owner_id"`
	Name             string    `gorm:"size:200;not null" json:"name"`
	Category         string    `gorm:"size:100;not null" json:"category"`
	ShortDescription *string   `gorm:"type:text" json:"short_description"`
	Passport         JSONMap   `gorm:"not null" json:"passport"`
	AIRecommendation *string   `gorm:"type:text" json:"ai_recommendation"`
	IsActive         bool      `gorm:"not null;default:true" json:"is_active"`
	IsGrowing        bool      `gorm:"not null;default:false" json:"is_growing"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Product) TableName() string {
	return "products"
}
