package models

import "time"

// Community goal kinds
const (
	GoalBoosts    = "boosts"
	GoalSpent     = "spent"
	GoalAdoptions = "adoptions"
)

// GameItem is a boost sold in the game shop. EffectType is prefixed with its
// category (water_, fertilizer_, protection_, climate_, soil_, care_).
type GameItem struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	Name        string  `gorm:"size:100;not null" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
	Price       int64   `gorm:"not null" json:"price"`
	Icon        string  `gorm:"size:50;not null" json:"icon"`
	EffectType  string  `gorm:"size:50;not null" json:"effect_type"`
	IsActive    bool    `gorm:"not null;default:true" json:"is_active"`
}

func (GameItem) TableName() string {
	return "game_items"
}

// Adoption links a user to a growing product they look after.
type Adoption struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_adoptions_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_adoptions_user_product;index" json:"product_id"`
	Nickname  *string   `gorm:"size:100" json:"nickname"`
	Price     int64     `gorm:"not null" json:"price"`
	AdoptedAt time.Time `gorm:"not null" json:"adopted_at"`
}

func (Adoption) TableName() string {
	return "adoptions"
}

// UserAction records a boost applied to a product. Price is what was charged.
type UserAction struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	ProductID  uint      `gorm:"not null;index" json:"product_id"`
	ActionType string    `gorm:"size:50;not null" json:"action_type"`
	ItemID     *uint     `json:"item_id"`
	Price      int64     `gorm:"not null" json:"price"`
	CreatedAt  time.Time `json:"created_at"`
}

func (UserAction) TableName() string {
	return "user_actions"
}

type CommunityGoal struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Title        string     `gorm:"size:200;not null" json:"title"`
	Description  *string    `gorm:"type:text" json:"description"`
	GoalType     string     `gorm:"size:20;not null;index" json:"goal_type"`
	TargetValue  int64      `gorm:"not null" json:"target_value"`
	CurrentValue int64      `gorm:"not null;default:0" json:"current_value"`
	Reward       *string    `gorm:"size:200" json:"reward"`
	StartsAt     *time.Time `json:"starts_at"`
	EndsAt       *time.Time `json:"ends_at"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
}

func (CommunityGoal) TableName() string {
	return "community_goals"
}
