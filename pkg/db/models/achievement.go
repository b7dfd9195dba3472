package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/enums"
)

// Achievement is a catalog entry describing a threshold and its reward.
type Achievement struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Code             string                `gorm:"column:code;uniqueIndex;not null"`
	Name             string                `gorm:"column:name;not null"`
	Description      string                `gorm:"column:description"`
	RequirementType  enums.RequirementType `gorm:"column:requirement_type;not null"`
	RequirementValue int                   `gorm:"column:requirement_value;not null"`
	RewardCoins      int                   `gorm:"column:reward_coins;not null;default:0"`
	RewardVip        int                   `gorm:"column:reward_vip;not null;default:0"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (a *Achievement) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CharacterAchievement joins a character to its progress on one achievement.
// Invariants: claimed_at set implies unlocked_at set; unlocking is recorded
// once and never reversed.
type CharacterAchievement struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	AchievementID uuid.UUID  `gorm:"column:achievement_id;type:uuid;not null;uniqueIndex:ux_character_achievement"`
	CharacterID   uuid.UUID  `gorm:"column:character_id;type:uuid;not null;uniqueIndex:ux_character_achievement"`
	CurrentValue  int        `gorm:"column:current_value;not null;default:0"`
	UnlockedAt    *time.Time `gorm:"column:unlocked_at"`
	ClaimedAt     *time.Time `gorm:"column:claimed_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CharacterAchievement) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsUnlocked reports whether the achievement has been recorded as unlocked.
func (c *CharacterAchievement) IsUnlocked() bool {
	return c != nil && c.UnlockedAt != nil
}

// IsClaimed reports whether the reward has been converted to currency.
func (c *CharacterAchievement) IsClaimed() bool {
	return c != nil && c.ClaimedAt != nil
}
