package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VoteSite is an external listing site that grants in-game currency on a
// per-account cooldown.
type VoteSite struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name          string    `gorm:"column:name;not null"`
	URL           string    `gorm:"column:url;not null"`
	CoinsReward   int       `gorm:"column:coins_reward;not null;default:0"`
	VipReward     int       `gorm:"column:vip_reward;not null;default:0"`
	CooldownHours int       `gorm:"column:cooldown_hours;not null;default:12"`
	Enabled       bool      `gorm:"column:enabled;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *VoteSite) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// VoteRecord is one accepted vote; the newest row per account/site anchors the
// cooldown window.
type VoteRecord struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SiteID    uuid.UUID `gorm:"column:site_id;type:uuid;not null;index:idx_vote_records_site_account"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;index:idx_vote_records_site_account"`
	VotedAt   time.Time `gorm:"column:voted_at;not null"`
}

func (r *VoteRecord) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
