package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WheelPrize is one weighted slice of the chance wheel.
type WheelPrize struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Label     string    `gorm:"column:label;not null"`
	Weight    int       `gorm:"column:weight;not null"`
	Coins     int       `gorm:"column:coins;not null;default:0"`
	VipDays   int       `gorm:"column:vip_days;not null;default:0"`
	Enabled   bool      `gorm:"column:enabled;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *WheelPrize) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// WheelSpin records one accepted spin; the newest row per account anchors the
// spin cooldown.
type WheelSpin struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	AccountID  uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`
	PrizeID    uuid.UUID `gorm:"column:prize_id;type:uuid;not null"`
	CoinsWon   int       `gorm:"column:coins_won;not null;default:0"`
	VipDaysWon int       `gorm:"column:vip_days_won;not null;default:0"`
	SpunAt     time.Time `gorm:"column:spun_at;not null"`
}

func (s *WheelSpin) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
