package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/enums"
)

// LedgerEvent is the local record of a reward credit requested from the game
// server. The game server owns the balance; this row exists so a replayed
// claim or vote can be detected before a second credit is requested.
// (source, source_ref) is unique per credit.
type LedgerEvent struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	AccountID   uuid.UUID          `gorm:"column:account_id;type:uuid;not null;index"`
	CharacterID *uuid.UUID         `gorm:"column:character_id;type:uuid"`
	Source      enums.LedgerSource `gorm:"column:source;not null;uniqueIndex:ux_ledger_events_source_ref"`
	SourceRef   string             `gorm:"column:source_ref;not null;uniqueIndex:ux_ledger_events_source_ref"`
	Coins       int                `gorm:"column:coins;not null;default:0"`
	VipDays     int                `gorm:"column:vip_days;not null;default:0"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (e *LedgerEvent) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
