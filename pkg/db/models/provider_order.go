package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/enums"
)

// ProviderOrder is one checkout attempt against the payment provider,
// regardless of originating flow. The row is transient bookkeeping: it exists
// so late cancel signals and provider confirmations can be matched back to the
// attempt that produced them.
type ProviderOrder struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	Token           string                    `gorm:"column:token;uniqueIndex;not null"`
	Flow            enums.OrderFlow           `gorm:"column:flow;not null"`
	Status          enums.ProviderOrderStatus `gorm:"column:status;not null;default:'pending'"`
	AccountID       uuid.UUID                 `gorm:"column:account_id;type:uuid;not null;index"`
	CharacterID     *uuid.UUID                `gorm:"column:character_id;type:uuid"`
	ReservationID   *uuid.UUID                `gorm:"column:reservation_id;type:uuid"`
	CancelSessionID string                    `gorm:"column:cancel_session_id;uniqueIndex;not null"`
	AmountCents     int                       `gorm:"column:amount_cents;not null;default:0"`
	RedirectURL     *string                   `gorm:"column:redirect_url"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *ProviderOrder) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
