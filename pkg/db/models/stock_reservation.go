package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/enums"
)

// StockReservation is a temporary hold on one unit of bundle stock for the
// lifetime of a checkout attempt.
type StockReservation struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	BundleID  uuid.UUID               `gorm:"column:bundle_id;type:uuid;not null;index"`
	Status    enums.ReservationStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *StockReservation) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
