package models

import (
	"time"

	"github.com/google/uuid"
)

// BundleStock tracks limited-quantity promotional bundle counts.
// Invariant: reserved_qty + sold_qty <= total_qty at all times.
type BundleStock struct {
	BundleID    uuid.UUID `gorm:"column:bundle_id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	TotalQty    int       `gorm:"column:total_qty;not null"`
	ReservedQty int       `gorm:"column:reserved_qty;not null;default:0"`
	SoldQty     int       `gorm:"column:sold_qty;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
