package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
)

// Repository covers the provider order status transitions the payment
// lifecycle needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.ProviderOrderStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// TransitionStatus flips an order status only from the expected current
// status; a replayed signal affects zero rows.
func (r *repository) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.ProviderOrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ProviderOrder{}).
		Where("id = ? AND status = ?", orderID, from).
		UpdateColumn("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
