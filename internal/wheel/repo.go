package wheel

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
)

// Repository manages persistence for wheel prizes and spins.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListEnabledPrizes(ctx context.Context) ([]models.WheelPrize, error)
	LastSpin(ctx context.Context, accountID uuid.UUID) (*models.WheelSpin, error)
	CreateSpin(ctx context.Context, spin *models.WheelSpin) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wheel repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListEnabledPrizes(ctx context.Context) ([]models.WheelPrize, error) {
	var prizes []models.WheelPrize
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("created_at ASC").
		Find(&prizes).Error; err != nil {
		return nil, err
	}
	return prizes, nil
}

// LastSpin returns the newest spin for the account, or nil when the account
// has never spun.
func (r *repository) LastSpin(ctx context.Context, accountID uuid.UUID) (*models.WheelSpin, error) {
	var spin models.WheelSpin
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("spun_at DESC").
		First(&spin).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &spin, nil
}

func (r *repository) CreateSpin(ctx context.Context, spin *models.WheelSpin) error {
	return r.db.WithContext(ctx).Create(spin).Error
}
