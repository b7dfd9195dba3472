package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
)

// Repository manages persistence for provider orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.ProviderOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ProviderOrder, error)
	GetByToken(ctx context.Context, token string) (*models.ProviderOrder, error)
	GetByCancelSessionID(ctx context.Context, sessionID string) (*models.ProviderOrder, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.ProviderOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProviderOrder, error) {
	var order models.ProviderOrder
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByToken(ctx context.Context, token string) (*models.ProviderOrder, error) {
	var order models.ProviderOrder
	if err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByCancelSessionID(ctx context.Context, sessionID string) (*models.ProviderOrder, error) {
	var order models.ProviderOrder
	if err := r.db.WithContext(ctx).
		Where("cancel_session_id = ?", sessionID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// DeleteTerminalBefore removes completed and cancelled orders created before
// the cutoff. Pending rows are never touched here.
func (r *repository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?",
			[]enums.ProviderOrderStatus{enums.ProviderOrderStatusCompleted, enums.ProviderOrderStatusCancelled},
			cutoff).
		Delete(&models.ProviderOrder{})
	return result.RowsAffected, result.Error
}
