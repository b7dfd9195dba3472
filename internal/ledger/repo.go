package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
)

// Repository manages persistence for reward ledger events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.LedgerEvent) error
	FindBySourceRef(ctx context.Context, source enums.LedgerSource, sourceRef string) (*models.LedgerEvent, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]models.LedgerEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.LedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindBySourceRef(ctx context.Context, source enums.LedgerSource, sourceRef string) (*models.LedgerEvent, error) {
	var event models.LedgerEvent
	if err := r.db.WithContext(ctx).
		Where("source = ? AND source_ref = ?", source, sourceRef).
		First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) ListByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]models.LedgerEvent, error) {
	query := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var events []models.LedgerEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
