package votes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
)

// Repository manages persistence for vote sites and vote records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetSite(ctx context.Context, siteID uuid.UUID) (*models.VoteSite, error)
	ListEnabledSites(ctx context.Context) ([]models.VoteSite, error)
	LastVote(ctx context.Context, siteID, accountID uuid.UUID) (*models.VoteRecord, error)
	CreateVote(ctx context.Context, record *models.VoteRecord) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a votes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetSite(ctx context.Context, siteID uuid.UUID) (*models.VoteSite, error) {
	var site models.VoteSite
	if err := r.db.WithContext(ctx).
		Where("id = ?", siteID).
		First(&site).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *repository) ListEnabledSites(ctx context.Context) ([]models.VoteSite, error) {
	var sites []models.VoteSite
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("name ASC").
		Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}

// LastVote returns the newest vote for the account on the site, or nil when
// the account has never voted there.
func (r *repository) LastVote(ctx context.Context, siteID, accountID uuid.UUID) (*models.VoteRecord, error) {
	var record models.VoteRecord
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND account_id = ?", siteID, accountID).
		Order("voted_at DESC").
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) CreateVote(ctx context.Context, record *models.VoteRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}
