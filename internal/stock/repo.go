package stock

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
)

// Repository manages persistence for bundle stock and reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetBundle(ctx context.Context, bundleID uuid.UUID) (*models.BundleStock, error)
	ListBundles(ctx context.Context) ([]models.BundleStock, error)
	ReserveUnit(ctx context.Context, bundleID uuid.UUID) (bool, error)
	ReleaseUnit(ctx context.Context, bundleID uuid.UUID) (bool, error)
	SellUnit(ctx context.Context, bundleID uuid.UUID) (bool, error)
	CreateReservation(ctx context.Context, reservation *models.StockReservation) error
	GetReservation(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)
	TransitionReservation(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetBundle(ctx context.Context, bundleID uuid.UUID) (*models.BundleStock, error) {
	var bundle models.BundleStock
	if err := r.db.WithContext(ctx).
		Where("bundle_id = ?", bundleID).
		First(&bundle).Error; err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (r *repository) ListBundles(ctx context.Context) ([]models.BundleStock, error) {
	var bundles []models.BundleStock
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&bundles).Error; err != nil {
		return nil, err
	}
	return bundles, nil
}

// ReserveUnit takes one unit of headroom. The guard in the WHERE clause is the
// arbiter under concurrency: two racing reserves on the last unit resolve to
// one affected row and one miss.
func (r *repository) ReserveUnit(ctx context.Context, bundleID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.BundleStock{}).
		Where("bundle_id = ? AND reserved_qty + sold_qty < total_qty", bundleID).
		UpdateColumn("reserved_qty", gorm.Expr("reserved_qty + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ReleaseUnit(ctx context.Context, bundleID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.BundleStock{}).
		Where("bundle_id = ? AND reserved_qty > 0", bundleID).
		UpdateColumn("reserved_qty", gorm.Expr("reserved_qty - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SellUnit(ctx context.Context, bundleID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.BundleStock{}).
		Where("bundle_id = ? AND reserved_qty > 0", bundleID).
		UpdateColumns(map[string]any{
			"reserved_qty": gorm.Expr("reserved_qty - 1"),
			"sold_qty":     gorm.Expr("sold_qty + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.StockReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) GetReservation(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	var reservation models.StockReservation
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// TransitionReservation flips a reservation status only when the current
// status matches; a replayed transition affects zero rows.
func (r *repository) TransitionReservation(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumn("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
