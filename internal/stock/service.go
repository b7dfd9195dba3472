package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

// Service defines the reservation lifecycle for limited bundle stock.
type Service interface {
	GetBundle(ctx context.Context, bundleID uuid.UUID) (*models.BundleStock, error)
	ListBundles(ctx context.Context) ([]models.BundleStock, error)
	Reserve(ctx context.Context, tx *gorm.DB, bundleID uuid.UUID) (*models.StockReservation, error)
	Release(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID) error
	Finalize(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires a stock service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) GetBundle(ctx context.Context, bundleID uuid.UUID) (*models.BundleStock, error) {
	if bundleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bundle id is required")
	}
	bundle, err := s.repo.GetBundle(ctx, bundleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bundle not found")
		}
		return nil, err
	}
	return bundle, nil
}

func (s *service) ListBundles(ctx context.Context) ([]models.BundleStock, error) {
	return s.repo.ListBundles(ctx)
}

// Reserve holds one unit for the duration of a checkout attempt. The caller
// owns the transaction so the hold commits together with the order row.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, bundleID uuid.UUID) (*models.StockReservation, error) {
	if bundleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bundle id is required")
	}
	repo := s.repo.WithTx(tx)

	if _, err := repo.GetBundle(ctx, bundleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bundle not found")
		}
		return nil, err
	}

	taken, err := repo.ReserveUnit(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if !taken {
		return nil, pkgerrors.New(pkgerrors.CodeSoldOut, "bundle is sold out")
	}

	reservation := &models.StockReservation{
		BundleID: bundleID,
		Status:   enums.ReservationStatusActive,
	}
	if err := repo.CreateReservation(ctx, reservation); err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "reservation_id", reservation.ID.String()), "stock unit reserved")
	}
	return reservation, nil
}

// Release returns a held unit to the pool. Releasing a reservation that is no
// longer active is a no-op, so a replayed cancel signal cannot double-free.
func (s *service) Release(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID) error {
	if reservationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation id is required")
	}
	repo := s.repo.WithTx(tx)

	reservation, err := repo.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return err
	}

	flipped, err := repo.TransitionReservation(ctx, reservationID, enums.ReservationStatusActive, enums.ReservationStatusReleased)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}

	if _, err := repo.ReleaseUnit(ctx, reservation.BundleID); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "reservation_id", reservationID.String()), "stock reservation released")
	}
	return nil
}

// Finalize converts a held unit into a sold unit after payment confirmation.
func (s *service) Finalize(ctx context.Context, tx *gorm.DB, reservationID uuid.UUID) error {
	if reservationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation id is required")
	}
	repo := s.repo.WithTx(tx)

	reservation, err := repo.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return err
	}

	flipped, err := repo.TransitionReservation(ctx, reservationID, enums.ReservationStatusActive, enums.ReservationStatusSold)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}

	if _, err := repo.SellUnit(ctx, reservation.BundleID); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "reservation_id", reservationID.String()), "stock reservation finalized")
	}
	return nil
}
