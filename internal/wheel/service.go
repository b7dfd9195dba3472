package wheel

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/internal/ledger"
	"github.com/valcrest-online/valcrest-backend/pkg/db"
	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

const (
	defaultSpinCooldown = 24 * time.Hour
	spinLockTTL         = 10 * time.Second
)

type locker interface {
	AcquireLock(ctx context.Context, scope string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope string) error
}

// Status is the spin eligibility projection for one account; the same
// seconds_remaining / can_spin contract the vote sites use.
type Status struct {
	Prizes           []models.WheelPrize
	LastSpinAt       *time.Time
	SecondsRemaining *int64
	CanSpin          bool
}

// SpinResult reports the prize rolled and the amounts credited.
type SpinResult struct {
	Prize   models.WheelPrize
	Coins   int
	VipDays int
}

// Service runs the chance wheel: a weighted prize roll behind a per-account
// cooldown.
type Service interface {
	Status(ctx context.Context, accountID uuid.UUID) (*Status, error)
	Spin(ctx context.Context, accountID uuid.UUID) (*SpinResult, error)
}

type service struct {
	repo     Repository
	dbc      *db.Client
	ledger   ledger.Service
	locks    locker
	cooldown time.Duration
	logg     *logger.Logger
	now      func() time.Time
	roll     func(total int) int
}

// NewService wires a wheel service with its collaborators. A zero cooldown
// falls back to the 24h default.
func NewService(repo Repository, dbc *db.Client, ledgerSvc ledger.Service, locks locker, cooldown time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wheel repository required")
	}
	if dbc == nil {
		return nil, fmt.Errorf("database client required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if locks == nil {
		return nil, fmt.Errorf("lock client required")
	}
	if cooldown <= 0 {
		cooldown = defaultSpinCooldown
	}
	return &service{
		repo:     repo,
		dbc:      dbc,
		ledger:   ledgerSvc,
		locks:    locks,
		cooldown: cooldown,
		logg:     logg,
		now:      time.Now,
		roll:     rand.IntN,
	}, nil
}

func (s *service) Status(ctx context.Context, accountID uuid.UUID) (*Status, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	prizes, err := s.repo.ListEnabledPrizes(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.repo.LastSpin(ctx, accountID)
	if err != nil {
		return nil, err
	}
	status := s.statusFor(last)
	status.Prizes = prizes
	return status, nil
}

// Spin rolls a weighted prize once per cooldown window and credits it through
// the ledger, keyed by the spin record.
func (s *service) Spin(ctx context.Context, accountID uuid.UUID) (*SpinResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	scope := "wheel:" + accountID.String()
	acquired, err := s.locks.AcquireLock(ctx, scope, spinLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeTooEarly, "a spin is already in flight")
	}
	defer func() {
		if releaseErr := s.locks.ReleaseLock(ctx, scope); releaseErr != nil && s.logg != nil {
			s.logg.Warn(ctx, "failed to release spin lock")
		}
	}()

	prizes, err := s.repo.ListEnabledPrizes(ctx)
	if err != nil {
		return nil, err
	}
	if len(prizes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "the wheel has no prizes configured")
	}

	prize, err := s.pickPrize(prizes)
	if err != nil {
		return nil, err
	}

	spin := &models.WheelSpin{
		AccountID:  accountID,
		PrizeID:    prize.ID,
		CoinsWon:   prize.Coins,
		VipDaysWon: prize.VipDays,
		SpunAt:     s.now(),
	}
	var blocking *models.WheelSpin
	txErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		last, err := repo.LastSpin(ctx, accountID)
		if err != nil {
			return err
		}
		if status := s.statusFor(last); !status.CanSpin {
			blocking = last
			return pkgerrors.New(pkgerrors.CodeTooEarly, "the spin cooldown has not elapsed").
				WithDetails(map[string]any{"seconds_remaining": *status.SecondsRemaining})
		}
		return repo.CreateSpin(ctx, spin)
	})
	if txErr != nil {
		// The blocking spin consumed the window; if its credit never
		// landed, re-drive it against the recorded winnings instead of
		// bouncing the caller with an empty-handed cooldown.
		if blocking == nil {
			return nil, txErr
		}
		event, credited, creditErr := s.credit(ctx, accountID, *blocking, s.prizeLabel(prizes, blocking.PrizeID))
		if creditErr != nil {
			return nil, creditErr
		}
		if !credited {
			return nil, txErr
		}
		return &SpinResult{
			Prize:   s.prizeFor(prizes, *blocking),
			Coins:   event.Coins,
			VipDays: event.VipDays,
		}, nil
	}

	event, _, err := s.credit(ctx, accountID, *spin, prize.Label)
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "prize", prize.Label), "wheel spin accepted")
	}
	return &SpinResult{Prize: prize, Coins: event.Coins, VipDays: event.VipDays}, nil
}

func (s *service) credit(ctx context.Context, accountID uuid.UUID, spin models.WheelSpin, label string) (*models.LedgerEvent, bool, error) {
	return s.ledger.Credit(ctx, ledger.CreditInput{
		AccountID: accountID,
		Source:    enums.LedgerSourceWheel,
		SourceRef: spin.ID.String(),
		Coins:     spin.CoinsWon,
		VipDays:   spin.VipDaysWon,
		Reason:    "wheel prize: " + label,
	})
}

// prizeFor resolves the prize a past spin recorded; a since-disabled prize is
// synthesized from the recorded winnings.
func (s *service) prizeFor(prizes []models.WheelPrize, spin models.WheelSpin) models.WheelPrize {
	for _, prize := range prizes {
		if prize.ID == spin.PrizeID {
			return prize
		}
	}
	return models.WheelPrize{ID: spin.PrizeID, Coins: spin.CoinsWon, VipDays: spin.VipDaysWon}
}

func (s *service) prizeLabel(prizes []models.WheelPrize, prizeID uuid.UUID) string {
	for _, prize := range prizes {
		if prize.ID == prizeID {
			return prize.Label
		}
	}
	return "recovered prize"
}

// pickPrize rolls over the cumulative weights; every enabled prize with a
// positive weight has a proportional chance.
func (s *service) pickPrize(prizes []models.WheelPrize) (models.WheelPrize, error) {
	total := 0
	for _, prize := range prizes {
		if prize.Weight > 0 {
			total += prize.Weight
		}
	}
	if total <= 0 {
		return models.WheelPrize{}, pkgerrors.New(pkgerrors.CodeConflict, "the wheel has no weighted prizes")
	}
	roll := s.roll(total)
	for _, prize := range prizes {
		if prize.Weight <= 0 {
			continue
		}
		if roll < prize.Weight {
			return prize, nil
		}
		roll -= prize.Weight
	}
	return prizes[len(prizes)-1], nil
}

func (s *service) statusFor(last *models.WheelSpin) *Status {
	status := &Status{CanSpin: true}
	if last == nil {
		return status
	}
	status.LastSpinAt = &last.SpunAt
	remaining := int64(last.SpunAt.Add(s.cooldown).Sub(s.now()) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	status.SecondsRemaining = &remaining
	status.CanSpin = remaining <= 0
	return status
}
