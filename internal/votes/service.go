package votes

import (
	"context"
	"errors"
	"fmt"
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

const submitLockTTL = 10 * time.Second

// locker is the slice of the redis client vote submission needs to bridge the
// two-tabs race. The database check stays the sole arbiter.
type locker interface {
	AcquireLock(ctx context.Context, scope string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope string) error
}

// SiteStatus is the eligibility projection for one site and one account.
// SecondsRemaining and CanVote are the entire contract: CanVote is true iff
// SecondsRemaining is nil or has reached zero.
type SiteStatus struct {
	Site             models.VoteSite
	LastVoteAt       *time.Time
	SecondsRemaining *int64
	CanVote          bool
}

// SubmitResult reports the rewards credited for an accepted vote.
type SubmitResult struct {
	RecordID uuid.UUID
	Coins    int
	VipDays  int
}

// Aggregate sums the rewards currently claimable across sites.
type Aggregate struct {
	Coins   int
	VipDays int
	Sites   int
}

// Service governs per-site vote cooldowns and reward crediting.
type Service interface {
	ListSites(ctx context.Context, accountID uuid.UUID) ([]SiteStatus, error)
	Submit(ctx context.Context, accountID, siteID uuid.UUID) (*SubmitResult, error)
}

type service struct {
	repo   Repository
	dbc    *db.Client
	ledger ledger.Service
	locks  locker
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires a votes service with its collaborators.
func NewService(repo Repository, dbc *db.Client, ledgerSvc ledger.Service, locks locker, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("votes repository required")
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
	return &service{
		repo:   repo,
		dbc:    dbc,
		ledger: ledgerSvc,
		locks:  locks,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) ListSites(ctx context.Context, accountID uuid.UUID) ([]SiteStatus, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	sites, err := s.repo.ListEnabledSites(ctx)
	if err != nil {
		return nil, err
	}
	statuses := make([]SiteStatus, 0, len(sites))
	for _, site := range sites {
		last, err := s.repo.LastVote(ctx, site.ID, accountID)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, s.statusFor(site, last))
	}
	return statuses, nil
}

// Submit accepts a vote when the site cooldown has elapsed and credits the
// site rewards exactly once, keyed by the new vote record.
func (s *service) Submit(ctx context.Context, accountID, siteID uuid.UUID) (*SubmitResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if siteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "site id is required")
	}

	scope := fmt.Sprintf("vote:%s:%s", accountID, siteID)
	acquired, err := s.locks.AcquireLock(ctx, scope, submitLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeTooEarly, "a vote for this site is already in flight")
	}
	defer func() {
		if releaseErr := s.locks.ReleaseLock(ctx, scope); releaseErr != nil && s.logg != nil {
			s.logg.Warn(ctx, "failed to release vote lock")
		}
	}()

	site, err := s.repo.GetSite(ctx, siteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vote site not found")
		}
		return nil, err
	}
	if !site.Enabled {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vote site not found")
	}

	record := &models.VoteRecord{SiteID: siteID, AccountID: accountID, VotedAt: s.now()}
	var blocking *models.VoteRecord
	txErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		last, err := repo.LastVote(ctx, siteID, accountID)
		if err != nil {
			return err
		}
		if status := s.statusFor(*site, last); !status.CanVote {
			blocking = last
			return pkgerrors.New(pkgerrors.CodeTooEarly, "the vote cooldown has not elapsed").
				WithDetails(map[string]any{"seconds_remaining": *status.SecondsRemaining})
		}
		return repo.CreateVote(ctx, record)
	})
	if txErr != nil {
		// The blocking vote consumed the window; its ledger row may be
		// missing when the credit failed in flight on the original call.
		// Re-drive it so the window is never spent with nothing credited.
		if blocking == nil {
			return nil, txErr
		}
		event, credited, creditErr := s.credit(ctx, accountID, *site, blocking.ID)
		if creditErr != nil {
			return nil, creditErr
		}
		if !credited {
			return nil, txErr
		}
		return &SubmitResult{RecordID: blocking.ID, Coins: event.Coins, VipDays: event.VipDays}, nil
	}

	event, _, err := s.credit(ctx, accountID, *site, record.ID)
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "site_id", siteID.String()), "vote accepted")
	}
	return &SubmitResult{RecordID: record.ID, Coins: event.Coins, VipDays: event.VipDays}, nil
}

func (s *service) credit(ctx context.Context, accountID uuid.UUID, site models.VoteSite, recordID uuid.UUID) (*models.LedgerEvent, bool, error) {
	return s.ledger.Credit(ctx, ledger.CreditInput{
		AccountID: accountID,
		Source:    enums.LedgerSourceVote,
		SourceRef: recordID.String(),
		Coins:     site.CoinsReward,
		VipDays:   site.VipReward,
		Reason:    "vote reward: " + site.Name,
	})
}

func (s *service) statusFor(site models.VoteSite, last *models.VoteRecord) SiteStatus {
	status := SiteStatus{Site: site, CanVote: true}
	if last == nil {
		return status
	}
	status.LastVoteAt = &last.VotedAt
	cooldown := time.Duration(site.CooldownHours) * time.Hour
	remaining := int64(last.VotedAt.Add(cooldown).Sub(s.now()) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	status.SecondsRemaining = &remaining
	status.CanVote = remaining <= 0
	return status
}

// AggregateEligible sums the rewards claimable right now. It is a pure
// projection over the statuses passed in and holds no state of its own.
func AggregateEligible(statuses []SiteStatus) Aggregate {
	var agg Aggregate
	for _, status := range statuses {
		if !status.CanVote {
			continue
		}
		agg.Coins += status.Site.CoinsReward
		agg.VipDays += status.Site.VipReward
		agg.Sites++
	}
	return agg
}
