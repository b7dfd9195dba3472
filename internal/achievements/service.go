package achievements

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
	"github.com/valcrest-online/valcrest-backend/pkg/gameapi"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

// statsEvaluator is the slice of the game server client unlock checks need.
// Requirement evaluation happens on the game server, which owns the live
// character stats; this service only records crossings.
type statsEvaluator interface {
	EvaluateAchievements(ctx context.Context, characterID uuid.UUID, codes []string) ([]gameapi.AchievementEvaluation, error)
}

// ProgressEntry pairs a catalog achievement with one character's progress.
type ProgressEntry struct {
	Achievement models.Achievement
	Current     int
	Unlocked    bool
	Claimed     bool
}

// ClaimResult reports the amounts actually credited for a claim.
type ClaimResult struct {
	Coins   int
	VipDays int
}

// Service tracks achievement progress and converts unlocks into rewards.
type Service interface {
	Catalog(ctx context.Context) ([]models.Achievement, error)
	Progress(ctx context.Context, characterID uuid.UUID) ([]ProgressEntry, error)
	CheckUnlocks(ctx context.Context, characterID uuid.UUID) ([]models.Achievement, error)
	Claim(ctx context.Context, accountID, characterID, achievementID uuid.UUID) (*ClaimResult, error)
}

type service struct {
	repo   Repository
	dbc    *db.Client
	game   statsEvaluator
	ledger ledger.Service
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires an achievements service with its collaborators.
func NewService(repo Repository, dbc *db.Client, game statsEvaluator, ledgerSvc ledger.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("achievements repository required")
	}
	if dbc == nil {
		return nil, fmt.Errorf("database client required")
	}
	if game == nil {
		return nil, fmt.Errorf("game server client required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		repo:   repo,
		dbc:    dbc,
		game:   game,
		ledger: ledgerSvc,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) Catalog(ctx context.Context) ([]models.Achievement, error) {
	return s.repo.ListAchievements(ctx)
}

func (s *service) Progress(ctx context.Context, characterID uuid.UUID) ([]ProgressEntry, error) {
	if characterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "character id is required")
	}
	catalog, err := s.repo.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListProgress(ctx, characterID)
	if err != nil {
		return nil, err
	}
	byAchievement := make(map[uuid.UUID]models.CharacterAchievement, len(rows))
	for _, row := range rows {
		byAchievement[row.AchievementID] = row
	}

	entries := make([]ProgressEntry, 0, len(catalog))
	for _, achievement := range catalog {
		entry := ProgressEntry{Achievement: achievement}
		if row, ok := byAchievement[achievement.ID]; ok {
			entry.Current = row.CurrentValue
			entry.Unlocked = row.IsUnlocked()
			entry.Claimed = row.IsClaimed()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CheckUnlocks refreshes progress from live game stats and returns the
// achievements that crossed their threshold on this check. Unlocking is
// one-way: a stat that later drops below the requirement does not re-lock.
func (s *service) CheckUnlocks(ctx context.Context, characterID uuid.UUID) ([]models.Achievement, error) {
	if characterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "character id is required")
	}
	catalog, err := s.repo.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, nil
	}

	byCode := make(map[string]models.Achievement, len(catalog))
	codes := make([]string, 0, len(catalog))
	for _, achievement := range catalog {
		byCode[achievement.Code] = achievement
		codes = append(codes, achievement.Code)
	}

	evaluations, err := s.game.EvaluateAchievements(ctx, characterID, codes)
	if err != nil {
		return nil, err
	}

	var unlocked []models.Achievement
	txErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, eval := range evaluations {
			achievement, ok := byCode[eval.Code]
			if !ok {
				continue
			}
			progress, err := repo.GetProgress(ctx, achievement.ID, characterID)
			if err != nil {
				return err
			}

			var unlockedAt *time.Time
			if eval.Met && (progress == nil || !progress.IsUnlocked()) {
				now := s.now()
				unlockedAt = &now
				unlocked = append(unlocked, achievement)
			}

			if progress == nil {
				row := &models.CharacterAchievement{
					AchievementID: achievement.ID,
					CharacterID:   characterID,
					CurrentValue:  eval.CurrentValue,
					UnlockedAt:    unlockedAt,
				}
				if err := repo.CreateProgress(ctx, row); err != nil {
					return err
				}
				continue
			}
			if err := repo.UpdateProgress(ctx, progress.ID, eval.CurrentValue, unlockedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.logg != nil && len(unlocked) > 0 {
		fields := map[string]any{"character_id": characterID.String(), "unlocked": len(unlocked)}
		s.logg.Info(s.logg.WithFields(ctx, fields), "achievements unlocked")
	}
	return unlocked, nil
}

// Claim converts an unlocked achievement into currency exactly once. The
// claimed flip marks the attempt; the ledger row keyed by the progress id is
// the credit fence. A claim whose credit failed in flight can therefore retry
// until the credit lands, and only a claim whose reward already exists in the
// ledger gets CodeAlreadyClaimed.
func (s *service) Claim(ctx context.Context, accountID, characterID, achievementID uuid.UUID) (*ClaimResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if characterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "character id is required")
	}
	if achievementID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "achievement id is required")
	}

	achievement, err := s.repo.GetAchievement(ctx, achievementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "achievement not found")
		}
		return nil, err
	}

	var progressID uuid.UUID
	txErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		progress, err := repo.GetProgress(ctx, achievementID, characterID)
		if err != nil {
			return err
		}
		if progress == nil || !progress.IsUnlocked() {
			return pkgerrors.New(pkgerrors.CodeConflict, "achievement is not unlocked")
		}
		progressID = progress.ID
		_, err = repo.MarkClaimed(ctx, progress.ID, s.now())
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	event, credited, err := s.ledger.Credit(ctx, ledger.CreditInput{
		AccountID:   accountID,
		CharacterID: &characterID,
		Source:      enums.LedgerSourceAchievement,
		SourceRef:   progressID.String(),
		Coins:       achievement.RewardCoins,
		VipDays:     achievement.RewardVip,
		Reason:      "achievement reward: " + achievement.Code,
	})
	if err != nil {
		return nil, err
	}
	if !credited {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyClaimed, "achievement reward already claimed")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "achievement_code", achievement.Code), "achievement claimed")
	}
	return &ClaimResult{Coins: event.Coins, VipDays: event.VipDays}, nil
}
