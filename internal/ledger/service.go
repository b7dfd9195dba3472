package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/pkg/db"
	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/gameapi"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
	"github.com/valcrest-online/valcrest-backend/pkg/metrics"
	"github.com/valcrest-online/valcrest-backend/pkg/outbox"
	"github.com/valcrest-online/valcrest-backend/pkg/outbox/payloads"
)

// RewardCreditor is the slice of the game server client this service needs.
type RewardCreditor interface {
	CreditReward(ctx context.Context, req gameapi.CreditRequest) (*gameapi.CreditConfirmation, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreditInput captures one reward credit request.
type CreditInput struct {
	AccountID   uuid.UUID
	CharacterID *uuid.UUID
	Source      enums.LedgerSource
	SourceRef   string
	Coins       int
	VipDays     int
	Reason      string
}

// Service records reward credits exactly once per (source, source_ref) and
// forwards them to the game server, which owns the balances.
type Service interface {
	Credit(ctx context.Context, input CreditInput) (*models.LedgerEvent, bool, error)
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]models.LedgerEvent, error)
}

type service struct {
	repo    Repository
	dbc     *db.Client
	game    RewardCreditor
	events  eventEmitter
	rewards *metrics.RewardMetrics
	logg    *logger.Logger
}

// NewService wires a ledger service with its collaborators. The metrics and
// logger arguments may be nil.
func NewService(repo Repository, dbc *db.Client, game RewardCreditor, events eventEmitter, rewards *metrics.RewardMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if dbc == nil {
		return nil, fmt.Errorf("database client required")
	}
	if game == nil {
		return nil, fmt.Errorf("game server client required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:    repo,
		dbc:     dbc,
		game:    game,
		events:  events,
		rewards: rewards,
		logg:    logg,
	}, nil
}

// Credit issues the reward at most once. The returned bool reports whether a
// credit happened on this call; a replay returns the original event and false.
func (s *service) Credit(ctx context.Context, input CreditInput) (*models.LedgerEvent, bool, error) {
	if input.AccountID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if !input.Source.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger source %q", input.Source))
	}
	if input.SourceRef == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "source ref is required")
	}
	if input.Coins < 0 || input.VipDays < 0 {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "reward amounts must not be negative")
	}

	existing, err := s.repo.FindBySourceRef(ctx, input.Source, input.SourceRef)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	confirmation, err := s.game.CreditReward(ctx, gameapi.CreditRequest{
		AccountID:   input.AccountID,
		CharacterID: input.CharacterID,
		Coins:       input.Coins,
		VipDays:     input.VipDays,
		Reason:      input.Reason,
		Reference:   input.SourceRef,
	})
	if err != nil {
		return nil, false, err
	}

	event := &models.LedgerEvent{
		AccountID:   input.AccountID,
		CharacterID: input.CharacterID,
		Source:      input.Source,
		SourceRef:   input.SourceRef,
		Coins:       confirmation.Coins,
		VipDays:     confirmation.VipDays,
	}
	txErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventRewardCredited,
			AggregateType: enums.OutboxAggregateReward,
			AggregateID:   event.ID,
			Actor:         &outbox.ActorRef{AccountID: input.AccountID, CharacterID: input.CharacterID},
			Data: payloads.RewardCredited{
				AccountID:   input.AccountID,
				CharacterID: input.CharacterID,
				Source:      input.Source.String(),
				SourceRef:   input.SourceRef,
				Coins:       event.Coins,
				VipDays:     event.VipDays,
			},
		})
	})
	if txErr != nil {
		// a concurrent credit for the same source ref won the insert
		if db.IsUniqueViolation(txErr, "ux_ledger_events_source_ref") {
			winner, findErr := s.repo.FindBySourceRef(ctx, input.Source, input.SourceRef)
			if findErr != nil {
				return nil, false, findErr
			}
			return winner, false, nil
		}
		return nil, false, txErr
	}

	s.rewards.IncCredit(input.Source.String(), event.Coins)
	if s.logg != nil {
		fields := map[string]any{
			"source":     input.Source.String(),
			"source_ref": input.SourceRef,
			"coins":      event.Coins,
			"vip_days":   event.VipDays,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "reward credited")
	}
	return event, true, nil
}

func (s *service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]models.LedgerEvent, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	return s.repo.ListByAccountID(ctx, accountID, limit)
}
