package payments

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/internal/ledger"
	"github.com/valcrest-online/valcrest-backend/internal/stock"
	"github.com/valcrest-online/valcrest-backend/pkg/db"
	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
	"github.com/valcrest-online/valcrest-backend/pkg/outbox"
	"github.com/valcrest-online/valcrest-backend/pkg/outbox/payloads"
)

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service reacts to terminal payment signals for provider orders. Both
// handlers tolerate replays: the status transition is the gate, and a signal
// for an order already in a terminal state does nothing.
type Service interface {
	OnOrderCancelled(ctx context.Context, order *models.ProviderOrder) error
	OnOrderCompleted(ctx context.Context, order *models.ProviderOrder) error
}

type service struct {
	repo       Repository
	dbc        *db.Client
	stock      stock.Service
	ledgerRepo ledger.Repository
	events     eventEmitter
	logg       *logger.Logger
}

// NewService wires a payments service with its collaborators.
func NewService(repo Repository, dbc *db.Client, stockSvc stock.Service, ledgerRepo ledger.Repository, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if dbc == nil {
		return nil, fmt.Errorf("database client required")
	}
	if stockSvc == nil {
		return nil, fmt.Errorf("stock service required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:       repo,
		dbc:        dbc,
		stock:      stockSvc,
		ledgerRepo: ledgerRepo,
		events:     events,
		logg:       logg,
	}, nil
}

func (s *service) OnOrderCancelled(ctx context.Context, order *models.ProviderOrder) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	return s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		flipped, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, enums.ProviderOrderStatusPending, enums.ProviderOrderStatusCancelled)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		if order.ReservationID != nil {
			if err := s.stock.Release(ctx, tx, *order.ReservationID); err != nil {
				return err
			}
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCancelled,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{AccountID: order.AccountID, CharacterID: order.CharacterID},
			Data: payloads.OrderCancelled{
				OrderID:   order.ID,
				Token:     order.Token,
				Flow:      order.Flow.String(),
				AccountID: order.AccountID,
			},
		}); err != nil {
			return err
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "provider order cancelled")
		}
		return nil
	})
}

func (s *service) OnOrderCompleted(ctx context.Context, order *models.ProviderOrder) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	return s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		flipped, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, enums.ProviderOrderStatusPending, enums.ProviderOrderStatusCompleted)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		if order.ReservationID != nil {
			if err := s.stock.Finalize(ctx, tx, *order.ReservationID); err != nil {
				return err
			}
		}

		// local paid record; the game server already settled the payment
		paid := &models.LedgerEvent{
			AccountID:   order.AccountID,
			CharacterID: order.CharacterID,
			Source:      enums.LedgerSourceOrder,
			SourceRef:   order.ID.String(),
		}
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, paid); err != nil {
			if !db.IsUniqueViolation(err, "ux_ledger_events_source_ref") {
				return err
			}
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderPaid,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{AccountID: order.AccountID, CharacterID: order.CharacterID},
			Data: payloads.OrderPaid{
				OrderID:   order.ID,
				Token:     order.Token,
				Flow:      order.Flow.String(),
				AccountID: order.AccountID,
			},
		}); err != nil {
			return err
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "provider order completed")
		}
		return nil
	})
}
