package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/internal/payments"
	"github.com/valcrest-online/valcrest-backend/internal/stock"
	"github.com/valcrest-online/valcrest-backend/pkg/db"
	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/gameapi"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
	"github.com/valcrest-online/valcrest-backend/pkg/metrics"
	"github.com/valcrest-online/valcrest-backend/pkg/outbox"
	"github.com/valcrest-online/valcrest-backend/pkg/outbox/payloads"
	"github.com/valcrest-online/valcrest-backend/pkg/square"
)

// checkoutLinker is the slice of the Square wrapper webshop orders need.
type checkoutLinker interface {
	CreateCheckoutLink(ctx context.Context, params square.CheckoutLinkParams) (*square.CheckoutLink, error)
}

// billingClient is the slice of the game server client billing flows need.
type billingClient interface {
	CreateBillingOrder(ctx context.Context, req gameapi.BillingOrderRequest) (*gameapi.BillingOrderResponse, error)
	NotifyOrderCancelled(ctx context.Context, token string) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies the authenticated account placing an order.
type Actor struct {
	AccountID uuid.UUID
}

// CreatedOrder is the immediate result of dispatching an order; the provider
// confirmation arrives later, out of band.
type CreatedOrder struct {
	OrderID         uuid.UUID
	Token           string
	Flow            enums.OrderFlow
	RedirectURL     string
	CancelSessionID string
}

// Service routes the four purchase flows onto their provider call sequences.
type Service interface {
	CreateOrder(ctx context.Context, actor Actor, payload Payload) (*CreatedOrder, error)
	CancelOrder(ctx context.Context, sessionID string) error
	GetByToken(ctx context.Context, token string) (*models.ProviderOrder, error)
}

type service struct {
	repo      Repository
	dbc       *db.Client
	stock     stock.Service
	checkout  checkoutLinker
	game      billingClient
	lifecycle payments.Service
	events    eventEmitter
	orders    *metrics.OrderMetrics
	logg      *logger.Logger
}

// NewService wires an orders service with its collaborators. The metrics and
// logger arguments may be nil.
func NewService(
	repo Repository,
	dbc *db.Client,
	stockSvc stock.Service,
	checkout checkoutLinker,
	game billingClient,
	lifecycle payments.Service,
	events eventEmitter,
	orderMetrics *metrics.OrderMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if dbc == nil {
		return nil, fmt.Errorf("database client required")
	}
	if stockSvc == nil {
		return nil, fmt.Errorf("stock service required")
	}
	if checkout == nil {
		return nil, fmt.Errorf("checkout client required")
	}
	if game == nil {
		return nil, fmt.Errorf("game server client required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("payments service required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:      repo,
		dbc:       dbc,
		stock:     stockSvc,
		checkout:  checkout,
		game:      game,
		lifecycle: lifecycle,
		events:    events,
		orders:    orderMetrics,
		logg:      logg,
	}, nil
}

// CreateOrder validates the payload, runs the provider call sequence for its
// flow and persists the pending order. It returns as soon as the provider
// hands back an order handle; completion is signalled later.
func (s *service) CreateOrder(ctx context.Context, actor Actor, payload Payload) (*CreatedOrder, error) {
	started := time.Now()
	if actor.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if payload == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order payload is required")
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}

	flow := payload.flow()
	ctx = s.withFlow(ctx, flow)
	sessionID := uuid.NewString()

	var (
		token         string
		redirectURL   string
		amountCents   int64
		characterID   *uuid.UUID
		reservationID *uuid.UUID
	)

	switch p := payload.(type) {
	case WebshopPayload:
		link, err := s.checkout.CreateCheckoutLink(ctx, square.CheckoutLinkParams{
			Items:       cartItems(p),
			ReferenceID: sessionID,
		})
		if err != nil {
			s.observe(flow, "failed", started)
			return nil, err
		}
		token = link.OrderID
		redirectURL = link.URL
		amountCents = p.TotalCents()
		characterID = p.CharacterID

	case BundlePayload:
		var reservation *models.StockReservation
		err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
			var reserveErr error
			reservation, reserveErr = s.stock.Reserve(ctx, tx, p.BundleID)
			return reserveErr
		})
		if err != nil {
			outcome := "failed"
			if pkgerrors.IsCode(err, pkgerrors.CodeSoldOut) {
				outcome = "sold_out"
			}
			s.observe(flow, outcome, started)
			return nil, err
		}
		reservationID = &reservation.ID
		characterID = p.CharacterID

		resp, err := s.game.CreateBillingOrder(ctx, gameapi.BillingOrderRequest{
			Flow:          flow.String(),
			AccountID:     actor.AccountID,
			CharacterID:   p.CharacterID,
			CharacterName: p.CharacterName,
			BundleID:      &p.BundleID,
			SessionID:     sessionID,
		})
		if err != nil {
			s.releaseQuietly(ctx, reservation.ID)
			s.observe(flow, "failed", started)
			return nil, err
		}
		token, redirectURL, err = tokenFromRedirect(resp.URL)
		if err != nil {
			s.releaseQuietly(ctx, reservation.ID)
			s.observe(flow, "integration_error", started)
			s.logIntegrationDefect(ctx, flow, err)
			return nil, err
		}

	case GamePassPurchasePayload:
		resp, err := s.game.CreateBillingOrder(ctx, gameapi.BillingOrderRequest{
			Flow:      flow.String(),
			AccountID: actor.AccountID,
			Tier:      p.Tier.String(),
			Upgrade:   p.Upgrade,
			SessionID: sessionID,
		})
		if err != nil {
			s.observe(flow, "failed", started)
			return nil, err
		}
		token, redirectURL, err = tokenFromRedirect(resp.URL)
		if err != nil {
			s.observe(flow, "integration_error", started)
			s.logIntegrationDefect(ctx, flow, err)
			return nil, err
		}

	case GamePassExtendPayload:
		resp, err := s.game.CreateBillingOrder(ctx, gameapi.BillingOrderRequest{
			Flow:      flow.String(),
			AccountID: actor.AccountID,
			Tier:      p.Tier.String(),
			Days:      p.Days,
			SessionID: sessionID,
		})
		if err != nil {
			s.observe(flow, "failed", started)
			return nil, err
		}
		token, redirectURL, err = tokenFromRedirect(resp.URL)
		if err != nil {
			s.observe(flow, "integration_error", started)
			s.logIntegrationDefect(ctx, flow, err)
			return nil, err
		}
	}

	if token == "" {
		s.observe(flow, "integration_error", started)
		return nil, pkgerrors.New(pkgerrors.CodeIntegration, "provider returned no order identifier")
	}

	order := &models.ProviderOrder{
		Token:           token,
		Flow:            flow,
		Status:          enums.ProviderOrderStatusPending,
		AccountID:       actor.AccountID,
		CharacterID:     characterID,
		ReservationID:   reservationID,
		CancelSessionID: sessionID,
		AmountCents:     int(amountCents),
	}
	if redirectURL != "" {
		order.RedirectURL = &redirectURL
	}

	txErr := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCreated,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{AccountID: actor.AccountID, CharacterID: characterID},
			Data: payloads.OrderCreated{
				OrderID:   order.ID,
				Token:     token,
				Flow:      flow.String(),
				AccountID: actor.AccountID,
			},
		})
	})
	if txErr != nil {
		if reservationID != nil {
			s.releaseQuietly(ctx, *reservationID)
		}
		s.observe(flow, "failed", started)
		return nil, txErr
	}

	s.observe(flow, "created", started)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "order dispatched")
	}
	return &CreatedOrder{
		OrderID:         order.ID,
		Token:           token,
		Flow:            flow,
		RedirectURL:     redirectURL,
		CancelSessionID: sessionID,
	}, nil
}

// CancelOrder handles the payment-failure return path. An unknown session id
// is a no-op: the order may already be gone, or the user may simply have
// reloaded the return page.
func (s *service) CancelOrder(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	order, err := s.repo.GetByCancelSessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	wasPending := order.Status == enums.ProviderOrderStatusPending
	if err := s.lifecycle.OnOrderCancelled(ctx, order); err != nil {
		return err
	}

	// upstream notification is best effort; the game server reconciles
	// abandoned orders on its own schedule
	if wasPending && order.Flow != enums.OrderFlowWebshop {
		if err := s.game.NotifyOrderCancelled(ctx, order.Token); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "order_id", order.ID.String()), "order cancel notification failed")
		}
	}
	return nil
}

func (s *service) GetByToken(ctx context.Context, token string) (*models.ProviderOrder, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	order, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) releaseQuietly(ctx context.Context, reservationID uuid.UUID) {
	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		return s.stock.Release(ctx, tx, reservationID)
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to release reservation after dispatch failure", err)
	}
}

func (s *service) observe(flow enums.OrderFlow, outcome string, started time.Time) {
	s.orders.IncOrder(flow.String(), outcome)
	s.orders.ObserveDispatch(flow.String(), time.Since(started))
}

func (s *service) withFlow(ctx context.Context, flow enums.OrderFlow) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithOrderFlow(ctx, flow.String())
}

func (s *service) logIntegrationDefect(ctx context.Context, flow enums.OrderFlow, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(s.logg.WithOrderFlow(ctx, flow.String()), "provider redirect violated the token contract", err)
}

// tokenFromRedirect extracts the provider order handle from a billing
// redirect URL.
func tokenFromRedirect(redirectURL string) (token, redirect string, err error) {
	token, err = payments.ExtractOrderToken(redirectURL)
	if err != nil {
		return "", "", err
	}
	return token, redirectURL, nil
}

func cartItems(p WebshopPayload) []square.CheckoutItem {
	items := make([]square.CheckoutItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, square.CheckoutItem{
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPrice.Mul(decimalHundred).IntPart(),
		})
	}
	return items
}
