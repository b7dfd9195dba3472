package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/internal/ledger"
	"github.com/valcrest-online/valcrest-backend/internal/payments"
	"github.com/valcrest-online/valcrest-backend/internal/stock"
	"github.com/valcrest-online/valcrest-backend/pkg/db"
	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/gameapi"
	"github.com/valcrest-online/valcrest-backend/pkg/metrics"
	"github.com/valcrest-online/valcrest-backend/pkg/outbox"
	"github.com/valcrest-online/valcrest-backend/pkg/square"
)

type stubCheckout struct {
	params []square.CheckoutLinkParams
	link   *square.CheckoutLink
	err    error
}

func (s *stubCheckout) CreateCheckoutLink(_ context.Context, params square.CheckoutLinkParams) (*square.CheckoutLink, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.link, nil
}

type stubBilling struct {
	requests  []gameapi.BillingOrderRequest
	cancelled []string
	resp      *gameapi.BillingOrderResponse
	err       error
	cancelErr error
}

func (s *stubBilling) CreateBillingOrder(_ context.Context, req gameapi.BillingOrderRequest) (*gameapi.BillingOrderResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func (s *stubBilling) NotifyOrderCancelled(_ context.Context, token string) error {
	s.cancelled = append(s.cancelled, token)
	return s.cancelErr
}

type fixture struct {
	svc      Service
	gdb      *gorm.DB
	checkout *stubCheckout
	billing  *stubBilling
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.BundleStock{},
		&models.StockReservation{},
		&models.ProviderOrder{},
		&models.LedgerEvent{},
		&models.OutboxEvent{},
	))

	dbc := db.FromGorm(gdb)
	events := outbox.NewService(outbox.NewRepository(gdb), nil)
	stockSvc, err := stock.NewService(stock.NewRepository(gdb), nil)
	require.NoError(t, err)
	lifecycle, err := payments.NewService(payments.NewRepository(gdb), dbc, stockSvc, ledger.NewRepository(gdb), events, nil)
	require.NoError(t, err)

	checkout := &stubCheckout{link: &square.CheckoutLink{OrderID: "SQ-ORDER-1", URL: "https://square.example/pay/SQ-ORDER-1"}}
	billing := &stubBilling{resp: &gameapi.BillingOrderResponse{Success: true, URL: "https://pay.example/checkout?token=ABC123"}}

	svc, err := NewService(NewRepository(gdb), dbc, stockSvc, checkout, billing, lifecycle, events, nil, nil)
	require.NoError(t, err)
	return &fixture{svc: svc, gdb: gdb, checkout: checkout, billing: billing}
}

func (f *fixture) seedBundle(t *testing.T, total int) uuid.UUID {
	t.Helper()
	bundleID := uuid.New()
	require.NoError(t, f.gdb.Create(&models.BundleStock{
		BundleID: bundleID,
		Name:     "Flash Bundle",
		TotalQty: total,
	}).Error)
	return bundleID
}

func TestCreateOrderGamePassExtend(t *testing.T) {
	f := newFixture(t)
	actor := Actor{AccountID: uuid.New()}

	created, err := f.svc.CreateOrder(context.Background(), actor, GamePassExtendPayload{
		Tier: enums.GamePassTierElite,
		Days: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, "ABC123", created.Token)
	assert.Equal(t, enums.OrderFlowGamePassExtend, created.Flow)
	assert.Equal(t, "https://pay.example/checkout?token=ABC123", created.RedirectURL)
	assert.NotEmpty(t, created.CancelSessionID)

	require.Len(t, f.billing.requests, 1)
	req := f.billing.requests[0]
	assert.Equal(t, "gamepass_extend", req.Flow)
	assert.Equal(t, "elite", req.Tier)
	assert.Equal(t, 30, req.Days)

	var row models.ProviderOrder
	require.NoError(t, f.gdb.Where("token = ?", "ABC123").First(&row).Error)
	assert.Equal(t, enums.ProviderOrderStatusPending, row.Status)
	assert.Equal(t, actor.AccountID, row.AccountID)
	assert.Empty(t, f.checkout.params)
}

func TestCreateOrderWebshopUsesCheckoutLink(t *testing.T) {
	f := newFixture(t)
	characterID := uuid.New()

	created, err := f.svc.CreateOrder(context.Background(), Actor{AccountID: uuid.New()}, WebshopPayload{
		Items: []WebshopItem{
			{ID: "sword", Name: "Runed Sword", UnitPrice: decimal.NewFromFloat(12.50), Quantity: 2},
			{ID: "potion", Name: "Potion", UnitPrice: decimal.NewFromInt(3), Quantity: 1},
		},
		CharacterID:   &characterID,
		CharacterName: "Aldric",
	})
	require.NoError(t, err)
	assert.Equal(t, "SQ-ORDER-1", created.Token)
	assert.Equal(t, enums.OrderFlowWebshop, created.Flow)

	require.Len(t, f.checkout.params, 1)
	require.Len(t, f.checkout.params[0].Items, 2)
	assert.EqualValues(t, 1250, f.checkout.params[0].Items[0].UnitPriceCents)
	assert.Empty(t, f.billing.requests)

	var row models.ProviderOrder
	require.NoError(t, f.gdb.Where("token = ?", "SQ-ORDER-1").First(&row).Error)
	assert.Equal(t, 2800, row.AmountCents)
}

func TestCreateOrderValidationNeverHitsProviders(t *testing.T) {
	f := newFixture(t)
	actor := Actor{AccountID: uuid.New()}

	cases := []Payload{
		WebshopPayload{},
		WebshopPayload{Items: []WebshopItem{{Name: "Sword", UnitPrice: decimal.NewFromInt(1), Quantity: 0}}},
		WebshopPayload{Items: []WebshopItem{{Name: "Sword", UnitPrice: decimal.Zero, Quantity: 1}}},
		WebshopPayload{
			Items:  []WebshopItem{{Name: "Sword", UnitPrice: decimal.NewFromInt(1), Quantity: 1}},
			IsGift: true,
		},
		BundlePayload{},
		GamePassPurchasePayload{Tier: "platinum"},
		GamePassExtendPayload{Tier: enums.GamePassTierGold, Days: 0},
		GamePassExtendPayload{Tier: "bronze", Days: 10},
	}
	for _, payload := range cases {
		_, err := f.svc.CreateOrder(context.Background(), actor, payload)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	}
	assert.Empty(t, f.billing.requests)
	assert.Empty(t, f.checkout.params)
}

func TestCreateOrderBundleReservesBeforeBilling(t *testing.T) {
	f := newFixture(t)
	bundleID := f.seedBundle(t, 1)

	created, err := f.svc.CreateOrder(context.Background(), Actor{AccountID: uuid.New()}, BundlePayload{
		BundleID:      bundleID,
		CharacterName: "Aldric",
	})
	require.NoError(t, err)

	var row models.ProviderOrder
	require.NoError(t, f.gdb.Where("id = ?", created.OrderID).First(&row).Error)
	require.NotNil(t, row.ReservationID)

	var bundle models.BundleStock
	require.NoError(t, f.gdb.First(&bundle).Error)
	assert.Equal(t, 1, bundle.ReservedQty)

	// second purchase finds the bundle exhausted before any billing call
	_, err = f.svc.CreateOrder(context.Background(), Actor{AccountID: uuid.New()}, BundlePayload{BundleID: bundleID})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSoldOut))
	assert.Len(t, f.billing.requests, 1)
}

func TestCreateOrderBundleOutcomeLabels(t *testing.T) {
	f := newFixture(t)
	bundleID := f.seedBundle(t, 0)

	registry := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(registry)
	dbc := db.FromGorm(f.gdb)
	events := outbox.NewService(outbox.NewRepository(f.gdb), nil)
	stockSvc, err := stock.NewService(stock.NewRepository(f.gdb), nil)
	require.NoError(t, err)
	lifecycle, err := payments.NewService(payments.NewRepository(f.gdb), dbc, stockSvc, ledger.NewRepository(f.gdb), events, nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(f.gdb), dbc, stockSvc, f.checkout, f.billing, lifecycle, events, orderMetrics, nil)
	require.NoError(t, err)

	// an exhausted bundle counts as sold_out
	_, err = svc.CreateOrder(context.Background(), Actor{AccountID: uuid.New()}, BundlePayload{BundleID: bundleID})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSoldOut))
	assert.EqualValues(t, 1, testutil.ToFloat64(orderMetrics.Orders.WithLabelValues("bundle", "sold_out")))

	// any other reservation failure counts as failed, not sold_out
	_, err = svc.CreateOrder(context.Background(), Actor{AccountID: uuid.New()}, BundlePayload{BundleID: uuid.New()})
	require.Error(t, err)
	assert.False(t, pkgerrors.IsCode(err, pkgerrors.CodeSoldOut))
	assert.EqualValues(t, 1, testutil.ToFloat64(orderMetrics.Orders.WithLabelValues("bundle", "failed")))
	assert.EqualValues(t, 1, testutil.ToFloat64(orderMetrics.Orders.WithLabelValues("bundle", "sold_out")))
}

func TestCreateOrderBundleBillingFailureReleasesStock(t *testing.T) {
	f := newFixture(t)
	bundleID := f.seedBundle(t, 1)
	f.billing.err = pkgerrors.New(pkgerrors.CodeDependency, "billing unavailable")

	_, err := f.svc.CreateOrder(context.Background(), Actor{AccountID: uuid.New()}, BundlePayload{BundleID: bundleID})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var bundle models.BundleStock
	require.NoError(t, f.gdb.First(&bundle).Error)
	assert.Equal(t, 0, bundle.ReservedQty)
}

func TestCreateOrderMalformedRedirectIsIntegrationError(t *testing.T) {
	f := newFixture(t)
	f.billing.resp = &gameapi.BillingOrderResponse{Success: true, URL: "https://pay.example/checkout"}

	_, err := f.svc.CreateOrder(context.Background(), Actor{AccountID: uuid.New()}, GamePassPurchasePayload{
		Tier: enums.GamePassTierGold,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIntegration))

	var count int64
	require.NoError(t, f.gdb.Model(&models.ProviderOrder{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCancelOrderReleasesBundleAndNotifiesUpstream(t *testing.T) {
	f := newFixture(t)
	bundleID := f.seedBundle(t, 2)

	created, err := f.svc.CreateOrder(context.Background(), Actor{AccountID: uuid.New()}, BundlePayload{BundleID: bundleID})
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelOrder(context.Background(), created.CancelSessionID))

	var row models.ProviderOrder
	require.NoError(t, f.gdb.Where("id = ?", created.OrderID).First(&row).Error)
	assert.Equal(t, enums.ProviderOrderStatusCancelled, row.Status)

	var bundle models.BundleStock
	require.NoError(t, f.gdb.First(&bundle).Error)
	assert.Equal(t, 0, bundle.ReservedQty)
	assert.Equal(t, []string{created.Token}, f.billing.cancelled)

	// replayed cancel is a no-op and does not notify again
	require.NoError(t, f.svc.CancelOrder(context.Background(), created.CancelSessionID))
	assert.Len(t, f.billing.cancelled, 1)
}

func TestCancelOrderUnknownSessionIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.CancelOrder(context.Background(), uuid.NewString()))

	err := f.svc.CancelOrder(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetByToken(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateOrder(context.Background(), Actor{AccountID: uuid.New()}, GamePassPurchasePayload{
		Tier: enums.GamePassTierElite,
	})
	require.NoError(t, err)

	order, err := f.svc.GetByToken(context.Background(), created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.OrderID, order.ID)

	_, err = f.svc.GetByToken(context.Background(), "missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
