package votes

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/internal/ledger"
	"github.com/valcrest-online/valcrest-backend/pkg/db"
	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
)

type stubLedger struct {
	calls    []ledger.CreditInput
	seen     map[string]*models.LedgerEvent
	failures int
	credited int
}

func (s *stubLedger) Credit(_ context.Context, input ledger.CreditInput) (*models.LedgerEvent, bool, error) {
	s.calls = append(s.calls, input)
	if event, ok := s.seen[input.SourceRef]; ok {
		return event, false, nil
	}
	if s.failures > 0 {
		s.failures--
		return nil, false, pkgerrors.New(pkgerrors.CodeDependency, "game server unavailable")
	}
	event := &models.LedgerEvent{Coins: input.Coins, VipDays: input.VipDays}
	if s.seen == nil {
		s.seen = make(map[string]*models.LedgerEvent)
	}
	s.seen[input.SourceRef] = event
	s.credited++
	return event, true, nil
}

func (s *stubLedger) History(context.Context, uuid.UUID, int) ([]models.LedgerEvent, error) {
	return nil, nil
}

type stubLocker struct {
	denied   bool
	acquired []string
	released []string
}

func (s *stubLocker) AcquireLock(_ context.Context, scope string, _ time.Duration) (bool, error) {
	if s.denied {
		return false, nil
	}
	s.acquired = append(s.acquired, scope)
	return true, nil
}

func (s *stubLocker) ReleaseLock(_ context.Context, scope string) error {
	s.released = append(s.released, scope)
	return nil
}

type fixture struct {
	svc    *service
	gdb    *gorm.DB
	ledger *stubLedger
	locks  *stubLocker
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:votes_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.VoteSite{}, &models.VoteRecord{}))

	ledgerStub := &stubLedger{}
	locks := &stubLocker{}
	svc, err := NewService(NewRepository(gdb), db.FromGorm(gdb), ledgerStub, locks, nil)
	require.NoError(t, err)

	f := &fixture{
		svc:    svc.(*service),
		gdb:    gdb,
		ledger: ledgerStub,
		locks:  locks,
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) seedSite(t *testing.T, name string, coins, vip, cooldownHours int) uuid.UUID {
	t.Helper()
	site := &models.VoteSite{
		Name:          name,
		URL:           "https://vote.example/" + name,
		CoinsReward:   coins,
		VipReward:     vip,
		CooldownHours: cooldownHours,
		Enabled:       true,
	}
	require.NoError(t, f.gdb.Create(site).Error)
	return site.ID
}

func TestSubmitCreditsRewardOnce(t *testing.T) {
	f := newFixture(t)
	accountID := uuid.New()
	siteID := f.seedSite(t, "topsites", 150, 1, 12)

	result, err := f.svc.Submit(context.Background(), accountID, siteID)
	require.NoError(t, err)
	assert.Equal(t, 150, result.Coins)
	assert.Equal(t, 1, result.VipDays)

	require.Len(t, f.ledger.calls, 1)
	assert.Equal(t, result.RecordID.String(), f.ledger.calls[0].SourceRef)
	assert.Len(t, f.locks.released, 1)
}

func TestSubmitDuringCooldownIsTooEarly(t *testing.T) {
	f := newFixture(t)
	accountID := uuid.New()
	siteID := f.seedSite(t, "topsites", 150, 0, 12)

	_, err := f.svc.Submit(context.Background(), accountID, siteID)
	require.NoError(t, err)

	f.now = f.now.Add(6 * time.Hour)
	_, err = f.svc.Submit(context.Background(), accountID, siteID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTooEarly))
	assert.Equal(t, 1, f.ledger.credited)

	// once the cooldown elapses the vote goes through again
	f.now = f.now.Add(6 * time.Hour)
	_, err = f.svc.Submit(context.Background(), accountID, siteID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.ledger.credited)
}

func TestSubmitRetryAfterCreditFailureRecoversReward(t *testing.T) {
	f := newFixture(t)
	accountID := uuid.New()
	siteID := f.seedSite(t, "topsites", 150, 1, 12)

	f.ledger.failures = 1
	_, err := f.svc.Submit(context.Background(), accountID, siteID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 0, f.ledger.credited)

	// The vote row was committed before the credit failed. The retry is
	// inside the cooldown, but the missing credit is issued against the
	// recorded vote instead of bouncing the caller.
	result, err := f.svc.Submit(context.Background(), accountID, siteID)
	require.NoError(t, err)
	assert.Equal(t, 150, result.Coins)
	assert.Equal(t, 1, result.VipDays)
	assert.Equal(t, 1, f.ledger.credited)

	var record models.VoteRecord
	require.NoError(t, f.gdb.Where("account_id = ?", accountID).First(&record).Error)
	assert.Equal(t, record.ID, result.RecordID)

	// Once the credit has landed, the cooldown holds again.
	_, err = f.svc.Submit(context.Background(), accountID, siteID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTooEarly))
	assert.Equal(t, 1, f.ledger.credited)
}

func TestSubmitLockContentionIsTooEarly(t *testing.T) {
	f := newFixture(t)
	siteID := f.seedSite(t, "topsites", 100, 0, 12)
	f.locks.denied = true

	_, err := f.svc.Submit(context.Background(), uuid.New(), siteID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeTooEarly))
	assert.Empty(t, f.ledger.calls)
}

func TestSubmitUnknownOrDisabledSite(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), uuid.New(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	site := &models.VoteSite{Name: "off", URL: "https://off.example", Enabled: false}
	require.NoError(t, f.gdb.Create(site).Error)
	_, err = f.svc.Submit(context.Background(), uuid.New(), site.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListSitesReportsEligibility(t *testing.T) {
	f := newFixture(t)
	accountID := uuid.New()
	votedSite := f.seedSite(t, "alpha", 100, 0, 12)
	f.seedSite(t, "beta", 200, 2, 12)

	_, err := f.svc.Submit(context.Background(), accountID, votedSite)
	require.NoError(t, err)
	f.now = f.now.Add(2 * time.Hour)

	statuses, err := f.svc.ListSites(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byName := map[string]SiteStatus{}
	for _, status := range statuses {
		byName[status.Site.Name] = status
	}

	voted := byName["alpha"]
	assert.False(t, voted.CanVote)
	require.NotNil(t, voted.SecondsRemaining)
	assert.EqualValues(t, (10 * time.Hour).Seconds(), *voted.SecondsRemaining)

	fresh := byName["beta"]
	assert.True(t, fresh.CanVote)
	assert.Nil(t, fresh.SecondsRemaining)
}

func TestAggregateEligible(t *testing.T) {
	f := newFixture(t)
	accountID := uuid.New()
	votedSite := f.seedSite(t, "alpha", 100, 1, 12)
	f.seedSite(t, "beta", 200, 2, 12)
	f.seedSite(t, "gamma", 50, 0, 12)

	_, err := f.svc.Submit(context.Background(), accountID, votedSite)
	require.NoError(t, err)

	statuses, err := f.svc.ListSites(context.Background(), accountID)
	require.NoError(t, err)

	agg := AggregateEligible(statuses)
	assert.Equal(t, 250, agg.Coins)
	assert.Equal(t, 2, agg.VipDays)
	assert.Equal(t, 2, agg.Sites)
}
