package achievements

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/valcrest-online/valcrest-backend/internal/ledger"
	"github.com/valcrest-online/valcrest-backend/pkg/db"
	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/gameapi"
)

type stubEvaluator struct {
	results []gameapi.AchievementEvaluation
	err     error
	calls   int
}

func (s *stubEvaluator) EvaluateAchievements(_ context.Context, _ uuid.UUID, _ []string) ([]gameapi.AchievementEvaluation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// stubLedger mimics the real service's replay fence: one credit per source
// ref, repeats return the original event with credited=false.
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

type fixture struct {
	svc       Service
	gdb       *gorm.DB
	evaluator *stubEvaluator
	ledger    *stubLedger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:achievements_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.Achievement{}, &models.CharacterAchievement{}))

	evaluator := &stubEvaluator{}
	ledgerStub := &stubLedger{}
	svc, err := NewService(NewRepository(gdb), db.FromGorm(gdb), evaluator, ledgerStub, nil)
	require.NoError(t, err)
	return &fixture{svc: svc, gdb: gdb, evaluator: evaluator, ledger: ledgerStub}
}

func (f *fixture) seedAchievement(t *testing.T, code string, requirement, coins, vip int) uuid.UUID {
	t.Helper()
	achievement := &models.Achievement{
		Code:             code,
		Name:             code,
		RequirementType:  enums.RequirementTypeKills,
		RequirementValue: requirement,
		RewardCoins:      coins,
		RewardVip:        vip,
	}
	require.NoError(t, f.gdb.Create(achievement).Error)
	return achievement.ID
}

func TestCheckUnlocksRecordsCrossings(t *testing.T) {
	f := newFixture(t)
	characterID := uuid.New()
	slayerID := f.seedAchievement(t, "slayer_100", 100, 500, 0)
	f.seedAchievement(t, "slayer_1000", 1000, 2000, 1)

	f.evaluator.results = []gameapi.AchievementEvaluation{
		{Code: "slayer_100", CurrentValue: 140, Met: true},
		{Code: "slayer_1000", CurrentValue: 140, Met: false},
	}

	unlocked, err := f.svc.CheckUnlocks(context.Background(), characterID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "slayer_100", unlocked[0].Code)

	var row models.CharacterAchievement
	require.NoError(t, f.gdb.Where("achievement_id = ? AND character_id = ?", slayerID, characterID).First(&row).Error)
	assert.Equal(t, 140, row.CurrentValue)
	assert.True(t, row.IsUnlocked())

	// a second check with the same stats reports nothing new
	unlocked, err = f.svc.CheckUnlocks(context.Background(), characterID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)
	assert.Equal(t, 2, f.evaluator.calls)
}

func TestCheckUnlocksNeverRelocks(t *testing.T) {
	f := newFixture(t)
	characterID := uuid.New()
	id := f.seedAchievement(t, "hoarder", 1000, 100, 0)

	f.evaluator.results = []gameapi.AchievementEvaluation{{Code: "hoarder", CurrentValue: 1200, Met: true}}
	_, err := f.svc.CheckUnlocks(context.Background(), characterID)
	require.NoError(t, err)

	// the stat dropped back below the requirement on the game server
	f.evaluator.results = []gameapi.AchievementEvaluation{{Code: "hoarder", CurrentValue: 800, Met: false}}
	unlocked, err := f.svc.CheckUnlocks(context.Background(), characterID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	var row models.CharacterAchievement
	require.NoError(t, f.gdb.Where("achievement_id = ?", id).First(&row).Error)
	assert.Equal(t, 800, row.CurrentValue)
	assert.True(t, row.IsUnlocked())
}

func TestClaimCreditsOnce(t *testing.T) {
	f := newFixture(t)
	accountID := uuid.New()
	characterID := uuid.New()
	achievementID := f.seedAchievement(t, "slayer_100", 100, 500, 1)

	f.evaluator.results = []gameapi.AchievementEvaluation{{Code: "slayer_100", CurrentValue: 150, Met: true}}
	_, err := f.svc.CheckUnlocks(context.Background(), characterID)
	require.NoError(t, err)

	result, err := f.svc.Claim(context.Background(), accountID, characterID, achievementID)
	require.NoError(t, err)
	assert.Equal(t, 500, result.Coins)
	assert.Equal(t, 1, result.VipDays)
	require.Len(t, f.ledger.calls, 1)

	// the second claim is rejected and credits nothing
	_, err = f.svc.Claim(context.Background(), accountID, characterID, achievementID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyClaimed))
	assert.Equal(t, 1, f.ledger.credited)
}

func TestClaimRetriesAfterCreditFailure(t *testing.T) {
	f := newFixture(t)
	accountID := uuid.New()
	characterID := uuid.New()
	achievementID := f.seedAchievement(t, "slayer_100", 100, 500, 1)

	f.evaluator.results = []gameapi.AchievementEvaluation{{Code: "slayer_100", CurrentValue: 150, Met: true}}
	_, err := f.svc.CheckUnlocks(context.Background(), characterID)
	require.NoError(t, err)

	// the game server rejects the first credit after the claimed flip commits
	f.ledger.failures = 1
	_, err = f.svc.Claim(context.Background(), accountID, characterID, achievementID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, 0, f.ledger.credited)

	// the retry re-drives the credit instead of treating the claim as consumed
	result, err := f.svc.Claim(context.Background(), accountID, characterID, achievementID)
	require.NoError(t, err)
	assert.Equal(t, 500, result.Coins)
	assert.Equal(t, 1, result.VipDays)
	assert.Equal(t, 1, f.ledger.credited)

	// and once credited the claim is closed for good
	_, err = f.svc.Claim(context.Background(), accountID, characterID, achievementID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyClaimed))
	assert.Equal(t, 1, f.ledger.credited)
}

func TestClaimRequiresUnlock(t *testing.T) {
	f := newFixture(t)
	achievementID := f.seedAchievement(t, "slayer_100", 100, 500, 0)

	_, err := f.svc.Claim(context.Background(), uuid.New(), uuid.New(), achievementID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Empty(t, f.ledger.calls)

	_, err = f.svc.Claim(context.Background(), uuid.New(), uuid.New(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestProgressMergesCatalog(t *testing.T) {
	f := newFixture(t)
	characterID := uuid.New()
	f.seedAchievement(t, "alpha", 10, 50, 0)
	f.seedAchievement(t, "beta", 20, 100, 0)

	f.evaluator.results = []gameapi.AchievementEvaluation{
		{Code: "alpha", CurrentValue: 15, Met: true},
		{Code: "beta", CurrentValue: 3, Met: false},
	}
	_, err := f.svc.CheckUnlocks(context.Background(), characterID)
	require.NoError(t, err)

	entries, err := f.svc.Progress(context.Background(), characterID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alpha", entries[0].Achievement.Code)
	assert.True(t, entries[0].Unlocked)
	assert.False(t, entries[0].Claimed)
	assert.Equal(t, 3, entries[1].Current)
	assert.False(t, entries[1].Unlocked)
}
