package gameapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valcrest-online/valcrest-backend/pkg/config"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.GameAPIConfig{
		BaseURL:      server.URL,
		APIKey:       "test-key",
		Timeout:      2 * time.Second,
		RetryMax:     0,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestCreateBillingOrderReturnsRedirectURL(t *testing.T) {
	var got BillingOrderRequest
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/billing/orders", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(BillingOrderResponse{
			Success: true,
			URL:     "https://pay.example/checkout?token=ABC123",
		})
	}))

	accountID := uuid.New()
	resp, err := client.CreateBillingOrder(context.Background(), BillingOrderRequest{
		Flow:      "gamepass_extend",
		AccountID: accountID,
		Tier:      "elite",
		Days:      30,
		SessionID: "sess-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/checkout?token=ABC123", resp.URL)
	assert.Equal(t, accountID, got.AccountID)
	assert.Equal(t, 30, got.Days)
}

func TestCreateBillingOrderRejection(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(BillingOrderResponse{Success: false, Message: "tier unavailable"})
	}))

	_, err := client.CreateBillingOrder(context.Background(), BillingOrderRequest{Flow: "gamepass"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Contains(t, err.Error(), "tier unavailable")
}

func TestCreateBillingOrderServerError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.CreateBillingOrder(context.Background(), BillingOrderRequest{Flow: "bundle"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestCreditRewardReturnsConfirmedAmounts(t *testing.T) {
	accountID := uuid.New()
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/accounts/"+accountID.String()+"/credits", r.URL.Path)
		// Server may credit different amounts than requested (e.g. event
		// multipliers); the confirmation is what callers must trust.
		json.NewEncoder(w).Encode(CreditConfirmation{Success: true, Coins: 150, VipDays: 1})
	}))

	conf, err := client.CreditReward(context.Background(), CreditRequest{
		AccountID: accountID,
		Coins:     100,
		Reason:    "vote",
		Reference: "vote:site-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 150, conf.Coins)
	assert.Equal(t, 1, conf.VipDays)
}

func TestEvaluateAchievements(t *testing.T) {
	characterID := uuid.New()
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/characters/"+characterID.String()+"/achievements/evaluate", r.URL.Path)
		var req evaluateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first_blood", "night_owl"}, req.Codes)
		json.NewEncoder(w).Encode(evaluateResponse{
			Success: true,
			Results: []AchievementEvaluation{
				{Code: "first_blood", CurrentValue: 12, Met: true},
				{Code: "night_owl", CurrentValue: 0, Met: false},
			},
		})
	}))

	results, err := client.EvaluateAchievements(context.Background(), characterID, []string{"first_blood", "night_owl"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Met)
	assert.False(t, results[1].Met)
}

func TestNotifyOrderCancelledRequiresToken(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	err := client.NotifyOrderCancelled(context.Background(), "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
