package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/valcrest-online/valcrest-backend/pkg/config"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

const apiKeyHeader = "X-Api-Key"

// Client talks to the game server's account/billing API. The game server owns
// the reward ledger; every mutation here is a request, and only the returned
// confirmation is trusted.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

// NewClient builds the game API client with retrying transport.
func NewClient(cfg config.GameAPIConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("game api base url is required")
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = cfg.RetryMax
	retry.RetryWaitMin = cfg.RetryWaitMin
	retry.RetryWaitMax = cfg.RetryWaitMax
	retry.HTTPClient.Timeout = cfg.Timeout
	retry.Logger = nil

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    retry.StandardClient(),
		logger:  logg,
	}, nil
}

// BillingOrderRequest describes one non-webshop checkout attempt.
type BillingOrderRequest struct {
	Flow          string     `json:"flow"`
	AccountID     uuid.UUID  `json:"account_id"`
	CharacterID   *uuid.UUID `json:"character_id,omitempty"`
	CharacterName string     `json:"character_name,omitempty"`
	BundleID      *uuid.UUID `json:"bundle_id,omitempty"`
	Tier          string     `json:"tier,omitempty"`
	Upgrade       bool       `json:"upgrade,omitempty"`
	Days          int        `json:"days,omitempty"`
	SessionID     string     `json:"session_id"`
}

// BillingOrderResponse carries the provider redirect target on success.
type BillingOrderResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Message string `json:"message,omitempty"`
}

// CreateBillingOrder asks the game server to open a provider checkout and
// returns the redirect URL the player is sent to.
func (c *Client) CreateBillingOrder(ctx context.Context, req BillingOrderRequest) (*BillingOrderResponse, error) {
	var out BillingOrderResponse
	if err := c.post(ctx, "/api/billing/orders", req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "billing order rejected"
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
	return &out, nil
}

// NotifyOrderCancelled tells the game server a provider order was abandoned.
// Callers treat this as fire-and-forget; failures are for logs only.
func (c *Client) NotifyOrderCancelled(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order token is required")
	}
	return c.post(ctx, fmt.Sprintf("/api/billing/orders/%s/cancel", token), nil, nil)
}

// CreditRequest asks the ledger to credit currency for a redeemed reward.
type CreditRequest struct {
	AccountID   uuid.UUID  `json:"account_id"`
	CharacterID *uuid.UUID `json:"character_id,omitempty"`
	Coins       int        `json:"coins"`
	VipDays     int        `json:"vip_days"`
	Reason      string     `json:"reason"`
	Reference   string     `json:"reference"`
}

// CreditConfirmation reports what the ledger actually credited. These are the
// only amounts surfaced to players.
type CreditConfirmation struct {
	Success bool   `json:"success"`
	Coins   int    `json:"coins"`
	VipDays int    `json:"vip_days"`
	Message string `json:"message,omitempty"`
}

// CreditReward requests a ledger mutation and returns the confirmed amounts.
func (c *Client) CreditReward(ctx context.Context, req CreditRequest) (*CreditConfirmation, error) {
	var out CreditConfirmation
	if err := c.post(ctx, fmt.Sprintf("/api/accounts/%s/credits", req.AccountID), req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "credit rejected"
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
	return &out, nil
}

// AchievementEvaluation is the game server's verdict on one achievement code.
// Requirement rules, including custom ones, live on the game server.
type AchievementEvaluation struct {
	Code         string `json:"code"`
	CurrentValue int    `json:"current_value"`
	Met          bool   `json:"met"`
}

type evaluateRequest struct {
	Codes []string `json:"codes"`
}

type evaluateResponse struct {
	Success bool                    `json:"success"`
	Results []AchievementEvaluation `json:"results"`
}

// EvaluateAchievements asks the game server to recompute progress for the
// given achievement codes against live game state.
func (c *Client) EvaluateAchievements(ctx context.Context, characterID uuid.UUID, codes []string) ([]AchievementEvaluation, error) {
	if characterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "character id is required")
	}
	var out evaluateResponse
	path := fmt.Sprintf("/api/characters/%s/achievements/evaluate", characterID)
	if err := c.post(ctx, path, evaluateRequest{Codes: codes}, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "achievement evaluation rejected")
	}
	return out.Results, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "game api unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("game api returned status %d", resp.StatusCode))
	}
	if dest == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeIntegration, err, "decode game api response")
	}
	return nil
}
