package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/valcrest-online/valcrest-backend/api/responses"
	votesvc "github.com/valcrest-online/valcrest-backend/internal/votes"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

// ListVoteSites reports every enabled site with the caller's cooldown state.
func ListVoteSites(svc votesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vote service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		statuses, err := svc.ListSites(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sites := make([]voteSiteResponse, 0, len(statuses))
		for _, status := range statuses {
			sites = append(sites, newVoteSiteResponse(status))
		}
		agg := votesvc.AggregateEligible(statuses)

		responses.WriteSuccess(w, voteSitesResponse{
			Sites: sites,
			Claimable: claimableResponse{
				Coins:   agg.Coins,
				VipDays: agg.VipDays,
				Sites:   agg.Sites,
			},
		})
	}
}

// SubmitVote accepts one vote for a site when its cooldown has elapsed.
func SubmitVote(svc votesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "vote service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		siteID, err := pathUUID(r, chi.URLParam(r, "siteID"), "siteID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), accountID, siteID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, submitVoteResponse{
			RecordID: result.RecordID,
			Coins:    result.Coins,
			VipDays:  result.VipDays,
		})
	}
}

type voteSitesResponse struct {
	Sites     []voteSiteResponse `json:"sites"`
	Claimable claimableResponse  `json:"claimable"`
}

type claimableResponse struct {
	Coins   int `json:"coins"`
	VipDays int `json:"vip_days"`
	Sites   int `json:"sites"`
}

type voteSiteResponse struct {
	SiteID           uuid.UUID  `json:"site_id"`
	Name             string     `json:"name"`
	URL              string     `json:"url"`
	CoinsReward      int        `json:"coins_reward"`
	VipReward        int        `json:"vip_reward"`
	CooldownHours    int        `json:"cooldown_hours"`
	LastVoteAt       *time.Time `json:"last_vote_at,omitempty"`
	SecondsRemaining *int64     `json:"seconds_remaining,omitempty"`
	CooldownEndsAt   *time.Time `json:"cooldown_ends_at,omitempty"`
	CanVote          bool       `json:"can_vote"`
}

type submitVoteResponse struct {
	RecordID uuid.UUID `json:"record_id"`
	Coins    int       `json:"coins"`
	VipDays  int       `json:"vip_days"`
}

func newVoteSiteResponse(status votesvc.SiteStatus) voteSiteResponse {
	resp := voteSiteResponse{
		SiteID:           status.Site.ID,
		Name:             status.Site.Name,
		URL:              status.Site.URL,
		CoinsReward:      status.Site.CoinsReward,
		VipReward:        status.Site.VipReward,
		CooldownHours:    status.Site.CooldownHours,
		LastVoteAt:       status.LastVoteAt,
		SecondsRemaining: status.SecondsRemaining,
		CanVote:          status.CanVote,
	}
	if status.SecondsRemaining != nil {
		// Anchor the countdown at a fixed deadline so the client can
		// re-render the timer locally without the value drifting across
		// status fetches.
		countdown := votesvc.NewCountdown(*status.SecondsRemaining, time.Duration(status.Site.CooldownHours)*time.Hour)
		target := countdown.Target()
		resp.CooldownEndsAt = &target
	}
	return resp
}
