package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/valcrest-online/valcrest-backend/api/responses"
	"github.com/valcrest-online/valcrest-backend/api/validators"
	achievementsvc "github.com/valcrest-online/valcrest-backend/internal/achievements"
	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

// AchievementCatalog lists every achievement definition. Public.
func AchievementCatalog(svc achievementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "achievement service unavailable"))
			return
		}

		catalog, err := svc.Catalog(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]achievementResponse, 0, len(catalog))
		for _, achievement := range catalog {
			out = append(out, newAchievementResponse(achievement))
		}
		responses.WriteSuccess(w, out)
	}
}

// AchievementProgress merges the catalog with one character's rows.
func AchievementProgress(svc achievementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "achievement service unavailable"))
			return
		}

		if _, err := accountIDFromRequest(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw, err := validators.RequireQuery(r, "character_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		characterID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "character_id must be a uuid"))
			return
		}

		entries, err := svc.Progress(r.Context(), characterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]progressResponse, 0, len(entries))
		for _, entry := range entries {
			out = append(out, progressResponse{
				Achievement: newAchievementResponse(entry.Achievement),
				Current:     entry.Current,
				Unlocked:    entry.Unlocked,
				Claimed:     entry.Claimed,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

// CheckAchievements re-evaluates a character's stats and records new unlocks.
func CheckAchievements(svc achievementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "achievement service unavailable"))
			return
		}

		if _, err := accountIDFromRequest(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload characterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unlocked, err := svc.CheckUnlocks(r.Context(), payload.CharacterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]achievementResponse, 0, len(unlocked))
		for _, achievement := range unlocked {
			out = append(out, newAchievementResponse(achievement))
		}
		responses.WriteSuccess(w, checkResponse{NewlyUnlocked: out})
	}
}

// ClaimAchievement converts one unlocked achievement into its reward.
func ClaimAchievement(svc achievementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "achievement service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		achievementID, err := pathUUID(r, chi.URLParam(r, "achievementID"), "achievementID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload characterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Claim(r.Context(), accountID, payload.CharacterID, achievementID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, claimResponse{
			Coins:   result.Coins,
			VipDays: result.VipDays,
		})
	}
}

type characterRequest struct {
	CharacterID uuid.UUID `json:"character_id" validate:"required"`
}

type achievementResponse struct {
	ID               uuid.UUID `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	RequirementType  string    `json:"requirement_type"`
	RequirementValue int       `json:"requirement_value"`
	RewardCoins      int       `json:"reward_coins"`
	RewardVip        int       `json:"reward_vip"`
}

type progressResponse struct {
	Achievement achievementResponse `json:"achievement"`
	Current     int                 `json:"current"`
	Unlocked    bool                `json:"unlocked"`
	Claimed     bool                `json:"claimed"`
}

type checkResponse struct {
	NewlyUnlocked []achievementResponse `json:"newly_unlocked"`
}

type claimResponse struct {
	Coins   int `json:"coins"`
	VipDays int `json:"vip_days"`
}

func newAchievementResponse(achievement models.Achievement) achievementResponse {
	return achievementResponse{
		ID:               achievement.ID,
		Code:             achievement.Code,
		Name:             achievement.Name,
		Description:      achievement.Description,
		RequirementType:  string(achievement.RequirementType),
		RequirementValue: achievement.RequirementValue,
		RewardCoins:      achievement.RewardCoins,
		RewardVip:        achievement.RewardVip,
	}
}
