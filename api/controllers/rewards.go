package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/valcrest-online/valcrest-backend/api/responses"
	"github.com/valcrest-online/valcrest-backend/api/validators"
	ledgersvc "github.com/valcrest-online/valcrest-backend/internal/ledger"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// RewardHistory lists the caller's credited rewards, newest first.
func RewardHistory(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultHistoryLimit, 1, maxHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := svc.History(r.Context(), accountID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]rewardEventResponse, 0, len(events))
		for _, event := range events {
			out = append(out, rewardEventResponse{
				EventID:   event.ID,
				Source:    string(event.Source),
				SourceRef: event.SourceRef,
				Coins:     event.Coins,
				VipDays:   event.VipDays,
				CreatedAt: event.CreatedAt,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

type rewardEventResponse struct {
	EventID   uuid.UUID `json:"event_id"`
	Source    string    `json:"source"`
	SourceRef string    `json:"source_ref"`
	Coins     int       `json:"coins"`
	VipDays   int       `json:"vip_days"`
	CreatedAt time.Time `json:"created_at"`
}
