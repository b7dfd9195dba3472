package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/valcrest-online/valcrest-backend/api/responses"
	wheelsvc "github.com/valcrest-online/valcrest-backend/internal/wheel"
	"github.com/valcrest-online/valcrest-backend/pkg/db/models"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

// WheelStatus reports the prize table and the caller's spin cooldown.
func WheelStatus(svc wheelsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wheel service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Status(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		prizes := make([]wheelPrizeResponse, 0, len(status.Prizes))
		for _, prize := range status.Prizes {
			prizes = append(prizes, newWheelPrizeResponse(prize))
		}

		responses.WriteSuccess(w, wheelStatusResponse{
			Prizes:           prizes,
			LastSpinAt:       status.LastSpinAt,
			SecondsRemaining: status.SecondsRemaining,
			CanSpin:          status.CanSpin,
		})
	}
}

// SpinWheel rolls the wheel when the caller's cooldown has elapsed.
func SpinWheel(svc wheelsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wheel service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Spin(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, spinResponse{
			Prize:   newWheelPrizeResponse(result.Prize),
			Coins:   result.Coins,
			VipDays: result.VipDays,
		})
	}
}

type wheelStatusResponse struct {
	Prizes           []wheelPrizeResponse `json:"prizes"`
	LastSpinAt       *time.Time           `json:"last_spin_at,omitempty"`
	SecondsRemaining *int64               `json:"seconds_remaining,omitempty"`
	CanSpin          bool                 `json:"can_spin"`
}

type wheelPrizeResponse struct {
	PrizeID uuid.UUID `json:"prize_id"`
	Label   string    `json:"label"`
	Coins   int       `json:"coins"`
	VipDays int       `json:"vip_days"`
}

type spinResponse struct {
	Prize   wheelPrizeResponse `json:"prize"`
	Coins   int                `json:"coins"`
	VipDays int                `json:"vip_days"`
}

func newWheelPrizeResponse(prize models.WheelPrize) wheelPrizeResponse {
	return wheelPrizeResponse{
		PrizeID: prize.ID,
		Label:   prize.Label,
		Coins:   prize.Coins,
		VipDays: prize.VipDays,
	}
}
