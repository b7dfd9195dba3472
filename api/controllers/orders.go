package controllers

import (
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/valcrest-online/valcrest-backend/api/responses"
	"github.com/valcrest-online/valcrest-backend/api/validators"
	ordersvc "github.com/valcrest-online/valcrest-backend/internal/orders"
	paymentsvc "github.com/valcrest-online/valcrest-backend/internal/payments"
	"github.com/valcrest-online/valcrest-backend/pkg/enums"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

const callbackSecretHeader = "X-Callback-Secret"

// CreateOrder dispatches one of the four purchase flows.
func CreateOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		accountID, err := accountIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		domainPayload, err := payload.toPayload()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateOrder(r.Context(), ordersvc.Actor{AccountID: accountID}, domainPayload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(created))
	}
}

// CancelOrder is the public abandon hook the payment page redirects to. A
// well-formed request is always accepted; unknown sessions are a no-op.
func CancelOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		sessionID, err := validators.RequireQuery(r, "session_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CancelOrder(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

// ProviderCallback receives the billing provider's settlement notification
// and drives the matching order to its terminal state.
func ProviderCallback(orders ordersvc.Service, lifecycle paymentsvc.Service, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orders == nil || lifecycle == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		if secret != "" {
			provided := r.Header.Get(callbackSecretHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback secret"))
				return
			}
		}

		var payload providerCallbackRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := orders.GetByToken(r.Context(), payload.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch payload.Status {
		case "completed":
			err = lifecycle.OnOrderCompleted(r.Context(), order)
		case "cancelled":
			err = lifecycle.OnOrderCancelled(r.Context(), order)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

type createOrderRequest struct {
	Flow string `json:"flow" validate:"required,oneof=webshop bundle gamepass gamepass_extend"`

	// webshop
	Items             []webshopItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	IsGift            bool                 `json:"is_gift,omitempty"`
	GiftCharacterName string               `json:"gift_character_name,omitempty"`

	// bundle
	BundleID *uuid.UUID `json:"bundle_id,omitempty"`

	// gamepass flows
	Tier    string `json:"tier,omitempty" validate:"omitempty,oneof=elite gold"`
	Upgrade bool   `json:"upgrade,omitempty"`
	Days    int    `json:"days,omitempty" validate:"omitempty,gt=0"`

	// shared
	CharacterID   *uuid.UUID `json:"character_id,omitempty"`
	CharacterName string     `json:"character_name,omitempty"`
}

type webshopItemRequest struct {
	ID        string          `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
}

func (req createOrderRequest) toPayload() (ordersvc.Payload, error) {
	flow, err := enums.ParseOrderFlow(req.Flow)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order flow")
	}

	switch flow {
	case enums.OrderFlowWebshop:
		items := make([]ordersvc.WebshopItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, ordersvc.WebshopItem{
				ID:        item.ID,
				Name:      item.Name,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
			})
		}
		return ordersvc.WebshopPayload{
			Items:             items,
			CharacterID:       req.CharacterID,
			CharacterName:     req.CharacterName,
			IsGift:            req.IsGift,
			GiftCharacterName: req.GiftCharacterName,
		}, nil
	case enums.OrderFlowBundle:
		payload := ordersvc.BundlePayload{
			CharacterID:   req.CharacterID,
			CharacterName: req.CharacterName,
		}
		if req.BundleID != nil {
			payload.BundleID = *req.BundleID
		}
		return payload, nil
	case enums.OrderFlowGamePass:
		return ordersvc.GamePassPurchasePayload{
			Tier:    enums.GamePassTier(req.Tier),
			Upgrade: req.Upgrade,
		}, nil
	case enums.OrderFlowGamePassExtend:
		return ordersvc.GamePassExtendPayload{
			Tier: enums.GamePassTier(req.Tier),
			Days: req.Days,
		}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order flow")
}

type providerCallbackRequest struct {
	Token  string `json:"token" validate:"required"`
	Status string `json:"status" validate:"required,oneof=completed cancelled"`
}

type orderResponse struct {
	OrderID         uuid.UUID `json:"order_id"`
	Flow            string    `json:"flow"`
	RedirectURL     string    `json:"redirect_url,omitempty"`
	CancelSessionID string    `json:"cancel_session_id"`
}

func newOrderResponse(created *ordersvc.CreatedOrder) orderResponse {
	if created == nil {
		return orderResponse{}
	}
	return orderResponse{
		OrderID:         created.OrderID,
		Flow:            string(created.Flow),
		RedirectURL:     created.RedirectURL,
		CancelSessionID: created.CancelSessionID,
	}
}
