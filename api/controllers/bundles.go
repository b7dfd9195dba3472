package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/valcrest-online/valcrest-backend/api/responses"
	stocksvc "github.com/valcrest-online/valcrest-backend/internal/stock"
	pkgerrors "github.com/valcrest-online/valcrest-backend/pkg/errors"
	"github.com/valcrest-online/valcrest-backend/pkg/logger"
)

// ListBundles exposes the public bundle storefront with live availability.
func ListBundles(svc stocksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		bundles, err := svc.ListBundles(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]bundleResponse, 0, len(bundles))
		for _, bundle := range bundles {
			remaining := bundle.TotalQty - bundle.ReservedQty - bundle.SoldQty
			if remaining < 0 {
				remaining = 0
			}
			out = append(out, bundleResponse{
				BundleID:  bundle.BundleID,
				Name:      bundle.Name,
				Remaining: remaining,
				SoldOut:   remaining == 0,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

type bundleResponse struct {
	BundleID  uuid.UUID `json:"bundle_id"`
	Name      string    `json:"name"`
	Remaining int       `json:"remaining"`
	SoldOut   bool      `json:"sold_out"`
}
