package controllers

import (
	"net/http"

	"github.com/thanhhuy/storefront-backend/api/responses"
	"github.com/thanhhuy/storefront-backend/api/validators"
	"github.com/thanhhuy/storefront-backend/internal/shipping"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/logger"
	"github.com/thanhhuy/storefront-backend/pkg/types"
)

type shippingQuoteRequest struct {
	Address      types.Address `json:"address"`
	OrderAmount  int64         `json:"order_amount" validate:"required,min=0"`
	FastDelivery bool          `json:"fast_delivery"`
}

// ShippingQuote prices delivery for a prospective order.
func ShippingQuote(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		var req shippingQuoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), shipping.QuoteInput{
			Address:      req.Address,
			OrderAmount:  req.OrderAmount,
			FastDelivery: req.FastDelivery,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}
