package webhooks

import (
	"encoding/json"
	"net/http"

	"github.com/thanhhuy/storefront-backend/api/responses"
	internalwebhooks "github.com/thanhhuy/storefront-backend/internal/webhooks"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/logger"
	"github.com/thanhhuy/storefront-backend/pkg/momo"
)

// WalletIPN receives the wallet gateway's server-to-server payment
// notifications. Signature, replay, and amount verification live in the
// service; this handler only decodes and acks.
func WalletIPN(svc internalwebhooks.WalletService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet webhook service unavailable"))
			return
		}

		// Gateways add fields over time; decode leniently and let the
		// signature check reject anything forged.
		var payload momo.CallbackPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback body"))
			return
		}

		if err := svc.HandleIPN(r.Context(), payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
