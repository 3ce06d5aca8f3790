package payments

import (
	"context"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
)

// InitiateStatus tells the orchestrator whether the payment settles now or
// asynchronously through a gateway callback.
type InitiateStatus string

const (
	// StatusPending means the gateway will confirm the payment later via
	// its callback; the order stays pending until then.
	StatusPending InitiateStatus = "pending"
	// StatusFinalized means payment needs no further confirmation and the
	// order can complete synchronously. Cash on delivery settles this way.
	StatusFinalized InitiateStatus = "finalized"
)

// InitiateResult is what a gateway hands back after starting a payment.
// GatewayIntentRef is the remote intent id when the gateway assigns one;
// cash on delivery and wallet flows leave it empty and correlate by the
// order's own payment intent ref.
type InitiateResult struct {
	Status           InitiateStatus
	GatewayIntentRef string
	RedirectURL      string
	ClientSecret     string
}

// Gateway starts a payment for one order with a specific payment method.
// Initiation happens after the order row is committed; a gateway failure is
// surfaced to the orchestrator, which unwinds the order.
type Gateway interface {
	Method() enums.PaymentMethod
	Initiate(ctx context.Context, order *models.Order) (*InitiateResult, error)
}

// Registry resolves the gateway for a payment method.
type Registry struct {
	gateways map[enums.PaymentMethod]Gateway
}

// NewRegistry indexes the provided gateways by method.
func NewRegistry(gateways ...Gateway) (*Registry, error) {
	index := make(map[enums.PaymentMethod]Gateway, len(gateways))
	for _, gw := range gateways {
		if gw == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "nil payment gateway provided")
		}
		if _, exists := index[gw.Method()]; exists {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "duplicate payment gateway for method "+gw.Method().String())
		}
		index[gw.Method()] = gw
	}
	return &Registry{gateways: index}, nil
}

// ForMethod returns the gateway handling the given method.
func (r *Registry) ForMethod(method enums.PaymentMethod) (Gateway, error) {
	gw, ok := r.gateways[method]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method "+method.String())
	}
	return gw, nil
}
