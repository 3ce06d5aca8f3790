package payments

import (
	"context"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
)

// codGateway handles cash on delivery. There is no remote call and no
// callback: the payment is finalized at checkout time and the balance is
// collected at the door.
type codGateway struct{}

// NewCODGateway builds the cash-on-delivery gateway.
func NewCODGateway() Gateway {
	return codGateway{}
}

func (codGateway) Method() enums.PaymentMethod {
	return enums.PaymentMethodCOD
}

func (codGateway) Initiate(ctx context.Context, order *models.Order) (*InitiateResult, error) {
	return &InitiateResult{Status: StatusFinalized}, nil
}
