package payments

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	pkgstripe "github.com/thanhhuy/storefront-backend/pkg/stripe"
)

// StripeIntentClient exposes the subset of Stripe operations the card
// gateway requires.
type StripeIntentClient interface {
	Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeIntentWrapper struct{}

// NewStripeIntentClient wraps the initialized Stripe client so the card
// gateway can be tested.
func NewStripeIntentClient(api *pkgstripe.Client) StripeIntentClient {
	if api == nil {
		return nil
	}
	return &stripeIntentWrapper{}
}

func (w *stripeIntentWrapper) Create(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

type cardGateway struct {
	intents StripeIntentClient
}

// NewCardGateway builds the card-network gateway backed by Stripe payment
// intents.
func NewCardGateway(intents StripeIntentClient) (Gateway, error) {
	if intents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "card gateway requires a stripe intent client")
	}
	return &cardGateway{intents: intents}, nil
}

func (g *cardGateway) Method() enums.PaymentMethod {
	return enums.PaymentMethodCard
}

// Initiate creates a remote payment intent for the order total. VND is a
// zero-decimal currency, so the amount goes over the wire unchanged.
func (g *cardGateway) Initiate(ctx context.Context, order *models.Order) (*InitiateResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(order.Amount),
		Currency: stripe.String(order.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_ref", order.PaymentIntentRef)

	intent, err := g.intents.Create(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create card payment intent")
	}
	return &InitiateResult{
		Status:           StatusPending,
		GatewayIntentRef: intent.ID,
		ClientSecret:     intent.ClientSecret,
	}, nil
}
