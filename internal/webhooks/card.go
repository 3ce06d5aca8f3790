package webhooks

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/thanhhuy/storefront-backend/internal/audit"
	"github.com/thanhhuy/storefront-backend/internal/orders"
	"github.com/thanhhuy/storefront-backend/internal/vouchers"
	"github.com/thanhhuy/storefront-backend/pkg/config"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/logger"
)

// CardEventScope namespaces the card event dedup keys in redis.
const CardEventScope = "webhook:card"

// CardService handles the card network's payment intent webhooks. Signature
// verification and event-id deduplication happen at the HTTP layer; this
// service owns the order-state consequences.
type CardService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type cardService struct {
	processor
}

// CardDeps wires the card webhook handler.
type CardDeps struct {
	Checkout config.CheckoutConfig
	Tx       txRunner
	Orders   orders.Repository
	Vouchers vouchers.Service
	Audit    audit.Recorder
	Rollback rollbackRunner
	Notifier orderNotifier
	Log      *logger.Logger
}

// NewCardService builds the card webhook handler.
func NewCardService(deps CardDeps) (CardService, error) {
	svc := &cardService{
		processor: processor{
			tx:            deps.Tx,
			orders:        deps.Orders,
			vouchers:      deps.Vouchers,
			audit:         deps.Audit,
			rollback:      deps.Rollback,
			notifier:      deps.Notifier,
			log:           deps.Log,
			amountEpsilon: deps.Checkout.AmountEpsilon,
		},
	}
	if err := svc.processor.validate(); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *cardService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event is required")
	}
	ctx = s.log.WithGateway(ctx, enums.PaymentMethodCard.String())

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
	default:
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	if intent.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
	}
	ctx = s.log.WithOrderRef(ctx, intent.ID)

	order, err := s.orders.FindByGatewayIntentRef(ctx, intent.ID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.log.Security(ctx, "card webhook for unknown intent", err)
		}
		return err
	}
	if order.Status == enums.OrderStatusCompleted && event.Type == "payment_intent.succeeded" {
		return nil
	}

	if err := s.checkAmount(ctx, order, intent.Amount, enums.PaymentMethodCard.String()); err != nil {
		return err
	}

	if event.Type == "payment_intent.payment_failed" {
		return s.fail(ctx, order, failureReason(&intent))
	}
	return s.settle(ctx, order)
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return "card payment failed: " + intent.LastPaymentError.Msg
	}
	return "card payment failed"
}
