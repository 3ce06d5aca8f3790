package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/internal/audit"
	"github.com/thanhhuy/storefront-backend/internal/inventory"
	"github.com/thanhhuy/storefront-backend/internal/orders"
	"github.com/thanhhuy/storefront-backend/internal/payments"
	"github.com/thanhhuy/storefront-backend/internal/shipping"
	"github.com/thanhhuy/storefront-backend/internal/vouchers"
	"github.com/thanhhuy/storefront-backend/pkg/config"
	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/logger"
)

// GuardScope namespaces the in-flight order guard keys in redis.
const GuardScope = "checkout"

// rateLimitScope namespaces the per-user order counters in redis.
const rateLimitScope = "orders"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type idempotencyGuard interface {
	CheckAndMark(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type rateLimiter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope, id string) string
}

type inventoryLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
}

type shippingQuoter interface {
	Quote(ctx context.Context, input shipping.QuoteInput) (*shipping.Quote, error)
}

type gatewayResolver interface {
	ForMethod(method enums.PaymentMethod) (payments.Gateway, error)
}

type rollbackRunner interface {
	Rollback(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
}

type orderNotifier interface {
	OrderCompleted(ctx context.Context, order *models.Order) error
}

type stockLedger struct{}

func (stockLedger) Reserve(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error {
	return inventory.Reserve(ctx, tx, lines)
}

// Service executes order fulfillment orchestration.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
}

type service struct {
	cfg       config.CheckoutConfig
	tx        txRunner
	validator *Validator
	orders    orders.Repository
	vouchers  vouchers.Service
	ledger    inventoryLedger
	shipping  shippingQuoter
	gateways  gatewayResolver
	guard     idempotencyGuard
	limiter   rateLimiter
	rollback  rollbackRunner
	audit     audit.Recorder
	notifier  orderNotifier
	log       *logger.Logger
	now       func() time.Time
}

// NewService builds the fulfillment orchestrator. The limiter is optional:
// without it, rate limiting falls back to the database count alone.
func NewService(
	cfg config.CheckoutConfig,
	tx txRunner,
	validator *Validator,
	ordersRepo orders.Repository,
	voucherSvc vouchers.Service,
	ledger inventoryLedger,
	shippingSvc shippingQuoter,
	gateways gatewayResolver,
	guard idempotencyGuard,
	limiter rateLimiter,
	rollbackSvc rollbackRunner,
	recorder audit.Recorder,
	notifier orderNotifier,
	log *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if validator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "validator required")
	}
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if voucherSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "voucher service required")
	}
	if ledger == nil {
		ledger = stockLedger{}
	}
	if shippingSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shipping service required")
	}
	if gateways == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway registry required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if rollbackSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "rollback service required")
	}
	if recorder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "audit recorder required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		cfg:       cfg,
		tx:        tx,
		validator: validator,
		orders:    ordersRepo,
		vouchers:  voucherSvc,
		ledger:    ledger,
		shipping:  shippingSvc,
		gateways:  gateways,
		guard:     guard,
		limiter:   limiter,
		rollback:  rollbackSvc,
		audit:     recorder,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}, nil
}

// PlaceOrder validates the cart, reserves stock and voucher atomically,
// persists the order, then initiates payment. Cash on delivery finalizes
// synchronously; gateway-backed methods stay pending until the callback. A
// gateway failure after the commit rolls back everything the order reserved.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	cart, err := s.validator.Validate(ctx, input)
	if err != nil {
		return nil, err
	}
	gateway, err := s.gateways.ForMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	if err := s.checkRateLimit(ctx, input.UserID); err != nil {
		return nil, err
	}

	ref := paymentIntentRef(input.IdempotencyKey)
	ctx = s.log.WithOrderRef(ctx, ref)

	// A retried submission with the same idempotency key lands on the
	// existing order instead of a second charge, but only while that order
	// is still in flight. Once it reached a terminal state the key is
	// spent.
	if existing, err := s.orders.FindByPaymentIntentRef(ctx, ref); err == nil {
		if existing.Status.IsTerminal() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				"an order with this idempotency key already reached status "+existing.Status.String())
		}
		return &PlaceOrderResult{Order: existing, Replayed: true}, nil
	} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	alreadyInFlight, err := s.guard.CheckAndMark(ctx, ref)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	if alreadyInFlight {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an identical order is already being processed")
	}

	order, err := s.createOrder(ctx, input, cart, ref)
	if err != nil {
		_ = s.guard.Delete(ctx, ref)
		return nil, err
	}

	result, err := gateway.Initiate(ctx, order)
	if err != nil {
		if _, rbErr := s.rollback.Rollback(ctx, order.ID, "payment initiation failed"); rbErr != nil {
			s.log.Error(ctx, "failed to roll back order after gateway failure", rbErr)
		}
		_ = s.guard.Delete(ctx, ref)
		return nil, err
	}
	if result.GatewayIntentRef != "" {
		if err := s.orders.SetGatewayIntentRef(ctx, order.ID, result.GatewayIntentRef); err != nil {
			s.log.Error(ctx, "failed to persist gateway intent ref", err)
		}
		order.GatewayIntentRef = &result.GatewayIntentRef
	}

	if result.Status == payments.StatusFinalized {
		if err := s.finalize(ctx, order); err != nil {
			return nil, err
		}
		if err := s.notifier.OrderCompleted(ctx, order); err != nil {
			s.log.Warn(ctx, "order completed notification failed")
		}
	}

	return &PlaceOrderResult{
		Order:        order,
		RedirectURL:  result.RedirectURL,
		ClientSecret: result.ClientSecret,
	}, nil
}

// checkRateLimit caps orders per user per hour. The redis counter rejects
// hot loops cheaply; the database count stays authoritative so a flushed
// counter cannot unlock the cap.
func (s *service) checkRateLimit(ctx context.Context, userID uuid.UUID) error {
	if s.cfg.HourlyOrderLimit <= 0 {
		return nil
	}
	if s.limiter != nil {
		key := s.limiter.RateLimitKey(rateLimitScope, userID.String())
		attempts, err := s.limiter.IncrWithTTL(ctx, key, time.Hour)
		if err != nil {
			s.log.Warn(ctx, "rate limit counter unavailable, falling back to database count")
		} else if attempts > int64(s.cfg.HourlyOrderLimit) {
			return pkgerrors.New(pkgerrors.CodeRateLimit, "too many orders placed recently")
		}
	}
	count, err := s.orders.CountByUserSince(ctx, userID, s.now().Add(-time.Hour))
	if err != nil {
		return err
	}
	if count >= int64(s.cfg.HourlyOrderLimit) {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many orders placed recently")
	}
	return nil
}

// createOrder runs the single transaction that reserves stock, claims the
// voucher, and persists the order row. Any failure rolls all three back.
func (s *service) createOrder(ctx context.Context, input PlaceOrderInput, cart *validatedCart, ref string) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.ledger.Reserve(ctx, tx, toInventoryLines(cart.items)); err != nil {
			return err
		}

		var discount int64
		var voucherID *uuid.UUID
		var voucherCode *string
		if input.VoucherCode != nil && strings.TrimSpace(*input.VoucherCode) != "" {
			reservation, err := s.vouchers.Reserve(ctx, tx, vouchers.ReserveInput{
				UserID:      input.UserID,
				Code:        *input.VoucherCode,
				OrderAmount: cart.subtotal,
				OrderRef:    ref,
			})
			if err != nil {
				return err
			}
			discount = reservation.DiscountAmount
			voucherID = &reservation.Voucher.ID
			voucherCode = &reservation.Voucher.Code
		}

		quote, err := s.shipping.Quote(ctx, shipping.QuoteInput{
			Address:      input.ShippingAddress,
			OrderAmount:  cart.subtotal - discount,
			FastDelivery: input.FastDelivery,
		})
		if err != nil {
			return err
		}

		// The pre-discount total includes shipping so that the stored
		// figures always satisfy amount = original - discount.
		original := cart.subtotal + quote.Total
		amount := original - discount
		if err := s.validator.CheckAmountBounds(amount); err != nil {
			return err
		}
		if err := s.validator.CheckClientAmount(input.ClientAmount, amount); err != nil {
			return err
		}

		address := input.ShippingAddress
		created, err := s.orders.WithTx(tx).Create(ctx, &models.Order{
			ID:               uuid.New(),
			UserID:           input.UserID,
			Status:           enums.OrderStatusPending,
			DeliveryStatus:   enums.DeliveryStatusNotShipped,
			PaymentMethod:    input.PaymentMethod,
			PaymentIntentRef: ref,
			Currency:         "vnd",
			OriginalAmount:   original,
			DiscountAmount:   discount,
			Amount:           amount,
			ShippingFee:      quote.Total,
			PhoneNumber:      input.PhoneNumber,
			ShippingAddress:  &address,
			VoucherID:        voucherID,
			VoucherCode:      voucherCode,
			Items:            cart.items,
		})
		if err != nil {
			return err
		}
		order = created

		return s.audit.Record(ctx, tx, audit.Entry{
			OrderID: &created.ID,
			UserID:  &input.UserID,
			Type:    enums.AuditOrderCreated,
			Metadata: map[string]any{
				"payment_method": input.PaymentMethod,
				"amount":         amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// finalize completes an order whose payment settled at initiation time, so
// the caller gets the terminal status without waiting for any callback. The
// voucher hold becomes a permanent use.
func (s *service) finalize(ctx context.Context, order *models.Order) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		transitioned, err := s.orders.WithTx(tx).UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCompleted)
		if err != nil {
			return err
		}
		if !transitioned {
			return nil
		}
		if err := s.vouchers.MarkUsed(ctx, tx, order.PaymentIntentRef); err != nil {
			return err
		}
		entry := audit.StatusChange(order.ID, enums.AuditOrderCompleted, enums.OrderStatusPending, enums.OrderStatusCompleted)
		entry.UserID = &order.UserID
		return s.audit.Record(ctx, tx, entry)
	})
	if err != nil {
		return err
	}
	order.Status = enums.OrderStatusCompleted
	return nil
}

func toInventoryLines(items []models.OrderLineItem) []inventory.Line {
	lines := make([]inventory.Line, len(items))
	for i, item := range items {
		lines[i] = inventory.Line{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Qty:       item.Quantity,
		}
	}
	return lines
}

// paymentIntentRef derives the order's correlation id. Client idempotency
// keys map to a stable ref so retries collide on the unique index instead
// of creating a second order.
func paymentIntentRef(idempotencyKey string) string {
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		return "ord_" + uuid.NewString()
	}
	return "ord_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}
