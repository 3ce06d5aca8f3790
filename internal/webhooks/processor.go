package webhooks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/internal/audit"
	"github.com/thanhhuy/storefront-backend/internal/orders"
	"github.com/thanhhuy/storefront-backend/internal/vouchers"
	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rollbackRunner interface {
	Rollback(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
}

type orderNotifier interface {
	OrderCompleted(ctx context.Context, order *models.Order) error
}

// processor holds the settlement logic both gateway callbacks share: verify
// the money matches, flip pending to completed exactly once, make the
// voucher hold permanent.
type processor struct {
	tx            txRunner
	orders        orders.Repository
	vouchers      vouchers.Service
	audit         audit.Recorder
	rollback      rollbackRunner
	notifier      orderNotifier
	log           *logger.Logger
	amountEpsilon int64
}

// checkAmount rejects callbacks whose settled amount drifts from the order
// total. A mismatch is treated as a tampering signal, not a client error.
func (p *processor) checkAmount(ctx context.Context, order *models.Order, amount int64, gateway string) error {
	diff := amount - order.Amount
	if diff < 0 {
		diff = -diff
	}
	if diff <= p.amountEpsilon {
		return nil
	}

	err := pkgerrors.New(pkgerrors.CodeAmountMismatch, "callback amount does not match order").
		WithDetails(map[string]any{"expected": order.Amount, "received": amount})
	p.log.Security(ctx, "callback amount mismatch", err)
	entry := audit.Entry{
		OrderID:  &order.ID,
		Type:     enums.AuditSecurityEvent,
		Severity: enums.AuditSeverityHigh,
		Metadata: map[string]any{
			"gateway":  gateway,
			"expected": order.Amount,
			"received": amount,
		},
	}
	if auditErr := p.audit.Record(ctx, nil, entry); auditErr != nil {
		p.log.Error(ctx, "failed to record security event", auditErr)
	}
	return err
}

// settle completes a pending order. Duplicate deliveries find the order
// already completed and ack without side effects.
func (p *processor) settle(ctx context.Context, order *models.Order) error {
	var completed bool
	err := p.tx.WithTx(ctx, func(tx *gorm.DB) error {
		transitioned, err := p.orders.WithTx(tx).UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCompleted)
		if err != nil {
			return err
		}
		if !transitioned {
			return nil
		}
		if err := p.vouchers.MarkUsed(ctx, tx, order.PaymentIntentRef); err != nil {
			return err
		}
		entry := audit.StatusChange(order.ID, enums.AuditOrderCompleted, enums.OrderStatusPending, enums.OrderStatusCompleted)
		entry.UserID = &order.UserID
		if err := p.audit.Record(ctx, tx, entry); err != nil {
			return err
		}
		completed = true
		return nil
	})
	if err != nil {
		return err
	}

	if completed {
		order.Status = enums.OrderStatusCompleted
		if err := p.notifier.OrderCompleted(ctx, order); err != nil {
			p.log.Warn(ctx, "order completed notification failed")
		}
	}
	return nil
}

// fail unwinds an order whose payment the gateway reported as failed.
func (p *processor) fail(ctx context.Context, order *models.Order, reason string) error {
	if order.Status == enums.OrderStatusCanceled {
		return nil
	}
	_, err := p.rollback.Rollback(ctx, order.ID, reason)
	if pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		// Completed in the meantime; a late failure callback loses.
		p.log.Warn(ctx, "ignoring failure callback for completed order")
		return nil
	}
	return err
}

func (p *processor) validate() error {
	if p.tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if p.orders == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if p.vouchers == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "voucher service required")
	}
	if p.audit == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "audit recorder required")
	}
	if p.rollback == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "rollback service required")
	}
	if p.notifier == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "notifier required")
	}
	if p.log == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return nil
}
