package rollback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/internal/audit"
	"github.com/thanhhuy/storefront-backend/internal/inventory"
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

type inventoryLedger interface {
	Release(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
}

type orderNotifier interface {
	OrderCanceled(ctx context.Context, order *models.Order, reason string) error
}

type stockLedger struct{}

func (stockLedger) Release(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error {
	return inventory.Release(ctx, tx, lines)
}

// Service unwinds a pending order: cancel it, return its stock, release its
// voucher hold. Every step tolerates having already run, so retried
// rollbacks converge instead of double-restoring.
type Service interface {
	Rollback(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
	CancelByUser(ctx context.Context, orderID, userID uuid.UUID, reason string) (*models.Order, error)
}

type service struct {
	tx       txRunner
	orders   orders.Repository
	vouchers vouchers.Service
	ledger   inventoryLedger
	audit    audit.Recorder
	notifier orderNotifier
	log      *logger.Logger
	now      func() time.Time
}

// NewService builds the rollback service.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	voucherSvc vouchers.Service,
	ledger inventoryLedger,
	recorder audit.Recorder,
	notifier orderNotifier,
	log *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
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
		tx:       tx,
		orders:   ordersRepo,
		vouchers: voucherSvc,
		ledger:   ledger,
		audit:    recorder,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}, nil
}

// CancelByUser cancels the caller's own pending order.
func (s *service) CancelByUser(ctx context.Context, orderID, userID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another account")
	}
	return s.Rollback(ctx, orderID, reason)
}

// Rollback cancels a pending order and restores everything it reserved.
// Calling it on an already-canceled order is a no-op; a completed order
// cannot be rolled back.
func (s *service) Rollback(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if reason == "" {
		reason = "order rolled back"
	}
	ctx = s.log.WithOrderRef(ctx, orderID.String())

	var order *models.Order
	var rolledBack bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		found, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		order = found

		switch order.Status {
		case enums.OrderStatusCanceled:
			return nil
		case enums.OrderStatusCompleted:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "completed orders cannot be rolled back")
		}

		transitioned, err := repo.UpdateStatus(ctx, orderID, enums.OrderStatusPending, enums.OrderStatusCanceled)
		if err != nil {
			return err
		}
		if !transitioned {
			// Lost the race to another rollback; re-read and bail out the
			// same way a late caller would.
			order, err = repo.FindByID(ctx, orderID)
			if err != nil {
				return err
			}
			if order.Status == enums.OrderStatusCompleted {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "completed orders cannot be rolled back")
			}
			return nil
		}

		now := s.now()
		if err := repo.Update(ctx, orderID, map[string]any{
			"cancel_reason": reason,
			"canceled_at":   now,
		}); err != nil {
			return err
		}
		order.Status = enums.OrderStatusCanceled
		order.CancelReason = &reason
		order.CanceledAt = &now

		if err := s.ledger.Release(ctx, tx, toInventoryLines(order.Items)); err != nil {
			return err
		}
		released, err := s.vouchers.Release(ctx, tx, order.PaymentIntentRef)
		if err != nil {
			return err
		}

		entry := audit.StatusChange(orderID, enums.AuditOrderCanceled, enums.OrderStatusPending, enums.OrderStatusCanceled)
		entry.UserID = &order.UserID
		entry.Metadata = map[string]any{"reason": reason, "voucher_released": released}
		if err := s.audit.Record(ctx, tx, entry); err != nil {
			return err
		}

		restored := audit.Entry{
			OrderID:  &orderID,
			Type:     enums.AuditInventoryRestored,
			Metadata: map[string]any{"lines": len(order.Items)},
		}
		if err := s.audit.Record(ctx, tx, restored); err != nil {
			return err
		}

		rolledBack = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rolledBack {
		if err := s.notifier.OrderCanceled(ctx, order, reason); err != nil {
			s.log.Warn(ctx, "order canceled notification failed")
		}
	}
	return order, nil
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
