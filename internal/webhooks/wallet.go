package webhooks

import (
	"context"
	"fmt"

	"github.com/thanhhuy/storefront-backend/internal/audit"
	"github.com/thanhhuy/storefront-backend/internal/orders"
	"github.com/thanhhuy/storefront-backend/internal/vouchers"
	"github.com/thanhhuy/storefront-backend/pkg/config"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/logger"
	"github.com/thanhhuy/storefront-backend/pkg/momo"
)

// WalletReplayScope namespaces the IPN replay guard keys in redis.
const WalletReplayScope = "webhook:wallet"

type replayGuard interface {
	CheckAndMark(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// WalletService handles the wallet gateway's asynchronous IPN callbacks.
type WalletService interface {
	HandleIPN(ctx context.Context, payload momo.CallbackPayload) error
}

type walletService struct {
	processor
	accessKey string
	secretKey string
	guard     replayGuard
}

// WalletDeps wires the wallet IPN handler.
type WalletDeps struct {
	Momo     config.MomoConfig
	Checkout config.CheckoutConfig
	Tx       txRunner
	Orders   orders.Repository
	Vouchers vouchers.Service
	Audit    audit.Recorder
	Rollback rollbackRunner
	Notifier orderNotifier
	Guard    replayGuard
	Log      *logger.Logger
}

// NewWalletService builds the wallet IPN handler.
func NewWalletService(deps WalletDeps) (WalletService, error) {
	svc := &walletService{
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
		accessKey: deps.Momo.AccessKey,
		secretKey: deps.Momo.SecretKey,
		guard:     deps.Guard,
	}
	if err := svc.processor.validate(); err != nil {
		return nil, err
	}
	if svc.accessKey == "" || svc.secretKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet credentials required")
	}
	if svc.guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "replay guard required")
	}
	return svc, nil
}

// HandleIPN verifies, deduplicates, and applies one wallet callback. The
// gateway retries until it gets a 2xx, so every early return that is not an
// attack signal must ack.
func (s *walletService) HandleIPN(ctx context.Context, payload momo.CallbackPayload) error {
	ctx = s.log.WithGateway(ctx, enums.PaymentMethodWallet.String())
	ctx = s.log.WithOrderRef(ctx, payload.OrderID)

	if !momo.VerifyCallback(s.accessKey, s.secretKey, payload) {
		err := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid callback signature")
		s.log.Security(ctx, "wallet callback signature rejected", err)
		entry := audit.Entry{
			Type:     enums.AuditSecurityEvent,
			Severity: enums.AuditSeverityHigh,
			Metadata: map[string]any{
				"gateway":   enums.PaymentMethodWallet,
				"order_ref": payload.OrderID,
				"reason":    "bad_signature",
			},
		}
		if auditErr := s.audit.Record(ctx, nil, entry); auditErr != nil {
			s.log.Error(ctx, "failed to record security event", auditErr)
		}
		return err
	}

	// transId disambiguates the gateway's own retries from a replayed
	// capture of an earlier callback.
	replayKey := fmt.Sprintf("%s:%d", payload.OrderID, payload.TransID)
	seen, err := s.guard.CheckAndMark(ctx, replayKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check replay guard")
	}
	if seen {
		s.log.Warn(ctx, "duplicate wallet callback ignored")
		return nil
	}

	if err := s.apply(ctx, payload); err != nil {
		_ = s.guard.Delete(ctx, replayKey)
		return err
	}
	return nil
}

func (s *walletService) apply(ctx context.Context, payload momo.CallbackPayload) error {
	order, err := s.orders.FindByPaymentIntentRef(ctx, payload.OrderID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.log.Security(ctx, "wallet callback for unknown order", err)
		}
		return err
	}

	if order.Status == enums.OrderStatusCompleted {
		return nil
	}

	if err := s.checkAmount(ctx, order, payload.Amount, enums.PaymentMethodWallet.String()); err != nil {
		return err
	}

	if payload.ResultCode != momo.ResultCodeSuccess {
		reason := fmt.Sprintf("wallet payment failed (code %d)", payload.ResultCode)
		return s.fail(ctx, order, reason)
	}
	return s.settle(ctx, order)
}
