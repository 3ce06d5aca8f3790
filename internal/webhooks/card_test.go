package webhooks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
)

func cardEvent(t *testing.T, eventType string, intent stripe.PaymentIntent) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_" + eventType,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEvent_SucceededCompletesOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ref := "pi_123"
	order := f.seedPendingOrder(t, enums.PaymentMethodCard, &ref)

	event := cardEvent(t, "payment_intent.succeeded", stripe.PaymentIntent{
		ID:     ref,
		Amount: order.Amount,
	})
	if err := f.card.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	var got models.Order
	if err := f.db.First(&got, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if got.Status != enums.OrderStatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestHandleEvent_AmountMismatchRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ref := "pi_456"
	order := f.seedPendingOrder(t, enums.PaymentMethodCard, &ref)

	event := cardEvent(t, "payment_intent.succeeded", stripe.PaymentIntent{
		ID:     ref,
		Amount: order.Amount - 100000,
	})
	err := f.card.HandleEvent(context.Background(), event)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeAmountMismatch {
		t.Fatalf("expected amount mismatch, got %v", err)
	}

	var got models.Order
	if err := f.db.First(&got, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if got.Status != enums.OrderStatusPending {
		t.Fatalf("order must stay pending, got %s", got.Status)
	}
}

func TestHandleEvent_PaymentFailedRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ref := "pi_789"
	order := f.seedPendingOrder(t, enums.PaymentMethodCard, &ref)

	event := cardEvent(t, "payment_intent.payment_failed", stripe.PaymentIntent{
		ID:     ref,
		Amount: order.Amount,
	})
	if err := f.card.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	var got models.Order
	if err := f.db.First(&got, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if got.Status != enums.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", got.Status)
	}
}

func TestHandleEvent_IgnoresUnrelatedEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	event := &stripe.Event{
		ID:   "evt_other",
		Type: stripe.EventType("customer.created"),
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	if err := f.card.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unrelated event must be ignored: %v", err)
	}
}

func TestHandleEvent_DuplicateSucceededIsNoOp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ref := "pi_dup"
	order := f.seedPendingOrder(t, enums.PaymentMethodCard, &ref)

	event := cardEvent(t, "payment_intent.succeeded", stripe.PaymentIntent{
		ID:     ref,
		Amount: order.Amount,
	})
	if err := f.card.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first event: %v", err)
	}
	if err := f.card.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("duplicate event must ack: %v", err)
	}
	if f.notifier.completed != 1 {
		t.Fatalf("expected exactly one completion, got %d", f.notifier.completed)
	}
}
