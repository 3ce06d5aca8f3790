package checkout

import (
	"github.com/google/uuid"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	"github.com/thanhhuy/storefront-backend/pkg/types"
)

// CartLine is one client-submitted cart entry. UnitPrice is what the client
// displayed to the shopper; the validator cross-checks it against the
// authoritative catalog price.
type CartLine struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Qty       int        `json:"qty"`
	UnitPrice int64      `json:"unit_price"`
}

// PlaceOrderInput captures a full checkout submission.
type PlaceOrderInput struct {
	UserID          uuid.UUID
	Lines           []CartLine
	PaymentMethod   enums.PaymentMethod
	VoucherCode     *string
	ShippingAddress types.Address
	PhoneNumber     string
	FastDelivery    bool

	// ClientAmount is the total shown to the shopper. Zero skips the
	// cross-check (trusted internal callers).
	ClientAmount int64

	// IdempotencyKey makes retried submissions converge on one order.
	IdempotencyKey string
}

// PlaceOrderResult is the outcome of a successful checkout.
type PlaceOrderResult struct {
	Order *models.Order `json:"order"`

	// RedirectURL is set for wallet payments, ClientSecret for card
	// payments. Both are empty for cash on delivery.
	RedirectURL  string `json:"redirect_url,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`

	// Replayed marks a response served from an earlier submission with the
	// same idempotency key.
	Replayed bool `json:"replayed,omitempty"`
}

// validatedCart is the validator's output: authoritative line snapshots and
// the merchandise subtotal.
type validatedCart struct {
	items    []models.OrderLineItem
	subtotal int64
}
