package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thanhhuy/storefront-backend/pkg/config"
	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
)

type productLoader interface {
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Validator re-derives every order figure from the catalog and rejects
// anything the client got wrong: unknown products, stale prices, quantity
// limits, malformed contact data.
type Validator struct {
	cfg      config.CheckoutConfig
	products productLoader
	now      func() time.Time
}

// NewValidator builds the order validator.
func NewValidator(cfg config.CheckoutConfig, products productLoader) (*Validator, error) {
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "validator requires a product loader")
	}
	return &Validator{cfg: cfg, products: products, now: time.Now}, nil
}

// Validate checks the submission shape, then rebuilds each line from the
// catalog. The returned snapshots carry authoritative prices; client prices
// are only compared, never trusted.
func (v *Validator) Validate(ctx context.Context, input PlaceOrderInput) (*validatedCart, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if strings.TrimSpace(input.PhoneNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number required")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	qtyByProduct := map[uuid.UUID]int{}
	ids := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if _, seen := qtyByProduct[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
		}
		qtyByProduct[line.ProductID] += line.Qty
		if qtyByProduct[line.ProductID] > v.cfg.MaxQtyPerProduct {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("at most %d units of one product per order", v.cfg.MaxQtyPerProduct))
		}
	}

	products, err := v.products.FindProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	now := v.now()
	cart := &validatedCart{items: make([]models.OrderLineItem, 0, len(input.Lines))}
	for _, line := range input.Lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product no longer available").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}

		unitPrice, name, err := v.resolvePrice(product, line, now)
		if err != nil {
			return nil, err
		}
		if line.UnitPrice != 0 && line.UnitPrice != unitPrice {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price has changed").
				WithDetails(map[string]any{"product_id": line.ProductID, "current_price": unitPrice})
		}

		item, err := models.NewOrderLineItem(line.ProductID, line.VariantID, name, line.Qty, unitPrice, "vnd")
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order line")
		}
		cart.items = append(cart.items, item)
		cart.subtotal += item.Subtotal()
	}

	return cart, nil
}

// CheckAmountBounds enforces the storefront's order size guardrails on the
// final payable amount.
func (v *Validator) CheckAmountBounds(amount int64) error {
	if amount < v.cfg.MinOrderAmount {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order amount below minimum of %d VND", v.cfg.MinOrderAmount))
	}
	if amount > v.cfg.MaxOrderAmount {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order amount above maximum of %d VND", v.cfg.MaxOrderAmount))
	}
	return nil
}

// CheckClientAmount compares the shopper-visible total against the
// authoritative one within the configured tolerance.
func (v *Validator) CheckClientAmount(clientAmount, amount int64) error {
	if clientAmount == 0 {
		return nil
	}
	diff := clientAmount - amount
	if diff < 0 {
		diff = -diff
	}
	if diff > v.cfg.AmountEpsilon {
		return pkgerrors.New(pkgerrors.CodeValidation, "order total has changed").
			WithDetails(map[string]any{"expected": amount})
	}
	return nil
}

func (v *Validator) resolvePrice(product *models.Product, line CartLine, now time.Time) (int64, string, error) {
	if line.VariantID == nil {
		if product.ProductType == enums.ProductTypeVariant {
			return 0, "", pkgerrors.New(pkgerrors.CodeValidation, "variant selection required").
				WithDetails(map[string]any{"product_id": product.ID})
		}
		return product.EffectivePrice(now), product.Name, nil
	}

	for _, variant := range product.Variants {
		if variant.ID != *line.VariantID {
			continue
		}
		if !variant.IsActive {
			return 0, "", pkgerrors.New(pkgerrors.CodeValidation, "variant no longer available").
				WithDetails(map[string]any{"variant_id": variant.ID})
		}
		name := product.Name
		if variant.SKU != "" {
			name = product.Name + " (" + variant.SKU + ")"
		}
		return variant.Price, name, nil
	}
	return 0, "", pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product").
		WithDetails(map[string]any{"product_id": product.ID, "variant_id": *line.VariantID})
}
