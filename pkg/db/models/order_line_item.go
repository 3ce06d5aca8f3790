package models

import (
	"fmt"

	"github.com/google/uuid"
)

// OrderLineItem is a typed snapshot of one cart line at checkout time.
// Rows are only built through NewOrderLineItem so a malformed or
// partially-shaped line can never be persisted.
type OrderLineItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	Name      string     `gorm:"column:name;not null"`
	Quantity  int        `gorm:"column:quantity;not null"`
	UnitPrice int64      `gorm:"column:unit_price;not null"`
	Currency  string     `gorm:"column:currency;not null;default:'vnd'"`
}

// NewOrderLineItem validates and builds a line item snapshot.
func NewOrderLineItem(productID uuid.UUID, variantID *uuid.UUID, name string, qty int, unitPrice int64, currency string) (OrderLineItem, error) {
	if productID == uuid.Nil {
		return OrderLineItem{}, fmt.Errorf("line item: product id required")
	}
	if variantID != nil && *variantID == uuid.Nil {
		return OrderLineItem{}, fmt.Errorf("line item: variant id must be nil or set")
	}
	if name == "" {
		return OrderLineItem{}, fmt.Errorf("line item: name required")
	}
	if qty <= 0 {
		return OrderLineItem{}, fmt.Errorf("line item: quantity must be positive")
	}
	if unitPrice < 0 {
		return OrderLineItem{}, fmt.Errorf("line item: unit price must be non-negative")
	}
	if currency == "" {
		currency = "vnd"
	}
	return OrderLineItem{
		ID:        uuid.New(),
		ProductID: productID,
		VariantID: variantID,
		Name:      name,
		Quantity:  qty,
		UnitPrice: unitPrice,
		Currency:  currency,
	}, nil
}

// Subtotal returns the line's contribution to the order total.
func (l OrderLineItem) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}
