package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thanhhuy/storefront-backend/pkg/enums"
	"github.com/thanhhuy/storefront-backend/pkg/types"
)

// Order is the durable result of a successful checkout. Created by the
// fulfillment orchestrator; status changes flow only through the callback
// handler, admin actions, or the rollback service. Never deleted.
//
// Invariant: Amount = OriginalAmount - DiscountAmount. OriginalAmount is the
// pre-discount total including the shipping fee; DiscountAmount is
// snapshotted at voucher reservation time.
type Order struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Status         enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	DeliveryStatus enums.DeliveryStatus `gorm:"column:delivery_status;type:text;not null;default:'not_shipped'"`
	PaymentMethod  enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null"`

	// PaymentIntentRef is the client-facing correlation id, stable across
	// retries. GatewayIntentRef is the remote gateway's id once known.
	PaymentIntentRef string  `gorm:"column:payment_intent_ref;not null;uniqueIndex"`
	GatewayIntentRef *string `gorm:"column:gateway_intent_ref;index"`

	Currency       string `gorm:"column:currency;not null;default:'vnd'"`
	OriginalAmount int64  `gorm:"column:original_amount;not null"`
	DiscountAmount int64  `gorm:"column:discount_amount;not null;default:0"`
	Amount         int64  `gorm:"column:amount;not null"`
	ShippingFee    int64  `gorm:"column:shipping_fee;not null;default:0"`

	PhoneNumber     string         `gorm:"column:phone_number"`
	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	VoucherID   *uuid.UUID `gorm:"column:voucher_id;type:uuid"`
	VoucherCode *string    `gorm:"column:voucher_code"`

	CancelReason *string    `gorm:"column:cancel_reason"`
	CanceledAt   *time.Time `gorm:"column:canceled_at"`

	Items []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
