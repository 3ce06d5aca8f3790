package models

import (
	"time"

	"github.com/google/uuid"
)

// VoucherReservation marks an in-flight or completed voucher use. The unique
// (user, voucher) index is the concurrency guard: two racing checkouts by the
// same user collide on insert and exactly one wins.
type VoucherReservation struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_voucher_reservations_user_voucher"`
	VoucherID uuid.UUID `gorm:"column:voucher_id;type:uuid;not null;uniqueIndex:idx_voucher_reservations_user_voucher"`

	// OrderRef is the reserving order's payment intent ref, used by the
	// rollback service and callback handler to find this row.
	OrderRef   string     `gorm:"column:order_ref;not null;index"`
	ReservedAt time.Time  `gorm:"column:reserved_at;not null"`
	UsedAt     *time.Time `gorm:"column:used_at"`
}
