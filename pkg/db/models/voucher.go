package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/thanhhuy/storefront-backend/pkg/enums"
)

// Voucher is a limited-quantity discount code.
// Invariant: UsedCount <= Quantity at all times.
type Voucher struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code           string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType   enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue  int64              `gorm:"column:discount_value;not null"`
	MinOrderValue  int64              `gorm:"column:min_order_value;not null;default:0"`
	Quantity       int                `gorm:"column:quantity;not null"`
	UsedCount      int                `gorm:"column:used_count;not null;default:0"`
	MaxUsesPerUser int                `gorm:"column:max_uses_per_user;not null;default:1"`
	StartDate      time.Time          `gorm:"column:start_date;not null"`
	EndDate        time.Time          `gorm:"column:end_date;not null"`
	IsActive       bool               `gorm:"column:is_active;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
