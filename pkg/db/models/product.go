package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/pkg/enums"
)

// Product carries the authoritative price and stock figures the checkout
// validator re-checks client carts against. For variant products InStock is
// the aggregate over active variants and is recomputed by the stock ledger
// after every reserve/release.
type Product struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Name        string            `gorm:"column:name;not null"`
	Category    string            `gorm:"column:category"`
	ProductType enums.ProductType `gorm:"column:product_type;type:text;not null;default:'simple'"`
	Price       int64             `gorm:"column:price;not null"`
	InStock     int               `gorm:"column:in_stock;not null;default:0"`

	// Active promotion window; when set and current, PromoPrice is the
	// authoritative unit price instead of Price.
	PromoPrice    *int64     `gorm:"column:promo_price"`
	PromoStartsAt *time.Time `gorm:"column:promo_starts_at"`
	PromoEndsAt   *time.Time `gorm:"column:promo_ends_at"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// EffectivePrice returns the promotional price when a promotion is active at
// the supplied instant, otherwise the list price.
func (p Product) EffectivePrice(now time.Time) int64 {
	if p.PromoPrice == nil {
		return p.Price
	}
	if p.PromoStartsAt != nil && now.Before(*p.PromoStartsAt) {
		return p.Price
	}
	if p.PromoEndsAt != nil && now.After(*p.PromoEndsAt) {
		return p.Price
	}
	return *p.PromoPrice
}
