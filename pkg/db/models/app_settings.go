package models

import (
	"time"

	"github.com/google/uuid"
)

// AppSettings holds the admin-tunable storefront knobs the core reads:
// shipping fees and the Discord notification toggle.
type AppSettings struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BaseShippingFee       int64     `gorm:"column:base_shipping_fee;not null;default:30000"`
	FastShippingSurcharge int64     `gorm:"column:fast_shipping_surcharge;not null;default:15000"`
	RemoteProvinceFee     int64     `gorm:"column:remote_province_fee;not null;default:20000"`
	FreeShippingThreshold int64     `gorm:"column:free_shipping_threshold;not null;default:500000"`
	ShopProvince          string    `gorm:"column:shop_province;not null;default:'Hồ Chí Minh'"`
	DiscordNotifications  bool      `gorm:"column:discord_notifications;not null"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
