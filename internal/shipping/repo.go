package shipping

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/internal/repo"
	"github.com/thanhhuy/storefront-backend/pkg/db/models"
)

// SettingsRepository reads the storefront settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.AppSettings, error)
}

type settingsRepository struct {
	repo.Base
}

// NewSettingsRepository builds a settings repository bound to the provided DB.
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{Base: repo.NewBase(db)}
}

// Get returns the settings row, falling back to defaults when the table has
// not been seeded yet.
func (r *settingsRepository) Get(ctx context.Context) (*models.AppSettings, error) {
	var settings models.AppSettings
	err := r.DB(ctx).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return defaultSettings(), nil
		}
		return nil, err
	}
	return &settings, nil
}

func defaultSettings() *models.AppSettings {
	return &models.AppSettings{
		BaseShippingFee:       30000,
		FastShippingSurcharge: 15000,
		RemoteProvinceFee:     20000,
		FreeShippingThreshold: 500000,
		ShopProvince:          "Hồ Chí Minh",
		DiscordNotifications:  true,
	}
}
