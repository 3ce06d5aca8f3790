package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
)

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentIntentRef(ctx context.Context, ref string) (*models.Order, error)
	FindByGatewayIntentRef(ctx context.Context, ref string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	SetGatewayIntentRef(ctx context.Context, id uuid.UUID, ref string) error
	CountByUserSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}
