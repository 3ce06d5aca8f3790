package vouchers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for vouchers and reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Voucher, error)
	CreateReservation(ctx context.Context, reservation *models.VoucherReservation) error
	FindReservationByOrderRef(ctx context.Context, orderRef string) (*models.VoucherReservation, error)
	DeleteReservation(ctx context.Context, id uuid.UUID) (bool, error)
	IncrementUsedCount(ctx context.Context, voucherID uuid.UUID) (bool, error)
	DecrementUsedCount(ctx context.Context, voucherID uuid.UUID) error
	MarkReservationUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}

// Reservation is the outcome of a successful voucher hold.
type Reservation struct {
	Voucher        *models.Voucher
	DiscountAmount int64
}
