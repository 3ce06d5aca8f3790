package vouchers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/internal/repo"
	"github.com/thanhhuy/storefront-backend/pkg/db/models"
)

type repository struct {
	repo.Base
}

// NewRepository builds a voucher repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.WithConn(tx)}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := r.DB(ctx).
		Where("code = ?", code).
		First(&voucher).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.VoucherReservation) error {
	return r.DB(ctx).Create(reservation).Error
}

func (r *repository) FindReservationByOrderRef(ctx context.Context, orderRef string) (*models.VoucherReservation, error) {
	var reservation models.VoucherReservation
	err := r.DB(ctx).
		Where("order_ref = ?", orderRef).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) DeleteReservation(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Where("id = ?", id).
		Delete(&models.VoucherReservation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementUsedCount bumps used_count only while capacity remains, so
// concurrent reservations cannot push a voucher past its quantity.
func (r *repository) IncrementUsedCount(ctx context.Context, voucherID uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND used_count < quantity", voucherID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) DecrementUsedCount(ctx context.Context, voucherID uuid.UUID) error {
	return r.DB(ctx).
		Model(&models.Voucher{}).
		Where("id = ? AND used_count > 0", voucherID).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error
}

func (r *repository) MarkReservationUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	return r.DB(ctx).
		Model(&models.VoucherReservation{}).
		Where("id = ?", id).
		UpdateColumn("used_at", usedAt).Error
}
