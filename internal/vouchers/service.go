package vouchers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/pkg/db"
	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
)

const reservationConstraint = "idx_voucher_reservations_user_voucher"

// Service manages the lifecycle of a voucher hold: reserved at checkout,
// marked used on completion, released on cancellation or rollback.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) (*Reservation, error)
	MarkUsed(ctx context.Context, tx *gorm.DB, orderRef string) error
	Release(ctx context.Context, tx *gorm.DB, orderRef string) (bool, error)
}

// ReserveInput carries everything needed to hold a voucher for an order.
type ReserveInput struct {
	UserID      uuid.UUID
	Code        string
	OrderAmount int64
	OrderRef    string
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the voucher reservation manager.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "voucher repository is required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Reserve validates the voucher and claims one use inside the caller's
// transaction. The unique (user, voucher) reservation row and the
// conditional used_count bump are the two concurrency guards: a user
// double-spending collides on the insert, and the last remaining use can
// only be claimed once.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) (*Reservation, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "voucher reserve requires a transaction")
	}
	code := strings.TrimSpace(input.Code)
	if code == "" || input.UserID == uuid.Nil || input.OrderRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "voucher reservation input incomplete")
	}

	repo := s.repo.WithTx(tx)

	voucher, err := repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := validateVoucher(voucher, now, input.OrderAmount); err != nil {
		return nil, err
	}

	reservation := &models.VoucherReservation{
		ID:         uuid.New(),
		UserID:     input.UserID,
		VoucherID:  voucher.ID,
		OrderRef:   input.OrderRef,
		ReservedAt: now,
	}
	if err := repo.CreateReservation(ctx, reservation); err != nil {
		if db.IsUniqueViolation(err, reservationConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeVoucherInvalid, "voucher already used by this account")
		}
		return nil, err
	}

	claimed, err := repo.IncrementUsedCount(ctx, voucher.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, pkgerrors.New(pkgerrors.CodeVoucherInvalid, "voucher has been fully redeemed")
	}

	return &Reservation{
		Voucher:        voucher,
		DiscountAmount: DiscountFor(voucher, input.OrderAmount),
	}, nil
}

// MarkUsed stamps the reservation after payment settles, making the hold
// permanent.
func (s *service) MarkUsed(ctx context.Context, tx *gorm.DB, orderRef string) error {
	repo := s.repo.WithTx(tx)
	reservation, err := repo.FindReservationByOrderRef(ctx, orderRef)
	if err != nil {
		return err
	}
	if reservation == nil || reservation.UsedAt != nil {
		return nil
	}
	return repo.MarkReservationUsed(ctx, reservation.ID, s.now())
}

// Release undoes a reservation. Safe to call repeatedly: once the row is
// gone further calls are no-ops, so used_count is decremented at most once
// per reservation. Returns whether a hold was actually released.
func (s *service) Release(ctx context.Context, tx *gorm.DB, orderRef string) (bool, error) {
	repo := s.repo.WithTx(tx)
	reservation, err := repo.FindReservationByOrderRef(ctx, orderRef)
	if err != nil {
		return false, err
	}
	if reservation == nil {
		return false, nil
	}
	deleted, err := repo.DeleteReservation(ctx, reservation.ID)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}
	if err := repo.DecrementUsedCount(ctx, reservation.VoucherID); err != nil {
		return false, err
	}
	return true, nil
}

// DiscountFor computes the discount a voucher grants on the given amount.
// Fixed discounts never exceed the amount itself.
func DiscountFor(voucher *models.Voucher, amount int64) int64 {
	if voucher == nil {
		return 0
	}
	switch voucher.DiscountType {
	case enums.DiscountTypePercentage:
		return decimal.NewFromInt(amount).
			Mul(decimal.NewFromInt(voucher.DiscountValue)).
			Div(decimal.NewFromInt(100)).
			Floor().
			IntPart()
	case enums.DiscountTypeFixed:
		if voucher.DiscountValue > amount {
			return amount
		}
		return voucher.DiscountValue
	default:
		return 0
	}
}

func validateVoucher(voucher *models.Voucher, now time.Time, orderAmount int64) error {
	if voucher == nil || !voucher.IsActive {
		return pkgerrors.New(pkgerrors.CodeVoucherInvalid, "voucher not found or inactive")
	}
	if now.Before(voucher.StartDate) || now.After(voucher.EndDate) {
		return pkgerrors.New(pkgerrors.CodeVoucherInvalid, "voucher is outside its validity window")
	}
	if orderAmount < voucher.MinOrderValue {
		return pkgerrors.New(pkgerrors.CodeVoucherInvalid, "order amount below voucher minimum")
	}
	if voucher.UsedCount >= voucher.Quantity {
		return pkgerrors.New(pkgerrors.CodeVoucherInvalid, "voucher has been fully redeemed")
	}
	return nil
}
