package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
)

// Line identifies one stock movement. VariantID is nil for simple products.
type Line struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
}

// Shortfall describes a line that could not be reserved.
type Shortfall struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Requested int        `json:"requested"`
}

// Reserve decrements stock for every line inside the caller's transaction.
// Each decrement is conditional on sufficient remaining stock, so two
// transactions racing for the last units cannot both win. Any shortfall
// fails the whole batch; the caller is expected to roll the transaction
// back.
func Reserve(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inventory reserve requires a transaction")
	}
	if err := validateLines(lines); err != nil {
		return err
	}

	var short []Shortfall
	for _, line := range lines {
		reserved, err := reserveLine(ctx, tx, line)
		if err != nil {
			return err
		}
		if !reserved {
			short = append(short, Shortfall{
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Requested: line.Qty,
			})
		}
	}
	if len(short) > 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").WithDetails(short)
	}

	return recomputeAggregates(ctx, tx, lines)
}

// Release returns previously reserved stock. Quantities are added back
// unconditionally; callers guarantee they only release what they reserved.
func Release(ctx context.Context, tx *gorm.DB, lines []Line) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inventory release requires a transaction")
	}
	if err := validateLines(lines); err != nil {
		return err
	}

	for _, line := range lines {
		if line.VariantID != nil {
			err := tx.WithContext(ctx).
				Model(&models.ProductVariant{}).
				Where("id = ?", *line.VariantID).
				UpdateColumn("stock", gorm.Expr("stock + ?", line.Qty)).Error
			if err != nil {
				return fmt.Errorf("release variant stock: %w", err)
			}
			continue
		}
		err := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", line.ProductID).
			UpdateColumn("in_stock", gorm.Expr("in_stock + ?", line.Qty)).Error
		if err != nil {
			return fmt.Errorf("release product stock: %w", err)
		}
	}

	return recomputeAggregates(ctx, tx, lines)
}

func reserveLine(ctx context.Context, tx *gorm.DB, line Line) (bool, error) {
	if line.VariantID != nil {
		res := tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ? AND stock >= ?", *line.VariantID, line.Qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", line.Qty))
		if res.Error != nil {
			return false, fmt.Errorf("reserve variant stock: %w", res.Error)
		}
		return res.RowsAffected == 1, nil
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND in_stock >= ?", line.ProductID, line.Qty).
		UpdateColumn("in_stock", gorm.Expr("in_stock - ?", line.Qty))
	if res.Error != nil {
		return false, fmt.Errorf("reserve product stock: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// recomputeAggregates refreshes the parent in_stock column for every
// product touched through a variant, keeping the listed figure equal to
// the sum over active variants.
func recomputeAggregates(ctx context.Context, tx *gorm.DB, lines []Line) error {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if line.VariantID == nil {
			continue
		}
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}

		err := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", line.ProductID).
			UpdateColumn("in_stock", gorm.Expr(
				"(SELECT COALESCE(SUM(stock), 0) FROM product_variants WHERE product_id = ? AND is_active = ?)",
				line.ProductID, true,
			)).Error
		if err != nil {
			return fmt.Errorf("recompute product aggregate: %w", err)
		}
	}
	return nil
}

func validateLines(lines []Line) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no inventory lines provided")
	}
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "inventory line missing product id")
		}
		if line.VariantID != nil && *line.VariantID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "inventory line has empty variant id")
		}
		if line.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "inventory line quantity must be positive")
		}
	}
	return nil
}
