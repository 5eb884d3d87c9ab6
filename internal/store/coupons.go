package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateCoupon inserts a coupon. Codes are unique per store; a duplicate
// surfaces as ErrDuplicate.
func (s *Store) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = strings.ToUpper(strings.TrimSpace(coupon.Code))

	err := s.db.GetContext(ctx, coupon, `
		INSERT INTO coupons (store_id, code, description, type, value,
			minimum_order_amount, maximum_discount_amount, usage_limit,
			start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING *`,
		coupon.StoreID, coupon.Code, coupon.Description, coupon.Type, coupon.Value,
		coupon.MinimumOrderAmount, coupon.MaximumDiscountAmount, coupon.UsageLimit,
		coupon.StartDate, coupon.EndDate, coupon.IsActive)
	if isUniqueViolation(err) {
		return fmt.Errorf("coupon code %s: %w", coupon.Code, ErrDuplicate)
	}
	return err
}

// GetCouponByCode retrieves a coupon by code within a store. Validity is
// evaluated by the caller so an expired coupon and a missing one can be
// reported the same way.
func (s *Store) GetCouponByCode(ctx context.Context, storeID int64, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.GetContext(ctx, &coupon,
		"SELECT * FROM coupons WHERE store_id = $1 AND code = $2",
		storeID, strings.ToUpper(strings.TrimSpace(code)))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("coupon %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// GetCouponByID retrieves a coupon by id.
func (s *Store) GetCouponByID(ctx context.Context, id int64) (*models.Coupon, error) {
	var coupon models.Coupon
	err := s.db.GetContext(ctx, &coupon, "SELECT * FROM coupons WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("coupon %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// ListCoupons retrieves all coupons of a store, newest first.
func (s *Store) ListCoupons(ctx context.Context, storeID int64) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := s.db.SelectContext(ctx, &coupons,
		"SELECT * FROM coupons WHERE store_id = $1 ORDER BY created_at DESC", storeID)
	return coupons, err
}

// incrementCouponUsage bumps usage_count under its limit guard. A zero
// row count means the limit was reached concurrently.
func incrementCouponUsage(ctx context.Context, e sqlx.ExtContext, couponID int64) (bool, error) {
	res, err := e.ExecContext(ctx, `
		UPDATE coupons SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`,
		couponID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
