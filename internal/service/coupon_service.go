package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/identity"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
)

// CouponCheck is the result of validating a coupon against a cart
// without applying it.
type CouponCheck struct {
	Code     string `json:"code"`
	Type     string `json:"type"`
	Discount int64  `json:"discount"`
	Subtotal int64  `json:"subtotal"`
	Total    int64  `json:"total"`
}

// checkCoupon enforces the coupon rules in report order: existence and
// window first, then usage limit, then minimum order amount.
func checkCoupon(coupon *models.Coupon, subtotal int64, lookupErr error) *Error {
	if lookupErr != nil {
		if isNotFound(lookupErr) {
			util.CouponApplicationsTotal.WithLabelValues("invalid").Inc()
			return E(KindNotFound, "Invalid or expired coupon")
		}
		return wrapInternal(lookupErr, "Error validating coupon")
	}

	now := time.Now()
	if !coupon.IsActive || now.Before(coupon.StartDate) ||
		(coupon.EndDate != nil && now.After(*coupon.EndDate)) {
		util.CouponApplicationsTotal.WithLabelValues("invalid").Inc()
		return E(KindNotFound, "Invalid or expired coupon")
	}
	if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
		util.CouponApplicationsTotal.WithLabelValues("exhausted").Inc()
		return E(KindBusinessRule, "Coupon usage limit exceeded")
	}
	if subtotal < coupon.MinimumOrderAmount {
		util.CouponApplicationsTotal.WithLabelValues("below_minimum").Inc()
		return E(KindBusinessRule,
			fmt.Sprintf("Minimum order amount of %d required", coupon.MinimumOrderAmount))
	}
	return nil
}

// ApplyCoupon validates a coupon against the cart and attaches it.
func (s *CartService) ApplyCoupon(ctx context.Context, id identity.Identity, storeID int64, code string) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ApplyCoupon")
	defer span.End()

	cart, err := s.store.GetCart(ctx, id, storeID)
	if err != nil {
		return nil, notFoundOr(err, "Cart not found")
	}

	items, err := s.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, wrapInternal(err, "Error applying coupon")
	}
	if len(items) == 0 {
		return nil, E(KindBusinessRule, "Cart is empty")
	}
	subtotal := cartSubtotal(items)

	coupon, lookupErr := s.store.GetCouponByCode(ctx, storeID, code)
	if cerr := checkCoupon(coupon, subtotal, lookupErr); cerr != nil {
		return nil, cerr
	}

	if err := s.store.SetCartCoupon(ctx, cart.ID, &coupon.ID); err != nil {
		return nil, wrapInternal(err, "Error applying coupon")
	}
	cart.CouponID = &coupon.ID

	items, serr := s.recomputeTotals(ctx, cart)
	if serr != nil {
		return nil, serr
	}

	util.CouponApplicationsTotal.WithLabelValues("applied").Inc()
	return s.buildView(ctx, cart, items)
}

// ValidateCoupon runs the same checks as ApplyCoupon but changes nothing,
// returning the discount the coupon would grant.
func (s *CartService) ValidateCoupon(ctx context.Context, id identity.Identity, storeID int64, code string) (*CouponCheck, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ValidateCoupon")
	defer span.End()

	cart, err := s.store.GetCart(ctx, id, storeID)
	if err != nil {
		return nil, notFoundOr(err, "Cart not found")
	}

	items, err := s.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, wrapInternal(err, "Error validating coupon")
	}
	if len(items) == 0 {
		return nil, E(KindBusinessRule, "Cart is empty")
	}
	subtotal := cartSubtotal(items)

	coupon, lookupErr := s.store.GetCouponByCode(ctx, storeID, code)
	if cerr := checkCoupon(coupon, subtotal, lookupErr); cerr != nil {
		return nil, cerr
	}

	discount := coupon.Discount(subtotal)
	return &CouponCheck{
		Code:     coupon.Code,
		Type:     coupon.Type,
		Discount: discount,
		Subtotal: subtotal,
		Total:    subtotal - discount,
	}, nil
}

// RemoveCoupon detaches the coupon from the cart and restores totals.
func (s *CartService) RemoveCoupon(ctx context.Context, id identity.Identity, storeID int64) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveCoupon")
	defer span.End()

	cart, err := s.store.GetCart(ctx, id, storeID)
	if err != nil {
		return nil, notFoundOr(err, "Cart not found")
	}

	if err := s.store.SetCartCoupon(ctx, cart.ID, nil); err != nil {
		return nil, wrapInternal(err, "Error removing coupon")
	}
	cart.CouponID = nil

	items, serr := s.recomputeTotals(ctx, cart)
	if serr != nil {
		return nil, serr
	}
	return s.buildView(ctx, cart, items)
}

// CouponService owns coupon administration for a store.
type CouponService struct {
	store *store.Store
}

// NewCouponService creates a new coupon service
func NewCouponService(st *store.Store) *CouponService {
	return &CouponService{store: st}
}

// CreateCouponRequest is the admin payload for a new coupon.
type CreateCouponRequest struct {
	Code                  string     `json:"code" binding:"required"`
	Description           string     `json:"description"`
	Type                  string     `json:"type" binding:"required"`
	Value                 int64      `json:"value"`
	MinimumOrderAmount    int64      `json:"minimum_order_amount"`
	MaximumDiscountAmount *int64     `json:"maximum_discount_amount"`
	UsageLimit            *int       `json:"usage_limit"`
	StartDate             time.Time  `json:"start_date"`
	EndDate               *time.Time `json:"end_date"`
	IsActive              *bool      `json:"is_active"`
}

// CreateCoupon validates and persists a coupon definition.
func (s *CouponService) CreateCoupon(ctx context.Context, storeID int64, req CreateCouponRequest) (*models.Coupon, error) {
	ctx, span := util.StartSpan(ctx, "CouponService.CreateCoupon")
	defer span.End()

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, E(KindValidation, "Coupon code is required")
	}
	switch req.Type {
	case models.CouponTypePercentage:
		if req.Value <= 0 || req.Value > 100 {
			return nil, E(KindValidation, "Percentage value must be between 1 and 100")
		}
	case models.CouponTypeFixed:
		if req.Value <= 0 {
			return nil, E(KindValidation, "Fixed value must be positive")
		}
	case models.CouponTypeFreeShipping:
		// value ignored
	default:
		return nil, E(KindValidation, "Invalid coupon type")
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, E(KindValidation, "End date must be after start date")
	}

	startDate := req.StartDate
	if startDate.IsZero() {
		startDate = time.Now()
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	coupon := &models.Coupon{
		StoreID:               storeID,
		Code:                  code,
		Description:           req.Description,
		Type:                  req.Type,
		Value:                 req.Value,
		MinimumOrderAmount:    req.MinimumOrderAmount,
		MaximumDiscountAmount: req.MaximumDiscountAmount,
		UsageLimit:            req.UsageLimit,
		StartDate:             startDate,
		EndDate:               req.EndDate,
		IsActive:              isActive,
	}
	if err := s.store.CreateCoupon(ctx, coupon); err != nil {
		if isDuplicate(err) {
			return nil, E(KindConflict, "Coupon code already exists")
		}
		return nil, wrapInternal(err, "Error creating coupon")
	}
	return coupon, nil
}

// GetCoupon retrieves a coupon by code within a store.
func (s *CouponService) GetCoupon(ctx context.Context, storeID int64, code string) (*models.Coupon, error) {
	coupon, err := s.store.GetCouponByCode(ctx, storeID, code)
	if err != nil {
		return nil, notFoundOr(err, "Coupon not found")
	}
	return coupon, nil
}

// ListCoupons retrieves all coupons of a store.
func (s *CouponService) ListCoupons(ctx context.Context, storeID int64) ([]models.Coupon, error) {
	coupons, err := s.store.ListCoupons(ctx, storeID)
	if err != nil {
		return nil, wrapInternal(err, "Error listing coupons")
	}
	if coupons == nil {
		coupons = []models.Coupon{}
	}
	return coupons, nil
}
