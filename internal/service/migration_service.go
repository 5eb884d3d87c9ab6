package service

import (
	"context"
	"time"

	"storefront-service/internal/identity"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// MigrationService moves guest session containers onto a user account
// after login or signup. Merges are first-write-wins on the item triple
// key and idempotent: the session container is deleted with the merge,
// so a retried call finds nothing and succeeds.
type MigrationService struct {
	store   *store.Store
	cartTTL time.Duration
	logger  *zap.Logger
}

// NewMigrationService creates a new migration service
func NewMigrationService(st *store.Store, cartTTLDays int) *MigrationService {
	return &MigrationService{
		store:   st,
		cartTTL: time.Duration(cartTTLDays) * 24 * time.Hour,
		logger:  util.GetLogger(),
	}
}

// MigrationResult reports what a migration call actually did.
type MigrationResult struct {
	CartMigrated     bool `json:"cart_migrated"`
	WishlistMigrated bool `json:"wishlist_migrated"`
}

// MigrateAll merges the session cart and wishlist into the user's.
func (s *MigrationService) MigrateAll(ctx context.Context, sessionID string, userID, storeID int64) (*MigrationResult, error) {
	ctx, span := util.StartSpan(ctx, "MigrationService.MigrateAll")
	defer span.End()

	cartDone, err := s.MigrateCart(ctx, sessionID, userID, storeID)
	if err != nil {
		return nil, err
	}
	wlDone, err := s.MigrateWishlist(ctx, sessionID, userID, storeID)
	if err != nil {
		return nil, err
	}
	return &MigrationResult{CartMigrated: cartDone, WishlistMigrated: wlDone}, nil
}

// MigrateCart merges the session cart into the user cart. An absent
// session cart is a successful no-op. Totals are recomputed on the user
// cart after the merge; a coupon already on the user cart survives, the
// session cart's coupon does not carry over.
func (s *MigrationService) MigrateCart(ctx context.Context, sessionID string, userID, storeID int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "MigrationService.MigrateCart")
	defer span.End()

	guest := identity.Guest(sessionID)
	sessionCart, err := s.store.GetCart(ctx, guest, storeID)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, wrapInternal(err, "Error migrating cart")
	}

	user := identity.User(userID)
	userCart, err := s.store.UpsertCart(ctx, user, storeID, s.cartTTL)
	if err != nil {
		return false, wrapInternal(err, "Error migrating cart")
	}

	if err := s.store.MergeCarts(ctx, sessionCart.ID, userCart.ID); err != nil {
		return false, wrapInternal(err, "Error migrating cart")
	}

	items, err := s.store.GetCartItems(ctx, userCart.ID)
	if err != nil {
		return false, wrapInternal(err, "Error migrating cart")
	}
	subtotal := cartSubtotal(items)
	var discount int64
	if userCart.CouponID != nil {
		coupon, err := s.store.GetCouponByID(ctx, *userCart.CouponID)
		if err == nil && coupon.IsValidAt(time.Now()) {
			discount = coupon.Discount(subtotal)
		}
	}
	if err := s.store.UpdateCartTotals(ctx, userCart.ID, subtotal, subtotal-discount); err != nil {
		return false, wrapInternal(err, "Error migrating cart")
	}

	util.MigrationsTotal.WithLabelValues("cart").Inc()
	s.logger.Info("Migrated session cart to user",
		zap.String("session_id", sessionID),
		zap.Int64("user_id", userID),
		zap.Int64("store_id", storeID))
	return true, nil
}

// MigrateWishlist merges the session wishlist into the user wishlist.
// An absent session wishlist is a successful no-op.
func (s *MigrationService) MigrateWishlist(ctx context.Context, sessionID string, userID, storeID int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "MigrationService.MigrateWishlist")
	defer span.End()

	guest := identity.Guest(sessionID)
	sessionWL, err := s.store.GetWishlist(ctx, guest, storeID)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, wrapInternal(err, "Error migrating wishlist")
	}

	user := identity.User(userID)
	userWL, err := s.store.UpsertWishlist(ctx, user, storeID)
	if err != nil {
		return false, wrapInternal(err, "Error migrating wishlist")
	}

	if err := s.store.MergeWishlists(ctx, sessionWL.ID, userWL.ID); err != nil {
		return false, wrapInternal(err, "Error migrating wishlist")
	}

	util.MigrationsTotal.WithLabelValues("wishlist").Inc()
	s.logger.Info("Migrated session wishlist to user",
		zap.String("session_id", sessionID),
		zap.Int64("user_id", userID),
		zap.Int64("store_id", storeID))
	return true, nil
}
