package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront-service/internal/identity"
	"storefront-service/internal/models"
)

// UpsertCart finds or creates the single cart for a (store, identity)
// pair. The upsert rides on partial unique indexes over (store_id,
// user_id) and (store_id, session_id), which closes the concurrent
// first-add race.
func (s *Store) UpsertCart(ctx context.Context, id identity.Identity, storeID int64, ttl time.Duration) (*models.Cart, error) {
	var cart models.Cart
	expiresAt := time.Now().Add(ttl)

	var err error
	if id.IsUser() {
		err = s.db.GetContext(ctx, &cart, `
			INSERT INTO carts (store_id, user_id, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (store_id, user_id) WHERE user_id IS NOT NULL
			DO UPDATE SET updated_at = NOW()
			RETURNING *`,
			storeID, id.UserID, expiresAt)
	} else {
		err = s.db.GetContext(ctx, &cart, `
			INSERT INTO carts (store_id, session_id, expires_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (store_id, session_id) WHERE session_id IS NOT NULL
			DO UPDATE SET updated_at = NOW()
			RETURNING *`,
			storeID, id.SessionID, expiresAt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart: %w", err)
	}
	return &cart, nil
}

// GetCart retrieves the cart for a (store, identity) pair, or ErrNotFound.
func (s *Store) GetCart(ctx context.Context, id identity.Identity, storeID int64) (*models.Cart, error) {
	var cart models.Cart
	var err error
	if id.IsUser() {
		err = s.db.GetContext(ctx, &cart,
			"SELECT * FROM carts WHERE store_id = $1 AND user_id = $2", storeID, id.UserID)
	} else {
		err = s.db.GetContext(ctx, &cart,
			"SELECT * FROM carts WHERE store_id = $1 AND session_id = $2", storeID, id.SessionID)
	}
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cart: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCartItems retrieves all items of a cart, oldest first.
func (s *Store) GetCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM cart_items WHERE cart_id = $1 ORDER BY added_at, id", cartID)
	return items, err
}

// FindCartItem looks up an item by its matching triple. IS NOT DISTINCT
// FROM makes NULL variant/size part of the key, so an unset variant only
// matches items that also have no variant.
func (s *Store) FindCartItem(ctx context.Context, cartID, productID int64, variantID, sizeID *int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item, `
		SELECT * FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
		  AND variant_id IS NOT DISTINCT FROM $3
		  AND size_id IS NOT DISTINCT FROM $4`,
		cartID, productID, variantID, sizeID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cart item: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// InsertCartItem appends a new item with its price snapshot.
func (s *Store) InsertCartItem(ctx context.Context, item *models.CartItem) error {
	return s.db.GetContext(ctx, item, `
		INSERT INTO cart_items (cart_id, product_id, variant_id, size_id, quantity, price_at_addition, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *`,
		item.CartID, item.ProductID, item.VariantID, item.SizeID,
		item.Quantity, item.PriceAtAddition, item.Price)
}

// UpdateCartItemQuantity sets the quantity of an existing item.
func (s *Store) UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE id = $2", quantity, itemID)
	return err
}

// DeleteCartItem removes a single item.
func (s *Store) DeleteCartItem(ctx context.Context, itemID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1", itemID)
	return err
}

// ClearCartItems empties a cart and detaches any applied coupon.
func (s *Store) ClearCartItems(ctx context.Context, cartID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE carts SET coupon_id = NULL, updated_at = NOW() WHERE id = $1", cartID)
	return err
}

// SetCartCoupon attaches or detaches (nil) a coupon.
func (s *Store) SetCartCoupon(ctx context.Context, cartID int64, couponID *int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE carts SET coupon_id = $1, updated_at = NOW() WHERE id = $2", couponID, cartID)
	return err
}

// UpdateCartTotals persists recomputed totals.
func (s *Store) UpdateCartTotals(ctx context.Context, cartID, subtotal, total int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE carts SET subtotal = $1, total = $2, updated_at = NOW() WHERE id = $3",
		subtotal, total, cartID)
	return err
}

// MergeCarts moves items from a session cart into a user cart in one
// transaction. Items whose triple key already exists in the destination
// are dropped (first write wins); the session cart is deleted afterwards,
// which makes a re-run a no-op.
func (s *Store) MergeCarts(ctx context.Context, sessionCartID, userCartID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, variant_id, size_id, quantity, price_at_addition, price)
		SELECT $2, src.product_id, src.variant_id, src.size_id, src.quantity, src.price_at_addition, src.price
		FROM cart_items src
		WHERE src.cart_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM cart_items dst
			WHERE dst.cart_id = $2
			  AND dst.product_id = src.product_id
			  AND dst.variant_id IS NOT DISTINCT FROM src.variant_id
			  AND dst.size_id IS NOT DISTINCT FROM src.size_id
		  )`,
		sessionCartID, userCartID)
	if err != nil {
		return fmt.Errorf("failed to merge cart items: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM carts WHERE id = $1", sessionCartID); err != nil {
		return fmt.Errorf("failed to delete session cart: %w", err)
	}

	return tx.Commit()
}
