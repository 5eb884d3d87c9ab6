package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/identity"
	"storefront-service/internal/models"
)

// UpsertWishlist finds or creates the single wishlist for a (store,
// identity) pair, with the same partial-unique-index upsert as carts.
func (s *Store) UpsertWishlist(ctx context.Context, id identity.Identity, storeID int64) (*models.Wishlist, error) {
	var wl models.Wishlist
	var err error
	if id.IsUser() {
		err = s.db.GetContext(ctx, &wl, `
			INSERT INTO wishlists (store_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (store_id, user_id) WHERE user_id IS NOT NULL
			DO UPDATE SET updated_at = NOW()
			RETURNING *`,
			storeID, id.UserID)
	} else {
		err = s.db.GetContext(ctx, &wl, `
			INSERT INTO wishlists (store_id, session_id)
			VALUES ($1, $2)
			ON CONFLICT (store_id, session_id) WHERE session_id IS NOT NULL
			DO UPDATE SET updated_at = NOW()
			RETURNING *`,
			storeID, id.SessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert wishlist: %w", err)
	}
	return &wl, nil
}

// GetWishlist retrieves the wishlist for a (store, identity) pair.
func (s *Store) GetWishlist(ctx context.Context, id identity.Identity, storeID int64) (*models.Wishlist, error) {
	var wl models.Wishlist
	var err error
	if id.IsUser() {
		err = s.db.GetContext(ctx, &wl,
			"SELECT * FROM wishlists WHERE store_id = $1 AND user_id = $2", storeID, id.UserID)
	} else {
		err = s.db.GetContext(ctx, &wl,
			"SELECT * FROM wishlists WHERE store_id = $1 AND session_id = $2", storeID, id.SessionID)
	}
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("wishlist: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &wl, nil
}

// GetWishlistItems retrieves a page of items, newest first.
func (s *Store) GetWishlistItems(ctx context.Context, wishlistID int64, limit, offset int) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM wishlist_items WHERE wishlist_id = $1 ORDER BY added_at DESC, id DESC LIMIT $2 OFFSET $3",
		wishlistID, limit, offset)
	return items, err
}

// CountWishlistItems returns the number of items in a wishlist.
func (s *Store) CountWishlistItems(ctx context.Context, wishlistID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM wishlist_items WHERE wishlist_id = $1", wishlistID)
	return count, err
}

// FindWishlistItem looks up an item by its matching triple, NULL-safe.
func (s *Store) FindWishlistItem(ctx context.Context, wishlistID, productID int64, variantID, sizeID *int64) (*models.WishlistItem, error) {
	var item models.WishlistItem
	err := s.db.GetContext(ctx, &item, `
		SELECT * FROM wishlist_items
		WHERE wishlist_id = $1 AND product_id = $2
		  AND variant_id IS NOT DISTINCT FROM $3
		  AND size_id IS NOT DISTINCT FROM $4`,
		wishlistID, productID, variantID, sizeID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("wishlist item: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// InsertWishlistItem appends a new item.
func (s *Store) InsertWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	return s.db.GetContext(ctx, item, `
		INSERT INTO wishlist_items (wishlist_id, product_id, variant_id, size_id)
		VALUES ($1, $2, $3, $4)
		RETURNING *`,
		item.WishlistID, item.ProductID, item.VariantID, item.SizeID)
}

// DeleteWishlistItem removes a single item.
func (s *Store) DeleteWishlistItem(ctx context.Context, itemID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM wishlist_items WHERE id = $1", itemID)
	return err
}

// ClearWishlistItems empties a wishlist.
func (s *Store) ClearWishlistItems(ctx context.Context, wishlistID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM wishlist_items WHERE wishlist_id = $1", wishlistID)
	return err
}

// MergeWishlists moves items from a session wishlist into a user wishlist
// in one transaction, first write wins, then deletes the session wishlist.
func (s *Store) MergeWishlists(ctx context.Context, sessionWishlistID, userWishlistID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO wishlist_items (wishlist_id, product_id, variant_id, size_id, added_at)
		SELECT $2, src.product_id, src.variant_id, src.size_id, src.added_at
		FROM wishlist_items src
		WHERE src.wishlist_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM wishlist_items dst
			WHERE dst.wishlist_id = $2
			  AND dst.product_id = src.product_id
			  AND dst.variant_id IS NOT DISTINCT FROM src.variant_id
			  AND dst.size_id IS NOT DISTINCT FROM src.size_id
		  )`,
		sessionWishlistID, userWishlistID)
	if err != nil {
		return fmt.Errorf("failed to merge wishlist items: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM wishlists WHERE id = $1", sessionWishlistID); err != nil {
		return fmt.Errorf("failed to delete session wishlist: %w", err)
	}

	return tx.Commit()
}
