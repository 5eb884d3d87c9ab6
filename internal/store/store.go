package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Sentinel errors surfaced to the service layer.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCouponExhausted   = errors.New("coupon usage limit reached")
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProduct retrieves an active product scoped to a store.
func (s *Store) GetProduct(ctx context.Context, storeID, productID int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 AND store_id = $2 AND is_active = TRUE", productID, storeID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetVariant retrieves a variant belonging to a product.
func (s *Store) GetVariant(ctx context.Context, productID, variantID int64) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := s.db.GetContext(ctx, &variant,
		"SELECT * FROM product_variants WHERE id = $1 AND product_id = $2", variantID, productID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("variant %d: %w", variantID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// GetVariantSize retrieves a size row belonging to a variant.
func (s *Store) GetVariantSize(ctx context.Context, variantID, sizeID int64) (*models.VariantSize, error) {
	var size models.VariantSize
	err := s.db.GetContext(ctx, &size,
		"SELECT * FROM variant_sizes WHERE id = $1 AND variant_id = $2", sizeID, variantID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("size %d: %w", sizeID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &size, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// decrementStock conditionally decrements stock at the most specific level
// selected for the item. The WHERE guard makes the check-and-decrement
// atomic; a zero row count means insufficient stock.
func decrementStock(ctx context.Context, e sqlx.ExtContext, productID int64, variantID, sizeID *int64, qty int) (bool, error) {
	var res sql.Result
	var err error

	switch {
	case sizeID != nil:
		res, err = e.ExecContext(ctx,
			"UPDATE variant_sizes SET stock_quantity = stock_quantity - $1 WHERE id = $2 AND stock_quantity >= $1",
			qty, *sizeID)
	case variantID != nil:
		res, err = e.ExecContext(ctx,
			"UPDATE product_variants SET stock_quantity = stock_quantity - $1 WHERE id = $2 AND stock_quantity >= $1",
			qty, *variantID)
	default:
		res, err = e.ExecContext(ctx,
			"UPDATE products SET stock_quantity = stock_quantity - $1 WHERE id = $2 AND stock_quantity >= $1",
			qty, productID)
	}
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// restoreStock reverses a decrement at the same level.
func restoreStock(ctx context.Context, e sqlx.ExtContext, productID int64, variantID, sizeID *int64, qty int) error {
	var err error
	switch {
	case sizeID != nil:
		_, err = e.ExecContext(ctx,
			"UPDATE variant_sizes SET stock_quantity = stock_quantity + $1 WHERE id = $2", qty, *sizeID)
	case variantID != nil:
		_, err = e.ExecContext(ctx,
			"UPDATE product_variants SET stock_quantity = stock_quantity + $1 WHERE id = $2", qty, *variantID)
	default:
		_, err = e.ExecContext(ctx,
			"UPDATE products SET stock_quantity = stock_quantity + $1 WHERE id = $2", qty, productID)
	}
	return err
}
