package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/models"
)

// CreateOrder persists an order with its item snapshots inside one
// transaction. Stock is decremented atomically per item; any shortfall
// rolls the whole order back with ErrInsufficientStock. Coupon usage is
// consumed inside the same transaction.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range items {
		ok, err := decrementStock(ctx, tx, item.ProductID, item.VariantID, item.SizeID, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to decrement stock for product %d: %w", item.ProductID, err)
		}
		if !ok {
			return fmt.Errorf("product %d: %w", item.ProductID, ErrInsufficientStock)
		}
	}

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (store_id, user_id, order_number, subtotal, discount, tax,
			shipping_cost, total, status, payment_status, coupon_id,
			shipping_address, billing_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING *`,
		order.StoreID, order.UserID, order.OrderNumber, order.Subtotal, order.Discount,
		order.Tax, order.ShippingCost, order.Total, order.Status, order.PaymentStatus,
		order.CouponID, order.ShippingAddress, order.BillingAddress)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err := tx.GetContext(ctx, &items[i].ID, `
			INSERT INTO order_items (order_id, product_id, variant_id, size_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].VariantID, items[i].SizeID,
			items[i].Quantity, items[i].UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if order.CouponID != nil {
		ok, err := incrementCouponUsage(ctx, tx, *order.CouponID)
		if err != nil {
			return fmt.Errorf("failed to consume coupon: %w", err)
		}
		if !ok {
			return ErrCouponExhausted
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by id.
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves all item snapshots of an order.
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}

// GetOrdersByUser retrieves a user's orders in a store, newest first.
func (s *Store) GetOrdersByUser(ctx context.Context, storeID, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE store_id = $1 AND user_id = $2 ORDER BY created_at DESC",
		storeID, userID)
	return orders, err
}

// CancelOrder marks an order cancelled and restores its stock in one
// transaction. The status guard makes cancellation idempotent at the
// storage level: a second call affects no rows.
func (s *Store) CancelOrder(ctx context.Context, orderID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status NOT IN ($1, $3)`,
		models.OrderStatusCancelled, orderID, models.OrderStatusDelivered)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order %d not cancellable: %w", orderID, ErrNotFound)
	}

	var items []models.OrderItem
	if err := tx.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID); err != nil {
		return err
	}
	for _, item := range items {
		if err := restoreStock(ctx, tx, item.ProductID, item.VariantID, item.SizeID, item.Quantity); err != nil {
			return fmt.Errorf("failed to restore stock for product %d: %w", item.ProductID, err)
		}
	}

	return tx.Commit()
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdatePaymentStatus records the outcome of a payment attempt. A failed
// payment also restores stock via CancelOrder at the service layer.
func (s *Store) UpdatePaymentStatus(ctx context.Context, orderID int64, paymentStatus string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2",
		paymentStatus, orderID)
	return err
}
