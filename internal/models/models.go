package models

import "time"

// Product represents a product in a store's catalog. Prices are cents.
type Product struct {
	ID            int64     `db:"id" json:"id"`
	StoreID       int64     `db:"store_id" json:"store_id"`
	Name          string    `db:"name" json:"name"`
	SKU           string    `db:"sku" json:"sku"`
	Price         int64     `db:"price" json:"price"`
	DiscountPrice *int64    `db:"discount_price" json:"discount_price,omitempty"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ProductVariant overrides price and stock for a specific variant.
type ProductVariant struct {
	ID            int64     `db:"id" json:"id"`
	ProductID     int64     `db:"product_id" json:"product_id"`
	Name          string    `db:"name" json:"name"`
	Price         *int64    `db:"price" json:"price,omitempty"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// VariantSize carries size-level stock for a variant.
type VariantSize struct {
	ID            int64     `db:"id" json:"id"`
	VariantID     int64     `db:"variant_id" json:"variant_id"`
	Label         string    `db:"label" json:"label"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Cart is owned by exactly one identity: user_id xor session_id.
type Cart struct {
	ID        int64     `db:"id" json:"id"`
	StoreID   int64     `db:"store_id" json:"store_id"`
	UserID    *int64    `db:"user_id" json:"user_id,omitempty"`
	SessionID *string   `db:"session_id" json:"session_id,omitempty"`
	CouponID  *int64    `db:"coupon_id" json:"coupon_id,omitempty"`
	Subtotal  int64     `db:"subtotal" json:"subtotal"`
	Total     int64     `db:"total" json:"total"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CartItem is matched on the (product_id, variant_id, size_id) triple,
// with NULL variant/size treated as part of the key.
type CartItem struct {
	ID              int64     `db:"id" json:"id"`
	CartID          int64     `db:"cart_id" json:"cart_id"`
	ProductID       int64     `db:"product_id" json:"product_id"`
	VariantID       *int64    `db:"variant_id" json:"variant_id,omitempty"`
	SizeID          *int64    `db:"size_id" json:"size_id,omitempty"`
	Quantity        int       `db:"quantity" json:"quantity"`
	PriceAtAddition int64     `db:"price_at_addition" json:"price_at_addition"`
	Price           int64     `db:"price" json:"price"`
	AddedAt         time.Time `db:"added_at" json:"added_at"`
}

// Wishlist mirrors Cart ownership but carries no pricing state.
type Wishlist struct {
	ID        int64     `db:"id" json:"id"`
	StoreID   int64     `db:"store_id" json:"store_id"`
	UserID    *int64    `db:"user_id" json:"user_id,omitempty"`
	SessionID *string   `db:"session_id" json:"session_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type WishlistItem struct {
	ID         int64     `db:"id" json:"id"`
	WishlistID int64     `db:"wishlist_id" json:"wishlist_id"`
	ProductID  int64     `db:"product_id" json:"product_id"`
	VariantID  *int64    `db:"variant_id" json:"variant_id,omitempty"`
	SizeID     *int64    `db:"size_id" json:"size_id,omitempty"`
	AddedAt    time.Time `db:"added_at" json:"added_at"`
}

// Coupon types
const (
	CouponTypePercentage   = "percentage"
	CouponTypeFixed        = "fixed"
	CouponTypeFreeShipping = "free_shipping"
)

// Coupon is unique per (store_id, code).
type Coupon struct {
	ID                    int64      `db:"id" json:"id"`
	StoreID               int64      `db:"store_id" json:"store_id"`
	Code                  string     `db:"code" json:"code"`
	Description           string     `db:"description" json:"description"`
	Type                  string     `db:"type" json:"type"`
	Value                 int64      `db:"value" json:"value"`
	MinimumOrderAmount    int64      `db:"minimum_order_amount" json:"minimum_order_amount"`
	MaximumDiscountAmount *int64     `db:"maximum_discount_amount" json:"maximum_discount_amount,omitempty"`
	UsageLimit            *int       `db:"usage_limit" json:"usage_limit,omitempty"`
	UsageCount            int        `db:"usage_count" json:"usage_count"`
	StartDate             time.Time  `db:"start_date" json:"start_date"`
	EndDate               *time.Time `db:"end_date" json:"end_date,omitempty"`
	IsActive              bool       `db:"is_active" json:"is_active"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// IsValidAt reports whether the coupon is active, inside its date window
// and under its usage limit at the given instant.
func (c *Coupon) IsValidAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.StartDate) {
		return false
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return false
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return false
	}
	return true
}

// Discount computes the discount in cents for the given subtotal.
// Never negative, never above the subtotal, capped by
// maximum_discount_amount when set. Free shipping discounts nothing here;
// it zeroes the shipping cost at order time instead.
func (c *Coupon) Discount(subtotal int64) int64 {
	var discount int64
	switch c.Type {
	case CouponTypePercentage:
		discount = subtotal * c.Value / 100
		if c.MaximumDiscountAmount != nil && discount > *c.MaximumDiscountAmount {
			discount = *c.MaximumDiscountAmount
		}
	case CouponTypeFixed:
		discount = c.Value
	case CouponTypeFreeShipping:
		discount = 0
	}
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// Payment statuses
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusFailed   = "FAILED"
	PaymentStatusRefunded = "REFUNDED"
)

// Order is an immutable snapshot of a converted cart.
type Order struct {
	ID              int64     `db:"id" json:"id"`
	StoreID         int64     `db:"store_id" json:"store_id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	OrderNumber     string    `db:"order_number" json:"order_number"`
	Subtotal        int64     `db:"subtotal" json:"subtotal"`
	Discount        int64     `db:"discount" json:"discount"`
	Tax             int64     `db:"tax" json:"tax"`
	ShippingCost    int64     `db:"shipping_cost" json:"shipping_cost"`
	Total           int64     `db:"total" json:"total"`
	Status          string    `db:"status" json:"status"`
	PaymentStatus   string    `db:"payment_status" json:"payment_status"`
	CouponID        *int64    `db:"coupon_id" json:"coupon_id,omitempty"`
	ShippingAddress string    `db:"shipping_address" json:"shipping_address"`
	BillingAddress  string    `db:"billing_address" json:"billing_address"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

type OrderItem struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   int64  `db:"order_id" json:"order_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	VariantID *int64 `db:"variant_id" json:"variant_id,omitempty"`
	SizeID    *int64 `db:"size_id" json:"size_id,omitempty"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
}
