package service

import (
	"strings"
	"testing"

	"storefront-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNumber(t *testing.T) {
	a := newOrderNumber()
	b := newOrderNumber()

	assert.True(t, strings.HasPrefix(a, "ORD-"))
	assert.Equal(t, a, strings.ToUpper(a))
	assert.NotEqual(t, a, b)
}

func TestValidOrderStatuses(t *testing.T) {
	for _, status := range []string{
		models.OrderStatusPending,
		models.OrderStatusConfirmed,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
	} {
		assert.True(t, validOrderStatuses[status], status)
	}
	assert.False(t, validOrderStatuses["REFUNDED"])
	assert.False(t, validOrderStatuses["pending"])
}

func TestCheckoutTotalsMath(t *testing.T) {
	// Totals arithmetic as Checkout computes it.
	subtotal := int64(10000)
	coupon := &models.Coupon{Type: models.CouponTypePercentage, Value: 10}
	discount := coupon.Discount(subtotal)

	taxRate := int64(11)
	tax := (subtotal - discount) * taxRate / 100
	shipping := int64(500)
	total := subtotal - discount + tax + shipping

	assert.Equal(t, int64(1000), discount)
	assert.Equal(t, int64(990), tax)
	assert.Equal(t, int64(10490), total)
}
