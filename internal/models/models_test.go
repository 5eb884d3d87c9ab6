package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptrInt64(v int64) *int64 { return &v }
func ptrInt(v int) *int       { return &v }

func TestCouponIsValidAt(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	base := Coupon{
		Type:      CouponTypePercentage,
		Value:     10,
		StartDate: past,
		IsActive:  true,
	}

	t.Run("active inside window", func(t *testing.T) {
		c := base
		assert.True(t, c.IsValidAt(now))
	})

	t.Run("inactive", func(t *testing.T) {
		c := base
		c.IsActive = false
		assert.False(t, c.IsValidAt(now))
	})

	t.Run("not started yet", func(t *testing.T) {
		c := base
		c.StartDate = future
		assert.False(t, c.IsValidAt(now))
	})

	t.Run("expired", func(t *testing.T) {
		c := base
		c.EndDate = &past
		assert.False(t, c.IsValidAt(now))
	})

	t.Run("open ended", func(t *testing.T) {
		c := base
		c.EndDate = nil
		assert.True(t, c.IsValidAt(now))
	})

	t.Run("usage limit reached", func(t *testing.T) {
		c := base
		c.UsageLimit = ptrInt(5)
		c.UsageCount = 5
		assert.False(t, c.IsValidAt(now))
	})

	t.Run("usage under limit", func(t *testing.T) {
		c := base
		c.UsageLimit = ptrInt(5)
		c.UsageCount = 4
		assert.True(t, c.IsValidAt(now))
	})
}

func TestCouponDiscount(t *testing.T) {
	t.Run("percentage", func(t *testing.T) {
		c := Coupon{Type: CouponTypePercentage, Value: 10}
		assert.Equal(t, int64(500), c.Discount(5000))
	})

	t.Run("percentage capped by maximum", func(t *testing.T) {
		c := Coupon{Type: CouponTypePercentage, Value: 50, MaximumDiscountAmount: ptrInt64(1000)}
		assert.Equal(t, int64(1000), c.Discount(10000))
	})

	t.Run("fixed", func(t *testing.T) {
		c := Coupon{Type: CouponTypeFixed, Value: 700}
		assert.Equal(t, int64(700), c.Discount(5000))
	})

	t.Run("fixed clamped to subtotal", func(t *testing.T) {
		c := Coupon{Type: CouponTypeFixed, Value: 9000}
		assert.Equal(t, int64(5000), c.Discount(5000))
	})

	t.Run("free shipping discounts nothing", func(t *testing.T) {
		c := Coupon{Type: CouponTypeFreeShipping, Value: 100}
		assert.Equal(t, int64(0), c.Discount(5000))
	})

	t.Run("never negative", func(t *testing.T) {
		c := Coupon{Type: CouponTypeFixed, Value: -100}
		assert.Equal(t, int64(0), c.Discount(5000))
	})

	t.Run("zero subtotal", func(t *testing.T) {
		c := Coupon{Type: CouponTypePercentage, Value: 10}
		assert.Equal(t, int64(0), c.Discount(0))
	})
}
