package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront-service/internal/identity"
	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func ptrInt64(v int64) *int64 { return &v }
func ptrInt(v int) *int       { return &v }

func TestCartSubtotal(t *testing.T) {
	items := []models.CartItem{
		{ProductID: 1, Quantity: 2, PriceAtAddition: 1000},
		{ProductID: 2, Quantity: 1, PriceAtAddition: 500},
		{ProductID: 3, Quantity: 3, PriceAtAddition: 250},
	}
	assert.Equal(t, int64(2*1000+500+3*250), cartSubtotal(items))

	assert.Equal(t, int64(0), cartSubtotal(nil))
}

func TestEffectivePrice(t *testing.T) {
	product := &models.Product{Price: 2000}

	t.Run("list price", func(t *testing.T) {
		assert.Equal(t, int64(2000), effectivePrice(product, nil))
	})

	t.Run("discount price wins over list", func(t *testing.T) {
		p := &models.Product{Price: 2000, DiscountPrice: ptrInt64(1500)}
		assert.Equal(t, int64(1500), effectivePrice(p, nil))
	})

	t.Run("variant price wins over discount", func(t *testing.T) {
		p := &models.Product{Price: 2000, DiscountPrice: ptrInt64(1500)}
		v := &models.ProductVariant{Price: ptrInt64(1800)}
		assert.Equal(t, int64(1800), effectivePrice(p, v))
	})

	t.Run("variant without own price falls through", func(t *testing.T) {
		p := &models.Product{Price: 2000, DiscountPrice: ptrInt64(1500)}
		v := &models.ProductVariant{}
		assert.Equal(t, int64(1500), effectivePrice(p, v))
	})
}

func TestEffectiveStock(t *testing.T) {
	product := &models.Product{StockQuantity: 100}
	variant := &models.ProductVariant{StockQuantity: 10}
	size := &models.VariantSize{StockQuantity: 3}

	assert.Equal(t, 100, effectiveStock(product, nil, nil))
	assert.Equal(t, 10, effectiveStock(product, variant, nil))
	assert.Equal(t, 3, effectiveStock(product, variant, size))
}

func TestNormalizeRef(t *testing.T) {
	zero := int64(0)
	five := int64(5)

	// Absent, null and zero references all normalize to the same value,
	// so inconsistent omission cannot split an item across rows.
	assert.Nil(t, normalizeRef(nil))
	assert.Nil(t, normalizeRef(&zero))
	assert.Equal(t, normalizeRef(nil), normalizeRef(&zero))
	assert.Equal(t, &five, normalizeRef(&five))
}

func TestCheckCoupon(t *testing.T) {
	now := time.Now()
	valid := &models.Coupon{
		Type:               models.CouponTypePercentage,
		Value:              10,
		StartDate:          now.Add(-time.Hour),
		IsActive:           true,
		MinimumOrderAmount: 1000,
	}

	t.Run("valid", func(t *testing.T) {
		assert.Nil(t, checkCoupon(valid, 5000, nil))
	})

	t.Run("not found reads as invalid", func(t *testing.T) {
		err := checkCoupon(nil, 5000, fmt.Errorf("coupon: %w", store.ErrNotFound))
		assert.Equal(t, KindNotFound, err.Kind)
		assert.Equal(t, "Invalid or expired coupon", err.Message)
	})

	t.Run("expired reads as invalid", func(t *testing.T) {
		expired := *valid
		past := now.Add(-time.Minute)
		expired.EndDate = &past
		err := checkCoupon(&expired, 5000, nil)
		assert.Equal(t, KindNotFound, err.Kind)
		assert.Equal(t, "Invalid or expired coupon", err.Message)
	})

	t.Run("usage limit exceeded", func(t *testing.T) {
		exhausted := *valid
		exhausted.UsageLimit = ptrInt(3)
		exhausted.UsageCount = 3
		err := checkCoupon(&exhausted, 5000, nil)
		assert.Equal(t, KindBusinessRule, err.Kind)
		assert.Equal(t, "Coupon usage limit exceeded", err.Message)
	})

	t.Run("below minimum order", func(t *testing.T) {
		err := checkCoupon(valid, 500, nil)
		assert.Equal(t, KindBusinessRule, err.Kind)
		assert.Contains(t, err.Message, "Minimum order amount")
	})
}

func TestUpdateOutcome(t *testing.T) {
	t.Run("positive quantity updates", func(t *testing.T) {
		action, qty := updateOutcome(3, 5)
		assert.Equal(t, models.CartActionUpdate, action)
		assert.Equal(t, 3, qty)
	})

	t.Run("zero removes and reports the removed quantity", func(t *testing.T) {
		action, qty := updateOutcome(0, 5)
		assert.Equal(t, models.CartActionRemove, action)
		assert.Equal(t, 5, qty)
	})

	t.Run("negative removes", func(t *testing.T) {
		action, qty := updateOutcome(-2, 1)
		assert.Equal(t, models.CartActionRemove, action)
		assert.Equal(t, 1, qty)
	})
}

// failingDispatcher simulates a broker outage.
type failingDispatcher struct{}

func (failingDispatcher) PublishCartEvent(context.Context, models.CartEvent) error {
	return errors.New("broker unavailable")
}
func (failingDispatcher) PublishWishlistEvent(context.Context, models.WishlistEvent) error {
	return errors.New("broker unavailable")
}
func (failingDispatcher) PublishConversion(context.Context, string, models.ConversionEvent) error {
	return errors.New("broker unavailable")
}

func TestEmitCartEventSwallowsDispatchFailure(t *testing.T) {
	s := &CartService{dispatcher: failingDispatcher{}, logger: zap.NewNop()}

	// Must not panic and must not surface the error to the caller.
	s.emitCartEvent(context.Background(), identity.Guest("sess-1"), 1,
		models.CartActionAdd, 10, nil, 2, 1000, 0, 2000, 1, Meta{SessionID: "sess-1"})
}

func TestFactContext(t *testing.T) {
	meta := Meta{
		IPAddress: "8.8.8.8",
		UserAgent: "test-agent",
		SessionID: "sess-1",
	}

	t.Run("guest", func(t *testing.T) {
		fc := factContext(identity.Guest("sess-1"), 7, meta)
		assert.Nil(t, fc.UserID)
		assert.Equal(t, "sess-1", fc.SessionID)
		assert.Equal(t, int64(7), fc.StoreID)
		assert.Equal(t, "desktop", fc.Device.Type)
	})

	t.Run("user keeps session attribution", func(t *testing.T) {
		fc := factContext(identity.User(42), 7, meta)
		assert.Equal(t, int64(42), *fc.UserID)
		assert.Equal(t, "sess-1", fc.SessionID)
	})
}
