package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/identity"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService turns a cart into an order: totals with tax and shipping,
// atomic stock decrement and coupon consumption, then cart cleanup.
type OrderService struct {
	store          *store.Store
	dispatcher     FactDispatcher
	taxRatePercent int64
	shippingFlat   int64
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(st *store.Store, dispatcher FactDispatcher, taxRatePercent int, shippingFlatCents int64) *OrderService {
	return &OrderService{
		store:          st,
		dispatcher:     dispatcher,
		taxRatePercent: int64(taxRatePercent),
		shippingFlat:   shippingFlatCents,
		logger:         util.GetLogger(),
	}
}

// CheckoutRequest places an order from the user's current cart, or from
// a direct item list when Items is set.
type CheckoutRequest struct {
	ShippingAddress string                `json:"shipping_address" binding:"required"`
	BillingAddress  string                `json:"billing_address"`
	Items           []CheckoutItemRequest `json:"items"`
}

// CheckoutItemRequest is one selection in a direct (cart-less) order.
type CheckoutItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id"`
	SizeID    *int64 `json:"size_id"`
	Quantity  int    `json:"quantity"`
}

// OrderView is an order with its item snapshots.
type OrderView struct {
	models.Order
	Items []models.OrderItem `json:"items"`
}

// Checkout places an order from the user's cart. Stock and coupon usage
// are consumed inside the order transaction; success clears the cart.
// Only authenticated users can check out.
func (s *OrderService) Checkout(ctx context.Context, userID, storeID int64, req CheckoutRequest, meta Meta) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	var cart *models.Cart
	var orderItems []models.OrderItem
	var subtotal int64

	if len(req.Items) > 0 {
		// Direct order: priced from the catalog, no cart or coupon involved.
		items, sum, serr := s.buildDirectItems(ctx, storeID, req.Items)
		if serr != nil {
			return nil, serr
		}
		orderItems = items
		subtotal = sum
	} else {
		user := identity.User(userID)
		c, err := s.store.GetCart(ctx, user, storeID)
		if err != nil {
			return nil, notFoundOr(err, "Cart not found")
		}
		cart = c
		cartItems, err := s.store.GetCartItems(ctx, cart.ID)
		if err != nil {
			return nil, wrapInternal(err, "Error placing order")
		}
		if len(cartItems) == 0 {
			return nil, E(KindBusinessRule, "Cart is empty")
		}
		for _, item := range cartItems {
			orderItems = append(orderItems, models.OrderItem{
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				SizeID:    item.SizeID,
				Quantity:  item.Quantity,
				UnitPrice: item.PriceAtAddition,
			})
		}
		subtotal = cartSubtotal(cartItems)
	}

	var coupon *models.Coupon
	var discount int64
	var couponID *int64
	if cart != nil && cart.CouponID != nil {
		c, err := s.store.GetCouponByID(ctx, *cart.CouponID)
		if cerr := checkCoupon(c, subtotal, err); cerr != nil {
			return nil, cerr
		}
		coupon = c
		couponID = cart.CouponID
		discount = coupon.Discount(subtotal)
	}

	tax := (subtotal - discount) * s.taxRatePercent / 100
	shipping := s.shippingFlat
	if coupon != nil && coupon.Type == models.CouponTypeFreeShipping {
		shipping = 0
	}

	billing := req.BillingAddress
	if billing == "" {
		billing = req.ShippingAddress
	}

	order := &models.Order{
		StoreID:         storeID,
		UserID:          userID,
		OrderNumber:     newOrderNumber(),
		Subtotal:        subtotal,
		Discount:        discount,
		Tax:             tax,
		ShippingCost:    shipping,
		Total:           subtotal - discount + tax + shipping,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		CouponID:        couponID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
	}

	if err := s.store.CreateOrder(ctx, order, orderItems); err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientStock):
			util.CartOperationsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, E(KindBusinessRule, "Insufficient stock")
		case errors.Is(err, store.ErrCouponExhausted):
			util.CouponApplicationsTotal.WithLabelValues("exhausted").Inc()
			return nil, E(KindBusinessRule, "Coupon usage limit exceeded")
		default:
			return nil, wrapInternal(err, "Error placing order")
		}
	}

	if cart != nil {
		if err := s.store.ClearCartItems(ctx, cart.ID); err != nil {
			s.logger.Error("Failed to clear cart after checkout",
				zap.Int64("order_id", order.ID),
				zap.Int64("cart_id", cart.ID),
				zap.Error(err))
		}
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("user_id", userID),
		zap.Int64("total", order.Total))

	s.emitPurchase(ctx, order, meta)

	return &OrderView{Order: *order, Items: orderItems}, nil
}

// buildDirectItems prices a direct item list from the catalog. Stock is
// not gated here; the order transaction is the authoritative check.
func (s *OrderService) buildDirectItems(ctx context.Context, storeID int64, reqItems []CheckoutItemRequest) ([]models.OrderItem, int64, *Error) {
	items := make([]models.OrderItem, 0, len(reqItems))
	var subtotal int64

	for _, ri := range reqItems {
		qty := ri.Quantity
		if qty <= 0 {
			qty = 1
		}
		variantID := normalizeRef(ri.VariantID)
		sizeID := normalizeRef(ri.SizeID)
		if sizeID != nil && variantID == nil {
			return nil, 0, E(KindValidation, "Size requires a variant")
		}

		product, err := s.store.GetProduct(ctx, storeID, ri.ProductID)
		if err != nil {
			return nil, 0, notFoundOr(err, "Product not found")
		}
		var variant *models.ProductVariant
		if variantID != nil {
			v, err := s.store.GetVariant(ctx, product.ID, *variantID)
			if err != nil {
				return nil, 0, notFoundOr(err, "Product variant not found")
			}
			variant = v
		}
		if sizeID != nil {
			if _, err := s.store.GetVariantSize(ctx, *variantID, *sizeID); err != nil {
				return nil, 0, notFoundOr(err, "Product size not found")
			}
		}

		price := effectivePrice(product, variant)
		items = append(items, models.OrderItem{
			ProductID: ri.ProductID,
			VariantID: variantID,
			SizeID:    sizeID,
			Quantity:  qty,
			UnitPrice: price,
		})
		subtotal += price * int64(qty)
	}
	return items, subtotal, nil
}

// newOrderNumber generates a human-readable unique order number.
func newOrderNumber() string {
	return fmt.Sprintf("ORD-%s", strings.ToUpper(uuid.New().String()[:13]))
}

// GetOrder retrieves an order with its items, scoped to the store and
// owner. A foreign order is indistinguishable from a missing one.
func (s *OrderService) GetOrder(ctx context.Context, userID, storeID, orderID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	if order.StoreID != storeID || order.UserID != userID {
		return nil, E(KindNotFound, "Order not found")
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, wrapInternal(err, "Error fetching order")
	}
	return &OrderView{Order: *order, Items: items}, nil
}

// ListOrders retrieves the user's orders in a store, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID, storeID int64) ([]models.Order, error) {
	orders, err := s.store.GetOrdersByUser(ctx, storeID, userID)
	if err != nil {
		return nil, wrapInternal(err, "Error listing orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// CancelOrder cancels the user's order and restores its stock. Delivered
// orders and already-cancelled orders cannot be cancelled again.
func (s *OrderService) CancelOrder(ctx context.Context, userID, storeID, orderID int64) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	if order.StoreID != storeID || order.UserID != userID {
		return nil, E(KindNotFound, "Order not found")
	}

	if err := s.store.CancelOrder(ctx, orderID); err != nil {
		if isNotFound(err) {
			return nil, E(KindBusinessRule, "Order cannot be cancelled")
		}
		return nil, wrapInternal(err, "Error cancelling order")
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		if err := s.store.UpdatePaymentStatus(ctx, orderID, models.PaymentStatusRefunded); err != nil {
			s.logger.Error("Failed to mark order refunded",
				zap.Int64("order_id", orderID), zap.Error(err))
		}
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", userID))

	return s.GetOrder(ctx, userID, storeID, orderID)
}

// HandlePaymentResult applies the outcome of a payment attempt. Success
// confirms the order; failure cancels it and restores stock.
func (s *OrderService) HandlePaymentResult(ctx context.Context, orderID int64, success bool) error {
	ctx, span := util.StartSpan(ctx, "OrderService.HandlePaymentResult")
	defer span.End()

	if _, err := s.store.GetOrderByID(ctx, orderID); err != nil {
		return notFoundOr(err, "Order not found")
	}

	if success {
		if err := s.store.UpdatePaymentStatus(ctx, orderID, models.PaymentStatusPaid); err != nil {
			return wrapInternal(err, "Error recording payment")
		}
		if err := s.store.UpdateOrderStatus(ctx, orderID, models.OrderStatusConfirmed); err != nil {
			return wrapInternal(err, "Error recording payment")
		}
		s.logger.Info("Payment confirmed", zap.Int64("order_id", orderID))
		return nil
	}

	if err := s.store.UpdatePaymentStatus(ctx, orderID, models.PaymentStatusFailed); err != nil {
		return wrapInternal(err, "Error recording payment")
	}
	if err := s.store.CancelOrder(ctx, orderID); err != nil && !isNotFound(err) {
		return wrapInternal(err, "Error recording payment")
	}
	util.OrdersCancelledTotal.Inc()
	s.logger.Warn("Payment failed, order cancelled", zap.Int64("order_id", orderID))
	return nil
}

var validOrderStatuses = map[string]bool{
	models.OrderStatusPending:   true,
	models.OrderStatusConfirmed: true,
	models.OrderStatusShipped:   true,
	models.OrderStatusDelivered: true,
	models.OrderStatusCancelled: true,
}

// UpdateStatus sets an order's fulfilment status (admin). Cancellation
// goes through CancelOrder so stock is restored.
func (s *OrderService) UpdateStatus(ctx context.Context, storeID, orderID int64, status string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !validOrderStatuses[status] {
		return E(KindValidation, "Invalid order status")
	}
	if status == models.OrderStatusCancelled {
		return E(KindValidation, "Use the cancel operation to cancel an order")
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return notFoundOr(err, "Order not found")
	}
	if order.StoreID != storeID {
		return E(KindNotFound, "Order not found")
	}
	if order.Status == models.OrderStatusCancelled {
		return E(KindBusinessRule, "Cancelled orders cannot change status")
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return wrapInternal(err, "Error updating order status")
	}
	return nil
}

// emitPurchase dispatches a purchase conversion fact fire-and-forget.
func (s *OrderService) emitPurchase(ctx context.Context, order *models.Order, meta Meta) {
	if meta.SessionID == "" {
		return
	}
	event := models.ConversionEvent{
		EventType: models.ConversionPurchase,
		Value:     order.Total,
		Timestamp: time.Now(),
	}
	if err := s.dispatcher.PublishConversion(ctx, meta.SessionID, event); err != nil {
		util.FactsDroppedTotal.WithLabelValues(models.FactKindConversion).Inc()
		s.logger.Warn("Failed to dispatch purchase conversion",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}
