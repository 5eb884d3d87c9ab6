package service

import (
	"context"
	"time"

	"storefront-service/internal/identity"
	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// CartService owns the single cart per (store, identity): item matching,
// quantity merge, totals and coupon application.
type CartService struct {
	store      *store.Store
	dispatcher FactDispatcher
	cartTTL    time.Duration
	logger     *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(st *store.Store, dispatcher FactDispatcher, cartTTLDays int) *CartService {
	return &CartService{
		store:      st,
		dispatcher: dispatcher,
		cartTTL:    time.Duration(cartTTLDays) * 24 * time.Hour,
		logger:     util.GetLogger(),
	}
}

// AddItemRequest identifies a product selection to add.
type AddItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id"`
	SizeID    *int64 `json:"size_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateItemRequest sets the quantity of an existing selection.
// A quantity of zero or below removes the item.
type UpdateItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id"`
	SizeID    *int64 `json:"size_id"`
	Quantity  int    `json:"quantity"`
}

// RemoveItemRequest identifies the selection to remove.
type RemoveItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id"`
	SizeID    *int64 `json:"size_id"`
}

// CartItemView is a cart item populated with display fields.
type CartItemView struct {
	ProductID       int64     `json:"product_id"`
	VariantID       *int64    `json:"variant_id,omitempty"`
	SizeID          *int64    `json:"size_id,omitempty"`
	Quantity        int       `json:"quantity"`
	PriceAtAddition int64     `json:"price_at_addition"`
	Price           int64     `json:"price"`
	AddedAt         time.Time `json:"added_at"`
	ProductName     string    `json:"product_name,omitempty"`
	ProductPrice    int64     `json:"product_price,omitempty"`
	DiscountPrice   *int64    `json:"discount_price,omitempty"`
}

// CartView is the client-facing cart shape.
type CartView struct {
	StoreID   int64          `json:"store_id,omitempty"`
	Items     []CartItemView `json:"items"`
	CouponID  *int64         `json:"coupon_id,omitempty"`
	Subtotal  int64          `json:"subtotal"`
	Total     int64          `json:"total"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}

func emptyCartView() *CartView {
	return &CartView{Items: []CartItemView{}}
}

// AddItem resolves price and stock for the selection, merges it into the
// cart on the normalized triple key and recomputes totals.
func (s *CartService) AddItem(ctx context.Context, id identity.Identity, storeID int64, req AddItemRequest, meta Meta) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return nil, E(KindValidation, "Quantity must be at least 1")
	}
	variantID := normalizeRef(req.VariantID)
	sizeID := normalizeRef(req.SizeID)

	product, err := s.store.GetProduct(ctx, storeID, req.ProductID)
	if err != nil {
		util.CartOperationsFailedTotal.WithLabelValues("product_not_found").Inc()
		return nil, notFoundOr(err, "Product not found")
	}

	unitPrice, available, perr := s.resolveSelection(ctx, product, variantID, sizeID)
	if perr != nil {
		return nil, perr
	}
	if available < req.Quantity {
		util.CartOperationsFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, E(KindBusinessRule, "Insufficient stock")
	}

	cart, err := s.store.UpsertCart(ctx, id, storeID, s.cartTTL)
	if err != nil {
		return nil, wrapInternal(err, "Error adding item to cart")
	}
	totalBefore := cart.Total

	existing, err := s.store.FindCartItem(ctx, cart.ID, req.ProductID, variantID, sizeID)
	switch {
	case err == nil:
		if err := s.store.UpdateCartItemQuantity(ctx, existing.ID, existing.Quantity+req.Quantity); err != nil {
			return nil, wrapInternal(err, "Error adding item to cart")
		}
	case isNotFound(err):
		item := &models.CartItem{
			CartID:          cart.ID,
			ProductID:       req.ProductID,
			VariantID:       variantID,
			SizeID:          sizeID,
			Quantity:        req.Quantity,
			PriceAtAddition: unitPrice,
			Price:           unitPrice,
		}
		if err := s.store.InsertCartItem(ctx, item); err != nil {
			return nil, wrapInternal(err, "Error adding item to cart")
		}
	default:
		return nil, wrapInternal(err, "Error adding item to cart")
	}

	items, serr := s.recomputeTotals(ctx, cart)
	if serr != nil {
		return nil, serr
	}

	util.CartItemsAddedTotal.Inc()
	s.emitCartEvent(ctx, id, storeID, models.CartActionAdd, req.ProductID, variantID,
		req.Quantity, unitPrice, totalBefore, cart.Total, len(items), meta)

	return s.buildView(ctx, cart, items)
}

// GetCart returns the cart, or an empty placeholder when none exists.
// Reading never creates a cart.
func (s *CartService) GetCart(ctx context.Context, id identity.Identity, storeID int64) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	cart, err := s.store.GetCart(ctx, id, storeID)
	if isNotFound(err) {
		return emptyCartView(), nil
	}
	if err != nil {
		return nil, wrapInternal(err, "Error fetching cart")
	}

	items, err := s.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, wrapInternal(err, "Error fetching cart")
	}
	return s.buildView(ctx, cart, items)
}

// UpdateItemQuantity sets or removes (quantity <= 0) an item, re-checking
// stock on the way up.
func (s *CartService) UpdateItemQuantity(ctx context.Context, id identity.Identity, storeID int64, req UpdateItemRequest, meta Meta) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItemQuantity")
	defer span.End()

	variantID := normalizeRef(req.VariantID)
	sizeID := normalizeRef(req.SizeID)

	cart, err := s.store.GetCart(ctx, id, storeID)
	if err != nil {
		return nil, notFoundOr(err, "Cart not found")
	}
	totalBefore := cart.Total

	item, err := s.store.FindCartItem(ctx, cart.ID, req.ProductID, variantID, sizeID)
	if err != nil {
		return nil, notFoundOr(err, "Item not found in cart")
	}

	action, eventQty := updateOutcome(req.Quantity, item.Quantity)
	if action == models.CartActionRemove {
		if err := s.store.DeleteCartItem(ctx, item.ID); err != nil {
			return nil, wrapInternal(err, "Error updating cart")
		}
	} else {
		product, err := s.store.GetProduct(ctx, storeID, req.ProductID)
		if err != nil {
			return nil, notFoundOr(err, "Product not found")
		}
		_, available, perr := s.resolveSelection(ctx, product, variantID, sizeID)
		if perr != nil {
			return nil, perr
		}
		if available < req.Quantity {
			util.CartOperationsFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, E(KindBusinessRule, "Insufficient stock")
		}
		if err := s.store.UpdateCartItemQuantity(ctx, item.ID, req.Quantity); err != nil {
			return nil, wrapInternal(err, "Error updating cart")
		}
	}

	items, serr := s.recomputeTotals(ctx, cart)
	if serr != nil {
		return nil, serr
	}

	s.emitCartEvent(ctx, id, storeID, action, req.ProductID, variantID,
		eventQty, item.PriceAtAddition, totalBefore, cart.Total, len(items), meta)

	return s.buildView(ctx, cart, items)
}

// updateOutcome maps a requested quantity onto the resulting action and
// the quantity carried on the fact: a removal reports the quantity that
// left the cart, not the request's zero.
func updateOutcome(requested, existing int) (string, int) {
	if requested <= 0 {
		return models.CartActionRemove, existing
	}
	return models.CartActionUpdate, requested
}

// RemoveItem removes the matching selection from the cart.
func (s *CartService) RemoveItem(ctx context.Context, id identity.Identity, storeID int64, req RemoveItemRequest, meta Meta) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	variantID := normalizeRef(req.VariantID)
	sizeID := normalizeRef(req.SizeID)

	cart, err := s.store.GetCart(ctx, id, storeID)
	if err != nil {
		return nil, notFoundOr(err, "Cart not found")
	}
	totalBefore := cart.Total

	item, err := s.store.FindCartItem(ctx, cart.ID, req.ProductID, variantID, sizeID)
	if err != nil {
		return nil, notFoundOr(err, "Item not found in cart")
	}
	if err := s.store.DeleteCartItem(ctx, item.ID); err != nil {
		return nil, wrapInternal(err, "Error removing item from cart")
	}

	items, serr := s.recomputeTotals(ctx, cart)
	if serr != nil {
		return nil, serr
	}

	s.emitCartEvent(ctx, id, storeID, models.CartActionRemove, req.ProductID, variantID,
		item.Quantity, item.PriceAtAddition, totalBefore, cart.Total, len(items), meta)

	return s.buildView(ctx, cart, items)
}

// ClearCart empties the cart and detaches any applied coupon.
func (s *CartService) ClearCart(ctx context.Context, id identity.Identity, storeID int64, meta Meta) (*CartView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ClearCart")
	defer span.End()

	cart, err := s.store.GetCart(ctx, id, storeID)
	if err != nil {
		return nil, notFoundOr(err, "Cart not found")
	}
	totalBefore := cart.Total

	if err := s.store.ClearCartItems(ctx, cart.ID); err != nil {
		return nil, wrapInternal(err, "Error clearing cart")
	}
	cart.CouponID = nil

	items, serr := s.recomputeTotals(ctx, cart)
	if serr != nil {
		return nil, serr
	}

	s.emitCartEvent(ctx, id, storeID, models.CartActionClear, 0, nil,
		0, 0, totalBefore, cart.Total, len(items), meta)

	return s.buildView(ctx, cart, items)
}

// resolveSelection resolves the effective unit price and available stock
// for a product selection at its most specific level.
func (s *CartService) resolveSelection(ctx context.Context, product *models.Product, variantID, sizeID *int64) (int64, int, *Error) {
	var variant *models.ProductVariant
	var size *models.VariantSize

	if sizeID != nil && variantID == nil {
		return 0, 0, E(KindValidation, "Size requires a variant")
	}

	if variantID != nil {
		v, err := s.store.GetVariant(ctx, product.ID, *variantID)
		if err != nil {
			return 0, 0, notFoundOr(err, "Product variant not found")
		}
		variant = v
	}
	if sizeID != nil {
		sz, err := s.store.GetVariantSize(ctx, *variantID, *sizeID)
		if err != nil {
			return 0, 0, notFoundOr(err, "Product size not found")
		}
		size = sz
	}

	return effectivePrice(product, variant), effectiveStock(product, variant, size), nil
}

// effectivePrice is variant price, else discount price, else list price.
func effectivePrice(product *models.Product, variant *models.ProductVariant) int64 {
	if variant != nil && variant.Price != nil {
		return *variant.Price
	}
	if product.DiscountPrice != nil {
		return *product.DiscountPrice
	}
	return product.Price
}

// effectiveStock is the stock at the most specific selected level.
func effectiveStock(product *models.Product, variant *models.ProductVariant, size *models.VariantSize) int {
	if size != nil {
		return size.StockQuantity
	}
	if variant != nil {
		return variant.StockQuantity
	}
	return product.StockQuantity
}

// cartSubtotal sums price snapshots times quantities.
func cartSubtotal(items []models.CartItem) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += item.PriceAtAddition * int64(item.Quantity)
	}
	return subtotal
}

// recomputeTotals rereads items and persists subtotal and total,
// applying the attached coupon when it is still valid.
func (s *CartService) recomputeTotals(ctx context.Context, cart *models.Cart) ([]models.CartItem, *Error) {
	items, err := s.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, wrapInternal(err, "Error computing cart totals")
	}

	subtotal := cartSubtotal(items)
	var discount int64
	if cart.CouponID != nil {
		coupon, err := s.store.GetCouponByID(ctx, *cart.CouponID)
		if err == nil && coupon.IsValidAt(time.Now()) {
			discount = coupon.Discount(subtotal)
		}
	}

	total := subtotal - discount
	if err := s.store.UpdateCartTotals(ctx, cart.ID, subtotal, total); err != nil {
		return nil, wrapInternal(err, "Error computing cart totals")
	}
	cart.Subtotal = subtotal
	cart.Total = total
	return items, nil
}

// buildView populates items with product display fields.
func (s *CartService) buildView(ctx context.Context, cart *models.Cart, items []models.CartItem) (*CartView, error) {
	productIDs := make([]int64, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, wrapInternal(err, "Error fetching cart")
	}
	productMap := make(map[int64]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	view := &CartView{
		StoreID:   cart.StoreID,
		Items:     make([]CartItemView, 0, len(items)),
		CouponID:  cart.CouponID,
		Subtotal:  cart.Subtotal,
		Total:     cart.Total,
		ExpiresAt: &cart.ExpiresAt,
	}
	for _, item := range items {
		iv := CartItemView{
			ProductID:       item.ProductID,
			VariantID:       item.VariantID,
			SizeID:          item.SizeID,
			Quantity:        item.Quantity,
			PriceAtAddition: item.PriceAtAddition,
			Price:           item.Price,
			AddedAt:         item.AddedAt,
		}
		if p, ok := productMap[item.ProductID]; ok {
			iv.ProductName = p.Name
			iv.ProductPrice = p.Price
			iv.DiscountPrice = p.DiscountPrice
		}
		view.Items = append(view.Items, iv)
	}
	return view, nil
}

// emitCartEvent dispatches a cart fact fire-and-forget. A failed dispatch
// is logged and counted, never surfaced.
func (s *CartService) emitCartEvent(ctx context.Context, id identity.Identity, storeID int64, action string, productID int64, variantID *int64, quantity int, price, totalBefore, totalAfter int64, itemsCount int, meta Meta) {
	event := models.CartEvent{
		FactContext:     factContext(id, storeID, meta),
		ProductID:       productID,
		VariantID:       variantID,
		Action:          action,
		Quantity:        quantity,
		Price:           price,
		TotalValue:      int64(quantity) * price,
		CartTotalBefore: totalBefore,
		CartTotalAfter:  totalAfter,
		CartItemsCount:  itemsCount,
		CreatedAt:       time.Now(),
	}

	if err := s.dispatcher.PublishCartEvent(ctx, event); err != nil {
		util.FactsDroppedTotal.WithLabelValues(models.FactKindCartEvent).Inc()
		s.logger.Warn("Failed to dispatch cart event",
			zap.String("action", action),
			zap.Int64("store_id", storeID),
			zap.Error(err))
	}
}
