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

// WishlistService owns the single wishlist per (store, identity).
// Unlike carts, wishlist membership is boolean: adding an existing
// selection is a conflict, not a quantity bump.
type WishlistService struct {
	store      *store.Store
	dispatcher FactDispatcher
	logger     *zap.Logger
}

// NewWishlistService creates a new wishlist service
func NewWishlistService(st *store.Store, dispatcher FactDispatcher) *WishlistService {
	return &WishlistService{
		store:      st,
		dispatcher: dispatcher,
		logger:     util.GetLogger(),
	}
}

// WishlistItemView is a wishlist item populated with display fields.
type WishlistItemView struct {
	ID            int64     `json:"id"`
	ProductID     int64     `json:"product_id"`
	VariantID     *int64    `json:"variant_id,omitempty"`
	SizeID        *int64    `json:"size_id,omitempty"`
	AddedAt       time.Time `json:"added_at"`
	ProductName   string    `json:"product_name,omitempty"`
	ProductPrice  int64     `json:"product_price,omitempty"`
	DiscountPrice *int64    `json:"discount_price,omitempty"`
}

// WishlistView is the client-facing wishlist shape, paginated.
type WishlistView struct {
	StoreID    int64              `json:"store_id,omitempty"`
	Items      []WishlistItemView `json:"items"`
	TotalItems int                `json:"total_items"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
}

// AddItem adds a selection to the wishlist. A duplicate triple key is a
// conflict regardless of whether variant or size were omitted or null.
func (s *WishlistService) AddItem(ctx context.Context, id identity.Identity, storeID int64, req AddItemRequest, meta Meta) (*WishlistView, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.AddItem")
	defer span.End()

	variantID := normalizeRef(req.VariantID)
	sizeID := normalizeRef(req.SizeID)

	product, err := s.store.GetProduct(ctx, storeID, req.ProductID)
	if err != nil {
		return nil, notFoundOr(err, "Product not found")
	}
	if variantID != nil {
		if _, err := s.store.GetVariant(ctx, product.ID, *variantID); err != nil {
			return nil, notFoundOr(err, "Product variant not found")
		}
	}
	if sizeID != nil {
		if variantID == nil {
			return nil, E(KindValidation, "Size requires a variant")
		}
		if _, err := s.store.GetVariantSize(ctx, *variantID, *sizeID); err != nil {
			return nil, notFoundOr(err, "Product size not found")
		}
	}

	wl, err := s.store.UpsertWishlist(ctx, id, storeID)
	if err != nil {
		return nil, wrapInternal(err, "Error adding item to wishlist")
	}

	if _, err := s.store.FindWishlistItem(ctx, wl.ID, req.ProductID, variantID, sizeID); err == nil {
		return nil, E(KindConflict, "Item already in wishlist")
	} else if !isNotFound(err) {
		return nil, wrapInternal(err, "Error adding item to wishlist")
	}

	item := &models.WishlistItem{
		WishlistID: wl.ID,
		ProductID:  req.ProductID,
		VariantID:  variantID,
		SizeID:     sizeID,
	}
	if err := s.store.InsertWishlistItem(ctx, item); err != nil {
		if isDuplicate(err) {
			return nil, E(KindConflict, "Item already in wishlist")
		}
		return nil, wrapInternal(err, "Error adding item to wishlist")
	}

	util.WishlistItemsAddedTotal.Inc()
	s.emitWishlistEvent(ctx, id, storeID, models.CartActionAdd, req.ProductID, meta)

	return s.buildView(ctx, wl, 1, defaultWishlistPageSize)
}

// defaultWishlistPageSize bounds a wishlist page.
const defaultWishlistPageSize = 20

// GetWishlist returns a page of the wishlist, or an empty placeholder
// when none exists. Reading never creates one.
func (s *WishlistService) GetWishlist(ctx context.Context, id identity.Identity, storeID int64, page, limit int) (*WishlistView, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.GetWishlist")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defaultWishlistPageSize
	}

	wl, err := s.store.GetWishlist(ctx, id, storeID)
	if isNotFound(err) {
		return &WishlistView{Items: []WishlistItemView{}, Page: page, Limit: limit}, nil
	}
	if err != nil {
		return nil, wrapInternal(err, "Error fetching wishlist")
	}
	return s.buildView(ctx, wl, page, limit)
}

// RemoveItem removes the matching selection from the wishlist.
func (s *WishlistService) RemoveItem(ctx context.Context, id identity.Identity, storeID int64, req RemoveItemRequest, meta Meta) (*WishlistView, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.RemoveItem")
	defer span.End()

	variantID := normalizeRef(req.VariantID)
	sizeID := normalizeRef(req.SizeID)

	wl, err := s.store.GetWishlist(ctx, id, storeID)
	if err != nil {
		return nil, notFoundOr(err, "Wishlist not found")
	}

	item, err := s.store.FindWishlistItem(ctx, wl.ID, req.ProductID, variantID, sizeID)
	if err != nil {
		return nil, notFoundOr(err, "Item not found in wishlist")
	}
	if err := s.store.DeleteWishlistItem(ctx, item.ID); err != nil {
		return nil, wrapInternal(err, "Error removing item from wishlist")
	}

	s.emitWishlistEvent(ctx, id, storeID, models.CartActionRemove, req.ProductID, meta)

	return s.buildView(ctx, wl, 1, defaultWishlistPageSize)
}

// ClearWishlist empties the wishlist. Clearing an absent wishlist is a
// no-op success: the end state is the same.
func (s *WishlistService) ClearWishlist(ctx context.Context, id identity.Identity, storeID int64, meta Meta) (*WishlistView, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.ClearWishlist")
	defer span.End()

	wl, err := s.store.GetWishlist(ctx, id, storeID)
	if isNotFound(err) {
		return &WishlistView{Items: []WishlistItemView{}, Page: 1, Limit: defaultWishlistPageSize}, nil
	}
	if err != nil {
		return nil, wrapInternal(err, "Error clearing wishlist")
	}

	if err := s.store.ClearWishlistItems(ctx, wl.ID); err != nil {
		return nil, wrapInternal(err, "Error clearing wishlist")
	}

	s.emitWishlistEvent(ctx, id, storeID, models.CartActionClear, 0, meta)

	return s.buildView(ctx, wl, 1, defaultWishlistPageSize)
}

// Contains reports whether a selection is in the wishlist.
func (s *WishlistService) Contains(ctx context.Context, id identity.Identity, storeID int64, productID int64, variantID, sizeID *int64) (bool, error) {
	wl, err := s.store.GetWishlist(ctx, id, storeID)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, wrapInternal(err, "Error checking wishlist")
	}

	_, err = s.store.FindWishlistItem(ctx, wl.ID, productID, normalizeRef(variantID), normalizeRef(sizeID))
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, wrapInternal(err, "Error checking wishlist")
	}
	return true, nil
}

func (s *WishlistService) buildView(ctx context.Context, wl *models.Wishlist, page, limit int) (*WishlistView, error) {
	total, err := s.store.CountWishlistItems(ctx, wl.ID)
	if err != nil {
		return nil, wrapInternal(err, "Error fetching wishlist")
	}
	items, err := s.store.GetWishlistItems(ctx, wl.ID, limit, (page-1)*limit)
	if err != nil {
		return nil, wrapInternal(err, "Error fetching wishlist")
	}

	productIDs := make([]int64, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, wrapInternal(err, "Error fetching wishlist")
	}
	productMap := make(map[int64]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	view := &WishlistView{
		StoreID:    wl.StoreID,
		Items:      make([]WishlistItemView, 0, len(items)),
		TotalItems: total,
		Page:       page,
		Limit:      limit,
	}
	for _, item := range items {
		iv := WishlistItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			SizeID:    item.SizeID,
			AddedAt:   item.AddedAt,
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

// emitWishlistEvent dispatches a wishlist fact fire-and-forget.
func (s *WishlistService) emitWishlistEvent(ctx context.Context, id identity.Identity, storeID int64, action string, productID int64, meta Meta) {
	event := models.WishlistEvent{
		FactContext: factContext(id, storeID, meta),
		ProductID:   productID,
		Action:      action,
		CreatedAt:   time.Now(),
	}
	if err := s.dispatcher.PublishWishlistEvent(ctx, event); err != nil {
		util.FactsDroppedTotal.WithLabelValues(models.FactKindWishlistEvent).Inc()
		s.logger.Warn("Failed to dispatch wishlist event",
			zap.String("action", action),
			zap.Int64("store_id", storeID),
			zap.Error(err))
	}
}
