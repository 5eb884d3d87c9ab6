package api

import (
	"net/http"
	"strconv"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

// getWishlist handles fetching a page of the wishlist
func (h *Handler) getWishlist(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	view, err := h.wishlists.GetWishlist(c.Request.Context(), requestIdentity(c), storeID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Wishlist fetched successfully", view)
}

// addWishlistItem handles adding a product selection to the wishlist
func (h *Handler) addWishlistItem(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req service.AddItemRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.wishlists.AddItem(c.Request.Context(), requestIdentity(c), storeID, req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Item added to wishlist", view)
}

// removeWishlistItem handles removing a wishlist item
func (h *Handler) removeWishlistItem(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req service.RemoveItemRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.wishlists.RemoveItem(c.Request.Context(), requestIdentity(c), storeID, req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Item removed from wishlist", view)
}

// clearWishlist handles emptying the wishlist
func (h *Handler) clearWishlist(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	view, err := h.wishlists.ClearWishlist(c.Request.Context(), requestIdentity(c), storeID, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Wishlist cleared successfully", view)
}

// wishlistContains handles membership checks by triple key via query params
func (h *Handler) wishlistContains(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	productID, err := strconv.ParseInt(c.Query("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid product_id",
		})
		return
	}

	var variantID, sizeID *int64
	if v, err := strconv.ParseInt(c.Query("variant_id"), 10, 64); err == nil {
		variantID = &v
	}
	if v, err := strconv.ParseInt(c.Query("size_id"), 10, 64); err == nil {
		sizeID = &v
	}

	contains, serr := h.wishlists.Contains(c.Request.Context(), requestIdentity(c), storeID, productID, variantID, sizeID)
	if serr != nil {
		respondError(c, serr)
		return
	}
	respond(c, http.StatusOK, "Wishlist checked", gin.H{"in_wishlist": contains})
}
