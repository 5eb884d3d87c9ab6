package api

import (
	"net/http"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

// getCart handles fetching the current cart
func (h *Handler) getCart(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	view, err := h.carts.GetCart(c.Request.Context(), requestIdentity(c), storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cart fetched successfully", view)
}

// addCartItem handles adding a product selection to the cart
func (h *Handler) addCartItem(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req service.AddItemRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.carts.AddItem(c.Request.Context(), requestIdentity(c), storeID, req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Item added to cart", view)
}

// updateCartItem handles setting the quantity of a cart item
func (h *Handler) updateCartItem(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req service.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.carts.UpdateItemQuantity(c.Request.Context(), requestIdentity(c), storeID, req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cart updated successfully", view)
}

// removeCartItem handles removing a cart item
func (h *Handler) removeCartItem(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req service.RemoveItemRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.carts.RemoveItem(c.Request.Context(), requestIdentity(c), storeID, req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Item removed from cart", view)
}

// clearCart handles emptying the cart
func (h *Handler) clearCart(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	view, err := h.carts.ClearCart(c.Request.Context(), requestIdentity(c), storeID, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Cart cleared successfully", view)
}

type couponCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// applyCoupon handles attaching a coupon to the cart
func (h *Handler) applyCoupon(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req couponCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.carts.ApplyCoupon(c.Request.Context(), requestIdentity(c), storeID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Coupon applied successfully", view)
}

// validateCoupon handles checking a coupon against the cart without applying
func (h *Handler) validateCoupon(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req couponCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	check, err := h.carts.ValidateCoupon(c.Request.Context(), requestIdentity(c), storeID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Coupon is valid", check)
}

// removeCoupon handles detaching the coupon from the cart
func (h *Handler) removeCoupon(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	view, err := h.carts.RemoveCoupon(c.Request.Context(), requestIdentity(c), storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Coupon removed successfully", view)
}
