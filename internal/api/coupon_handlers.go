package api

import (
	"net/http"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

// createCoupon handles creating a coupon definition
func (h *Handler) createCoupon(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req service.CreateCouponRequest
	if !bindJSON(c, &req) {
		return
	}

	coupon, err := h.coupons.CreateCoupon(c.Request.Context(), storeID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Coupon created successfully", coupon)
}

// listCoupons handles listing a store's coupons
func (h *Handler) listCoupons(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	coupons, err := h.coupons.ListCoupons(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Coupons fetched successfully", coupons)
}

// getCoupon handles fetching one coupon by code
func (h *Handler) getCoupon(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	coupon, err := h.coupons.GetCoupon(c.Request.Context(), storeID, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Coupon fetched successfully", coupon)
}
