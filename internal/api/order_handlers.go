package api

import (
	"net/http"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

// checkout handles placing an order from the user's cart
func (h *Handler) checkout(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req service.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	id := requestIdentity(c)
	view, err := h.orders.Checkout(c.Request.Context(), id.UserID, storeID, req, requestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Order placed successfully", view)
}

// listOrders handles listing the user's orders
func (h *Handler) listOrders(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	id := requestIdentity(c)
	orders, err := h.orders.ListOrders(c.Request.Context(), id.UserID, storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Orders fetched successfully", orders)
}

// getOrder handles fetching one of the user's orders
func (h *Handler) getOrder(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	id := requestIdentity(c)
	view, err := h.orders.GetOrder(c.Request.Context(), id.UserID, storeID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order fetched successfully", view)
}

// cancelOrder handles cancelling one of the user's orders
func (h *Handler) cancelOrder(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	id := requestIdentity(c)
	view, err := h.orders.CancelOrder(c.Request.Context(), id.UserID, storeID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order cancelled successfully", view)
}

type paymentResultRequest struct {
	Success bool `json:"success"`
}

// paymentResult handles the internal payment outcome callback
func (h *Handler) paymentResult(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req paymentResultRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.orders.HandlePaymentResult(c.Request.Context(), orderID, req.Success); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Payment result recorded", nil)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateOrderStatus handles the internal fulfilment status update
func (h *Handler) updateOrderStatus(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req updateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.orders.UpdateStatus(c.Request.Context(), storeID, orderID, req.Status); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order status updated", nil)
}

// migrate handles merging guest session containers into the user account
func (h *Handler) migrate(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	id := requestIdentity(c)
	result, err := h.migration.MigrateAll(c.Request.Context(), req.SessionID, id.UserID, storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Migration completed", result)
}
