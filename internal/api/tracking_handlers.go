package api

import (
	"net/http"
	"strconv"

	"storefront-service/internal/service"

	"github.com/gin-gonic/gin"
)

type startSessionPayload struct {
	service.StartSessionRequest
	trackContext
}

// startSession handles opening a tracking session
func (h *Handler) startSession(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var payload startSessionPayload
	if !bindJSON(c, &payload) {
		return
	}

	meta := requestMeta(c)
	meta.Device = payload.Device
	meta.UTM = payload.UTM

	session, err := h.tracking.StartSession(c.Request.Context(), storeID, payload.StartSessionRequest, meta)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Session started", session)
}

type productViewPayload struct {
	service.ProductViewRequest
	trackContext
}

// recordProductView handles recording a product page view
func (h *Handler) recordProductView(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	var payload productViewPayload
	if !bindJSON(c, &payload) {
		return
	}
	if payload.SessionID == "" {
		payload.SessionID = c.GetHeader("x-session-id")
	}

	meta := requestMeta(c)
	meta.Device = payload.Device
	meta.UTM = payload.UTM

	if err := h.tracking.RecordProductView(c.Request.Context(), storeID, payload.ProductViewRequest, meta); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Product view recorded", nil)
}

// endSession handles finalizing a tracking session
func (h *Handler) endSession(c *gin.Context) {
	if _, ok := storeIDParam(c); !ok {
		return
	}

	session, err := h.tracking.EndSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Session ended", session)
}

// getSession handles fetching one session rollup
func (h *Handler) getSession(c *gin.Context) {
	if _, ok := storeIDParam(c); !ok {
		return
	}

	session, err := h.tracking.GetSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Session fetched", session)
}

// activeSessions handles listing live sessions for a store
func (h *Handler) activeSessions(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sessions, err := h.tracking.ActiveSessions(c.Request.Context(), storeID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Active sessions fetched", sessions)
}

// sweepSessions handles the internal idle-session sweep trigger
func (h *Handler) sweepSessions(c *gin.Context) {
	storeID, ok := storeIDParam(c)
	if !ok {
		return
	}

	swept, err := h.tracking.SweepIdleSessions(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Idle sessions swept", gin.H{"swept": swept})
}
