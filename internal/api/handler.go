package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/identity"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	carts     *service.CartService
	wishlists *service.WishlistService
	coupons   *service.CouponService
	orders    *service.OrderService
	tracking  *service.TrackingService
	migration *service.MigrationService
	resolver  *identity.Resolver
}

// NewHandler creates a new HTTP handler
func NewHandler(
	carts *service.CartService,
	wishlists *service.WishlistService,
	coupons *service.CouponService,
	orders *service.OrderService,
	tracking *service.TrackingService,
	migration *service.MigrationService,
	resolver *identity.Resolver,
) *Handler {
	return &Handler{
		carts:     carts,
		wishlists: wishlists,
		coupons:   coupons,
		orders:    orders,
		tracking:  tracking,
		migration: migration,
		resolver:  resolver,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	stores := v1.Group("/stores/:store_id")
	{
		cart := stores.Group("/cart", h.requireIdentity())
		{
			cart.GET("", h.getCart)
			cart.DELETE("", h.clearCart)
			cart.POST("/items", h.addCartItem)
			cart.PUT("/items", h.updateCartItem)
			cart.DELETE("/items", h.removeCartItem)
			cart.POST("/coupon", h.applyCoupon)
			cart.POST("/coupon/validate", h.validateCoupon)
			cart.DELETE("/coupon", h.removeCoupon)
		}

		wishlist := stores.Group("/wishlist", h.requireIdentity())
		{
			wishlist.GET("", h.getWishlist)
			wishlist.DELETE("", h.clearWishlist)
			wishlist.POST("/items", h.addWishlistItem)
			wishlist.DELETE("/items", h.removeWishlistItem)
			wishlist.GET("/contains", h.wishlistContains)
		}

		track := stores.Group("/track")
		{
			track.POST("/sessions", h.startSession)
			track.GET("/sessions/active", h.activeSessions)
			track.GET("/sessions/:session_id", h.getSession)
			track.POST("/sessions/:session_id/end", h.endSession)
			track.POST("/product-views", h.recordProductView)
		}

		orders := stores.Group("/orders", h.requireUser())
		{
			orders.POST("", h.checkout)
			orders.GET("", h.listOrders)
			orders.GET("/:id", h.getOrder)
			orders.POST("/:id/cancel", h.cancelOrder)
		}

		stores.POST("/migrate", h.requireUser(), h.migrate)

		coupons := stores.Group("/coupons")
		{
			coupons.POST("", h.createCoupon)
			coupons.GET("", h.listCoupons)
			coupons.GET("/:code", h.getCoupon)
		}
	}

	internal := router.Group("/internal")
	{
		internal.POST("/stores/:store_id/sessions/sweep", h.sweepSessions)
		internal.POST("/orders/:id/payment", h.paymentResult)
		internal.PATCH("/stores/:store_id/orders/:id/status", h.updateOrderStatus)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

const identityKey = "identity"

// requireIdentity resolves the guest-or-user identity of the request.
// The x-session-id header wins over the Authorization header. A request
// carrying neither is malformed, not unauthorized: 400.
func (h *Handler) requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.resolver.Resolve(c.GetHeader("x-session-id"), c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// requireUser resolves an authenticated user, rejecting anonymous requests.
func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.resolver.ResolveUser(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": err.Error(),
			})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func requestIdentity(c *gin.Context) identity.Identity {
	id, _ := c.MustGet(identityKey).(identity.Identity)
	return id
}

// requestMeta collects the request context attached to tracking facts.
func requestMeta(c *gin.Context) service.Meta {
	return service.Meta{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Referrer:  c.GetHeader("Referer"),
		SessionID: c.GetHeader("x-session-id"),
	}
}

func storeIDParam(c *gin.Context) (int64, bool) {
	storeID, err := strconv.ParseInt(c.Param("store_id"), 10, 64)
	if err != nil || storeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid store ID",
		})
		return 0, false
	}
	return storeID, true
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid " + name,
		})
		return 0, false
	}
	return id, true
}

// respond writes the standard success envelope.
func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// respondError maps service errors to status codes; anything unclassified
// is an internal error with a generic message.
func respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(statusFor(svcErr.Kind), gin.H{
			"success": false,
			"message": svcErr.Message,
		})
		return
	}
	if errors.Is(err, identity.ErrUnresolved) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"message": "Internal server error",
	})
}

func statusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation, service.KindBusinessRule:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// trackContext carries device and campaign attribution in tracking bodies.
type trackContext struct {
	Device models.DeviceInfo `json:"device_info"`
	UTM    models.UTMParams  `json:"utm_params"`
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
