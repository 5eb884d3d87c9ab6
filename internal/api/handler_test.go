package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-service/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/guarded", h.requireIdentity(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/user-only", h.requireUser(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func identityHandler() *Handler {
	return &Handler{resolver: identity.NewResolver(identity.NewHMACVerifier("test-secret"))}
}

func TestRequireIdentityMissingHeadersIsBadRequest(t *testing.T) {
	router := newTestRouter(identityHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	router.ServeHTTP(w, req)

	// A request without any identity is malformed, not unauthorized.
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Session ID or User authentication required")
}

func TestRequireIdentitySessionHeaderPasses(t *testing.T) {
	router := newTestRouter(identityHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("x-session-id", "sess-1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireUserRejectsSessionOnlyWithBadRequest(t *testing.T) {
	router := newTestRouter(identityHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/user-only", nil)
	req.Header.Set("x-session-id", "sess-1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequireUserValidToken(t *testing.T) {
	verifier := identity.NewHMACVerifier("test-secret")
	h := &Handler{resolver: identity.NewResolver(verifier)}
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/user-only", nil)
	req.Header.Set("Authorization", "Bearer "+verifier.Sign(42, time.Now().Add(time.Hour)))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRespondErrorUnresolvedIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, identity.ErrUnresolved)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
