package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecom/order-backend/internal/infrastructure/auth"
)

type healthRegistrar struct{}

func (healthRegistrar) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
}

type pingRegistrar struct{}

func (pingRegistrar) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
}

func TestRouter(t *testing.T) {
	jwtService, err := auth.NewJWTService("test-secret-that-is-long-enough-for-hmac", "order-backend")
	require.NoError(t, err)

	r := New(Config{
		Mode:           gin.TestMode,
		JWTService:     jwtService,
		RequestTimeout: 5 * time.Second,
	}, []EngineRegistrar{healthRegistrar{}}, []RouteRegistrar{pingRegistrar{}})

	t.Run("health endpoint is public", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("api group requires auth", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("api group accepts a valid token", func(t *testing.T) {
		token, err := jwtService.GenerateToken("user-1", auth.RoleCustomer, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})
}
