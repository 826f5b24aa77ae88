package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ecom/order-backend/internal/infrastructure/auth"
	"github.com/ecom/order-backend/internal/infrastructure/logger"
	"github.com/ecom/order-backend/internal/interfaces/http/middleware"
)

// RouteRegistrar mounts a handler's routes on the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(api *gin.RouterGroup)
}

// EngineRegistrar mounts routes directly on the engine, outside the
// authenticated API group. Used for health endpoints.
type EngineRegistrar interface {
	RegisterRoutes(r *gin.Engine)
}

// Config holds router construction options
type Config struct {
	Mode           string
	JWTService     *auth.JWTService
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

// New builds the gin engine with the standard middleware chain and
// mounts the given registrars under /api/v1.
func New(cfg Config, engineRegistrars []EngineRegistrar, apiRegistrars []RouteRegistrar) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	RegisterValidators()
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(logger.GinMiddleware(log))
	r.Use(logger.Recovery(log))
	r.Use(middleware.CORS())
	r.Use(middleware.SecureHeaders())
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	for _, reg := range engineRegistrars {
		reg.RegisterRoutes(r)
	}

	api := r.Group("/api/v1")
	if cfg.JWTService != nil {
		api.Use(middleware.JWTAuthMiddleware(middleware.DefaultJWTConfig(cfg.JWTService)))
	}
	for _, reg := range apiRegistrars {
		reg.RegisterRoutes(api)
	}

	return r
}
