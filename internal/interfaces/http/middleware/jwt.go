package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecom/order-backend/internal/infrastructure/auth"
	"github.com/ecom/order-backend/internal/infrastructure/logger"
	"github.com/ecom/order-backend/internal/interfaces/http/dto"
)

// Context keys for JWT data stored in gin context
const (
	JWTClaimsKey = "jwt_claims"
	JWTUserIDKey = "jwt_user_id"
	JWTRoleKey   = "jwt_role"
)

const (
	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
)

// JWTConfig configures the authentication middleware
type JWTConfig struct {
	JWTService *auth.JWTService

	// SkipPaths are exact paths that bypass authentication
	SkipPaths []string

	// SkipPathPrefixes are path prefixes that bypass authentication
	SkipPathPrefixes []string
}

// DefaultJWTConfig returns a config with the standard public paths
func DefaultJWTConfig(jwtService *auth.JWTService) JWTConfig {
	return JWTConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/ready",
		},
	}
}

// JWTAuthMiddleware validates the Bearer token and stores the claims
// in the gin context. Requests to skip paths pass through untouched.
func JWTAuthMiddleware(config JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range config.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}
		for _, prefix := range config.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		header := c.GetHeader(authHeaderKey)
		if header == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "missing authorization header")
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			abortUnauthorized(c, dto.ErrCodeInvalidToken, "authorization header must use Bearer scheme")
			return
		}

		tokenString := strings.TrimPrefix(header, bearerPrefix)
		claims, err := config.JWTService.ValidateToken(tokenString)
		if err != nil {
			handleAuthError(c, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTRoleKey, claims.Role)

		ctx, _ := logger.WithUserID(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireAdmin rejects requests whose token does not carry the admin role.
// Must run after JWTAuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "admin role required"))
			return
		}
		c.Next()
	}
}

func handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		abortUnauthorized(c, dto.ErrCodeTokenExpired, "token has expired")
	case errors.Is(err, auth.ErrInvalidToken):
		abortUnauthorized(c, dto.ErrCodeInvalidToken, "invalid token")
	default:
		abortUnauthorized(c, dto.ErrCodeUnauthorized, "authentication failed")
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message))
}

// GetJWTClaims retrieves the validated claims from the gin context
func GetJWTClaims(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(JWTClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

// GetJWTUserID retrieves the authenticated user id from the gin context
func GetJWTUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(JWTUserIDKey)
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}

// IsAdmin reports whether the authenticated user has the admin role
func IsAdmin(c *gin.Context) bool {
	value, exists := c.Get(JWTRoleKey)
	if !exists {
		return false
	}
	role, ok := value.(string)
	return ok && role == auth.RoleAdmin
}
