package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gryadka/backend-go/internal/auth"
	"github.com/gryadka/backend-go/internal/database/service"
)

// Context keys set by RequireAuth
const (
	ContextUserID   = "userID"
	ContextIdentity = "identity"
)

// AuthMiddleware handles JWT validation
type AuthMiddleware struct {
	service service.AuthService
	logger  *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware instance
func NewAuthMiddleware(service service.AuthService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		service: service,
		logger:  logger,
	}
}

// RequireAuth validates the bearer access token and stores the caller's
// identity in the context. No database lookup is made.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.logger.Warn("⚠️ [Middleware] Missing Authorization header")
			unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			m.logger.Warn("⚠️ [Middleware] Invalid Authorization header format")
			unauthorized(c, "Invalid authorization header format")
			return
		}

		identity, err := m.service.ValidateAccessToken(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				m.logger.Debug("⏰ [Middleware] Access token expired")
				unauthorized(c, "Access token expired")
				return
			}
			m.logger.Warn("⚠️ [Middleware] Invalid token", "error", err)
			unauthorized(c, "Invalid token")
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextIdentity, *identity)
		m.logger.Debug("✅ [Middleware] Token validated", "user_id", identity.UserID)

		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed. It must run after
// RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok {
			unauthorized(c, "Unauthorized")
			return
		}

		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}

		m.logger.Warn("⚠️ [Middleware] Insufficient role",
			"user_id", identity.UserID,
			"role", identity.Role,
		)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// IdentityFromContext returns the identity stored by RequireAuth.
func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	value, exists := c.Get(ContextIdentity)
	if !exists {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
