package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rgayle/waterwatch/internal/auth"
	"github.com/rgayle/waterwatch/internal/models"
	"github.com/rgayle/waterwatch/internal/scope"
)

// Context keys for claims stored in gin.Context. Handlers read them
// through the helpers below instead of repeating type assertions.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyRole     = "role"
	ContextKeyParish   = "parish"
	ContextKeyFullName = "full_name"
)

// AuthMiddleware validates the bearer token and stores its claims on the
// request context. Browsers cannot set headers on websocket upgrades, so
// a "token" query parameter is accepted as a fallback.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing credentials",
			})
			return
		}

		claims, err := auth.ParseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyParish, claims.Parish)
		c.Set(ContextKeyFullName, claims.FullName)
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the authenticated user is an
// administrator. It must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetScope(c).Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "administrator access required",
			})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// GetScope assembles the caller's access scope from the claims set by
// AuthMiddleware. A missing claim yields a zero scope, which grants
// nothing downstream.
func GetScope(c *gin.Context) scope.Scope {
	sc := scope.Scope{UserID: GetUserID(c)}
	if val, ok := c.Get(ContextKeyRole); ok {
		if role, ok := val.(models.Role); ok {
			sc.Role = role
		}
	}
	if val, ok := c.Get(ContextKeyParish); ok {
		if parish, ok := val.(string); ok {
			sc.Parish = parish
		}
	}
	return sc
}

func GetUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetFullName(c *gin.Context) string {
	val, exists := c.Get(ContextKeyFullName)
	if !exists {
		return ""
	}
	name, ok := val.(string)
	if !ok {
		return ""
	}
	return name
}
