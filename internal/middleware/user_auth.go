package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"foodhub/internal/auth"
)

const (
	ContextUserID = "userId"
	ContextRole   = "role"
)

// UserAuth validates the bearer access token and injects userId and role
// into the context. It never reads the user store.
func UserAuth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(raw)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			log.Println("[AUTH] [WARN] missing or malformed authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized, login again"})
			return
		}

		claims, err := tokens.VerifyAccessToken(parts[1])
		if err != nil {
			log.Println("[AUTH] [WARN] token validation failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// UserID returns the authenticated user id set by UserAuth.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
