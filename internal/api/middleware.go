package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"assistant-gateway/internal/config"
)

// RequireToken guards the dashboard API with a static bearer token.
// An empty configured token disables the check.
func RequireToken(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APIToken == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if auth == "" || token == auth || token != cfg.APIToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}

		c.Next()
	}
}
