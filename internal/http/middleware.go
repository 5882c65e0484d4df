package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"plategate/internal/service"
)

// APITokenAuth guards the detection ingress with the pre-shared worker token.
func APITokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-API-Token")
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("API token required"))
			return
		}
		if got != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("invalid API token"))
			return
		}
		c.Next()
	}
}

// JWTAuth guards the admin API with a bearer token issued by the auth service.
func JWTAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("bearer token required"))
			return
		}
		username, err := auth.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("invalid token"))
			return
		}
		c.Set("username", username)
		c.Next()
	}
}

func currentUsername(c *gin.Context) string {
	if v, ok := c.Get("username"); ok {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return "admin"
}
