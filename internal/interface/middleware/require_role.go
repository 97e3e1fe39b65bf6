package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rumbleroad/pokerrun-api/pkg/response"
)

// RequireRole gates a route to the given roles. It must run after Auth,
// which puts the session role into the context.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString("userRole")
		if _, ok := allowed[role]; !ok {
			response.Error[any](c, http.StatusForbidden, "insufficient permissions", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
