package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/completion-report-api/pkg/errors"
	"github.com/noah-isme/completion-report-api/pkg/response"
)

// RequireCapabilities lets the request through only when the token grants
// every listed capability. Admins hold all capabilities.
func RequireCapabilities(capabilities ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		for _, capability := range capabilities {
			if !claims.HasCapability(capability) {
				response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing capability "+capability))
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
