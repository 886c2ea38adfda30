package httpapi

import (
	"mentorship-platform/internal/audit"

	"github.com/gin-gonic/gin"
)

// ClientIP records the caller address on the request context for audit events.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
