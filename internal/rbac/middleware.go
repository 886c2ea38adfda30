package rbac

import (
	"net/http"

	"mentorship-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyKind allows access if the caller's principal kind is listed.
// Admins pass every gate.
func RequireAnyKind(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = struct{}{}
	}

	return func(c *gin.Context) {
		kind, err := auth.Kind(c.Request.Context())
		if err != nil || kind == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthenticated", "error": "principal required"})
			return
		}
		if IsAdmin(kind) {
			c.Next()
			return
		}
		if _, ok := allowedSet[kind]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "unauthorized", "error": "forbidden"})
			return
		}
		c.Next()
	}
}
