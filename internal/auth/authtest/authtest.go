// Package authtest stands in for AuthMiddleware in handler tests.
package authtest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"barbook/internal/auth"
	"barbook/pkg/models"
)

// RoleHeader carries the caller's role in tests.
const RoleHeader = "X-Test-Role"

// Middleware trusts RoleHeader and answers 401 without it.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := models.ParseRole(c.GetHeader(RoleHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: "test-" + string(role), Email: string(role) + "@bar.test", Role: role})
		c.Next()
	}
}
