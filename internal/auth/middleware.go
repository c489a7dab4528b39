package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"barbook/pkg/models"
)

const CtxClaimsKey = "auth_claims"

// ErrInvalidToken covers malformed, expired and revoked tokens alike.
var ErrInvalidToken = errors.New("invalid token")

// Verify parses a raw bearer token. When repo is set the token version must
// match the stored user, so logout, password and role changes revoke older
// tokens, and the stored role replaces the one baked into the token.
func Verify(ctx context.Context, tokens TokenService, repo *Repo, raw string) (*Claims, error) {
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if repo == nil {
		return claims, nil
	}
	u, err := repo.GetByID(ctx, claims.UserID)
	if err != nil || u == nil || u.TokenVersion != claims.TokenVersion {
		return nil, ErrInvalidToken
	}
	claims.Role = u.Role
	return claims, nil
}

// BearerToken returns the token of an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(header[len("Bearer "):])
	return raw, raw != ""
}

// AuthMiddleware requires a valid bearer token, checked with Verify.
func AuthMiddleware(tokens TokenService, repo *Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := Verify(c.Request.Context(), tokens, repo, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := MustGetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !claims.Role.Allows(min) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "requires " + string(min) + " role"})
			return
		}
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
