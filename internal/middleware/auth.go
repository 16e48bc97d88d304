package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kartikbazzad/bunbase/marketplace/internal/auth"
	"github.com/kartikbazzad/bunbase/marketplace/internal/authz"
	"github.com/kartikbazzad/bunbase/marketplace/pkg/logger"
)

const claimsContextName = "claims"

// BearerAuth validates the Authorization: Bearer token and sets the claims in the Gin
// context. A missing token is 401; a token that fails verification is 403.
func BearerAuth(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := GetBearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}

		claims, err := issuer.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(claimsContextName, claims)
		l := logger.FromContext(c.Request.Context()).With("actor_id", claims.Subject, "role", claims.Role)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), l))
		c.Next()
	}
}

// Authorize checks the caller's role against the route policy. Must be used after BearerAuth.
func Authorize(enforcer *authz.Enforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := RequireClaims(c)
		if !ok {
			return
		}
		if !enforcer.Allow(claims.Role, c.Request.URL.Path, c.Request.Method) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}

// GetClaims retrieves the verified claims from the Gin context
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	val, ok := c.Get(claimsContextName)
	if !ok {
		return nil, false
	}
	claims, ok := val.(*auth.Claims)
	return claims, ok
}

// RequireClaims is a helper that checks the caller is authenticated, writing error response if not
func RequireClaims(c *gin.Context) (*auth.Claims, bool) {
	claims, ok := GetClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
		return nil, false
	}
	return claims, true
}

// GetBearerToken extracts the token from the Authorization header.
func GetBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}
