package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flashteams/backend/pkg/helpers"
	"github.com/flashteams/backend/pkg/response"
)

const (
	CtxClaimsKey = "claims"
	CtxUserIDKey = "userID"
)

// AuthenticatedFunc runs after a bearer token validated, before the handler.
type AuthenticatedFunc func(c *gin.Context, claims *helpers.Claims)

// Auth validates the bearer access token and stores its claims in the Gin
// context under CtxClaimsKey, and the user id under CtxUserIDKey.
func Auth(jwt *helpers.JWTManager, onAuthenticated AuthenticatedFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
			response.Error(c, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := jwt.Parse(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		if onAuthenticated != nil {
			onAuthenticated(c, claims)
		}
		c.Next()
	}
}

// ClaimsFrom returns the caller's claims, nil on unauthenticated routes.
func ClaimsFrom(c *gin.Context) *helpers.Claims {
	if v, ok := c.Get(CtxClaimsKey); ok {
		if claims, ok := v.(*helpers.Claims); ok {
			return claims
		}
	}
	return nil
}
