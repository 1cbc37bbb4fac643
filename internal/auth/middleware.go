package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxActorClaims = "docseal_actor_claims"

// RequireActor returns a Gin middleware that enforces a valid Bearer session
// token and injects its claims into the context.
//
// When tokens is nil authentication is disabled: the actor is taken from the
// X-Actor header, defaulting to "anonymous". Intended for local and
// single-process deployments only.
func RequireActor(tokens *TokenIssuer) gin.HandlerFunc {
	if tokens == nil {
		return func(c *gin.Context) {
			actor := c.GetHeader("X-Actor")
			if actor == "" {
				actor = "anonymous"
			}
			c.Set(ctxActorClaims, &ActorClaims{Actor: actor})
			c.Next()
		}
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer token required",
			})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token: " + err.Error(),
			})
			return
		}

		c.Set(ctxActorClaims, claims)
		c.Next()
	}
}

// RequireAdmin returns a Gin middleware that enforces a valid admin Bearer
// token. Only tokens with Role="admin" are accepted. Use this on the
// subscription management and deletion routes.
func RequireAdmin(tokens *TokenIssuer) gin.HandlerFunc {
	if tokens == nil {
		return RequireActor(nil)
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "admin Bearer token required",
			})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token: " + err.Error(),
			})
			return
		}
		if claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin role required",
			})
			return
		}

		c.Set(ctxActorClaims, claims)
		c.Next()
	}
}

// ClaimsFromCtx retrieves the claims injected by RequireActor.
// Returns nil if no token is present in the context.
func ClaimsFromCtx(c *gin.Context) *ActorClaims {
	v, _ := c.Get(ctxActorClaims)
	claims, _ := v.(*ActorClaims)
	return claims
}

// ActorFromCtx retrieves the authenticated actor name, or "" if absent.
func ActorFromCtx(c *gin.Context) string {
	claims := ClaimsFromCtx(c)
	if claims == nil {
		return ""
	}
	return claims.Actor
}
