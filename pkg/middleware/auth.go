package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware returns a Gin middleware that requires a valid Bearer token.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		claims, err := verifyBearer(c.Request.Context(), ver, auth)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

// OptionalAuthMiddleware extracts an identity when a Bearer token is present
// but lets the request through unauthenticated when it is not. Document
// rules treat the missing identity as a legal requester, so absence of a
// token is not an error here; a present-but-invalid token still is.
func OptionalAuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Next()
			return
		}
		claims, err := verifyBearer(c.Request.Context(), ver, auth)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set("claims", claims)
		c.Next()
	}
}

func verifyBearer(ctx context.Context, ver Verifier, header string) (map[string]interface{}, error) {
	var token string
	if n, _ := fmt.Sscanf(header, "Bearer %s", &token); n != 1 {
		return nil, fmt.Errorf("invalid Authorization header")
	}
	idToken, err := ver.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %s", err.Error())
	}
	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims")
	}
	return claims, nil
}

// RequesterUID returns the uid of the verified requester, or "" when the
// request is unauthenticated.
func RequesterUID(c *gin.Context) string {
	v, ok := c.Get("claims")
	if !ok {
		return ""
	}
	cm, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	sub, _ := cm["sub"].(string)
	return strings.TrimSpace(sub)
}
