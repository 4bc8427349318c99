package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/asksenior/backend/internal/auth"
	"github.com/asksenior/backend/internal/logger"
)

const (
	UserIDKey   = "user_id"
	IdentityKey = "identity"
)

// TokenVerifier turns a bearer token into the caller's identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required", "code": "UNAUTHORIZED"})
			return
		}
		token, ok := bearer(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format", "code": "UNAUTHORIZED"})
			return
		}
		id, err := v.Verify(token)
		if err != nil {
			logger.L.Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "UNAUTHORIZED"})
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuth records the caller when a valid token is present and lets
// anonymous requests through. An invalid token is treated as anonymous.
func OptionalAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearer(c.GetHeader("Authorization")); ok {
			if id, err := v.Verify(token); err == nil {
				setIdentity(c, id)
			}
		}
		c.Next()
	}
}

func bearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func setIdentity(c *gin.Context, id auth.Identity) {
	c.Set(UserIDKey, id.UserID)
	c.Set(IdentityKey, id)
}

// CurrentIdentity returns the identity stored by the auth middlewares.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
