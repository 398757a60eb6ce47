package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ownerIDKey = "ownerID"

// DefaultOwner is used when no bearer token is configured and the client
// does not name itself.
const DefaultOwner = "default"

func OwnerIDFromContext(c *gin.Context) string {
	if v, ok := c.Get(ownerIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Auth checks the bearer token, when one is configured, and resolves the
// owner from X-User-ID. With a token set the header becomes mandatory.
func Auth(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		enforceExplicitOwner := token != ""
		if token != "" && !bearerMatches(c, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		owner := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if owner == "" {
			if enforceExplicitOwner {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "x-user-id required"})
				return
			}
			owner = DefaultOwner
		}
		c.Set(ownerIDKey, owner)
		c.Next()
	}
}

// AdminAuth guards operator routes. An empty token disables them entirely.
func AdminAuth(token string) gin.HandlerFunc {
	token = strings.TrimSpace(token)
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin api disabled"})
			return
		}
		if !bearerMatches(c, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func bearerMatches(c *gin.Context, token string) bool {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return false
	}
	got := strings.TrimSpace(h[7:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
