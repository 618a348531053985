package httpserver

import (
	"context"
	"net/http"
	"strings"

	"marketplace-api/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	identityKey = "identity"
	tokenKey    = "token"
)

type tokenResolver interface {
	LookupByToken(ctx context.Context, token string) (domain.Identity, error)
}

// authMiddleware resolves the bearer token into a domain.Identity. When
// required is false a missing or bad token leaves the request anonymous.
func authMiddleware(users tokenResolver, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if required {
				abortMessage(c, http.StatusUnauthorized, "authentication required")
				return
			}
			c.Next()
			return
		}
		id, err := users.LookupByToken(c.Request.Context(), token)
		if err != nil {
			if required {
				abortMessage(c, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			c.Next()
			return
		}
		c.Set(identityKey, id)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// requireRole must run after authMiddleware.
func requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identity(c).HasRole(roles...) {
			abortMessage(c, http.StatusForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) domain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}
	}
	id, _ := v.(domain.Identity)
	return id
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func abortMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
