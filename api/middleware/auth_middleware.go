package middleware

import (
	"net/http"
	"strings"

	"github.com/friedchicken888/cab432-a2/api/common"
	"github.com/friedchicken888/cab432-a2/internal/auth"
	"github.com/gin-gonic/gin"
)

const ContextIdentityKey = "identity"

// TokenParser extracts the caller from a bearer token.
type TokenParser interface {
	ExtractIdentity(token string) (*auth.Identity, error)
}

// Auth requires a valid bearer token and stores the caller's identity in
// the context.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Authorization field format error")
			return
		}

		id, err := parser.ExtractIdentity(strings.TrimSpace(token))
		if err != nil {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextIdentityKey, *id)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
