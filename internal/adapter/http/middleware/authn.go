package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shashank-materialplus/order-api/internal/security"
)

const identityKey = "identity"

// Authn turns a bearer token into a typed Identity on the gin context.
// Handlers read it back with CurrentIdentity; there is no global
// principal.
type Authn struct {
	verifier *security.Verifier
}

func NewAuthn(verifier *security.Verifier) *Authn {
	return &Authn{verifier: verifier}
}

func (a *Authn) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		ident, err := a.verifier.ExtractIdentity(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			unauth(c, "invalid_token", err.Error())
			return
		}

		c.Set(identityKey, ident)
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Run it after Require.
func (a *Authn) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := Identity(c)
		if !ok {
			unauth(c, "invalid_token", "no identity in request")
			return
		}
		if !ident.IsAdmin() {
			forbidden(c, "insufficient_scope", "admin role required")
			return
		}
		c.Next()
	}
}

// Identity returns the authenticated identity set by Require.
func Identity(c *gin.Context) (security.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return security.Identity{}, false
	}
	ident, ok := v.(security.Identity)
	return ident, ok
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"time":       time.Now().UTC(),
		"httpStatus": http.StatusText(http.StatusUnauthorized),
		"isSuccess":  false,
		"header":     "AUTHENTICATION",
		"message":    desc,
	})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"time":       time.Now().UTC(),
		"httpStatus": http.StatusText(http.StatusForbidden),
		"isSuccess":  false,
		"header":     "AUTHORIZATION",
		"message":    desc,
	})
}
