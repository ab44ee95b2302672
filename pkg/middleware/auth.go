package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// PrincipalKey is the gin context key holding the name of the secret that authorized the request.
const PrincipalKey = "principal"

// SecretHeader carries the shared secret for callers that cannot set Authorization.
const SecretHeader = "X-Cron-Secret"

// Secret is a named shared secret accepted by SecretAuth.
type Secret struct {
	Name  string
	Value string
}

// SecretAuth returns a Gin middleware that accepts `Authorization: Bearer <secret>` (or the
// X-Cron-Secret header) when it matches one of the configured secrets. Empty secrets never match,
// so a deployment without any configured secret rejects every request.
func SecretAuth(secrets ...Secret) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := presented(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}
		if name := match(raw, secrets); name != "" {
			c.Set(PrincipalKey, name)
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

// match returns the name of the secret equal to raw, or "".
func match(raw string, secrets []Secret) string {
	if raw == "" {
		return ""
	}
	for _, s := range secrets {
		if s.Value == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(raw), []byte(s.Value)) == 1 {
			return s.Name
		}
	}
	return ""
}

func presented(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(c.GetHeader(SecretHeader))
}

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

// ByPrincipal keys requests presenting one of secrets by that secret's name and everything
// else by client IP. It lets a limiter mounted before SecretAuth count an authorized caller
// as one principal while wrong or missing credentials stay limited per IP.
func ByPrincipal(secrets ...Secret) KeyFunc {
	return func(c *gin.Context) string {
		if name := match(presented(c), secrets); name != "" {
			return "principal:" + name
		}
		return ipKey(c)
	}
}

// rateKey uses the principal SecretAuth stored on the context and falls back to the client IP.
// It is the default when a limiter is mounted after SecretAuth.
func rateKey(c *gin.Context) string {
	if v, ok := c.Get(PrincipalKey); ok {
		if name, _ := v.(string); name != "" {
			return "principal:" + name
		}
	}
	return ipKey(c)
}

func ipKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
