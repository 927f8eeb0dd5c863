package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenEnv is the environment fallback of AuthConfig.Token.
const TokenEnv = "WARDEN_AUTH_TOKEN"

// AuthConfig holds configuration for Bearer token authentication.
type AuthConfig struct {
	// Token is the expected Bearer token value. Empty disables authentication
	// unless TokenEnv is set.
	Token string `json:"token"`
}

// ResolveToken returns the effective token, checking env vars as fallback.
func (c *AuthConfig) ResolveToken() string {
	if c.Token != "" {
		return c.Token
	}
	return os.Getenv(TokenEnv)
}

// BearerAuth returns a Gin middleware that enforces Bearer token authentication.
//
//   - Uses crypto/subtle.ConstantTimeCompare to compare tokens
//   - Skips auth for loopback requests
//   - Whitelists /healthz
func BearerAuth(cfg *AuthConfig) gin.HandlerFunc {
	token := cfg.ResolveToken()
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}

		if isLocalRequest(c.Request) {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, "missing Authorization header")
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			abort(c, "invalid Authorization header format, expected 'Bearer <token>'")
			return
		}

		provided := authHeader[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			abort(c, "invalid bearer token")
			return
		}

		c.Next()
	}
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": msg,
	})
}

// isLocalRequest checks if a request originates from loopback address.
func isLocalRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}
