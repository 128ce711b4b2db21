package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// SessionHeader lets anonymous operators keep separate consoles.
	SessionHeader = "X-Console-Session"
	// ContextSessionKey stores the resolved console session id.
	ContextSessionKey = "consoleSession"

	defaultSession = "default"
	maxSessionLen  = 128
)

// Session resolves which console session a request belongs to: the operator id
// from the token, else the session header, else the shared default session.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextSessionKey, resolveSession(c))
		c.Next()
	}
}

// SessionID returns the session id stored by Session.
func SessionID(c *gin.Context) string {
	if value, ok := c.Get(ContextSessionKey); ok {
		if id, ok := value.(string); ok && id != "" {
			return id
		}
	}
	return defaultSession
}

func resolveSession(c *gin.Context) string {
	if claims := Claims(c); claims != nil && claims.UserID != "" {
		return "operator:" + claims.UserID
	}
	header := strings.TrimSpace(c.GetHeader(SessionHeader))
	if header != "" && len(header) <= maxSessionLen {
		return "anon:" + header
	}
	return defaultSession
}
