package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const sessionCookie = "session"

// ExtractToken reads the session token from the Authorization header or,
// failing that, the session cookie.
func ExtractToken(c *gin.Context) string {
	bearer := c.GetHeader("Authorization")
	if strings.HasPrefix(bearer, "Bearer ") {
		return strings.TrimSpace(bearer[7:])
	}
	if tok, err := c.Cookie(sessionCookie); err == nil {
		return tok
	}
	return ""
}

// RequireAuth rejects requests without a valid session and stores the
// caller's id and role in the context.
func RequireAuth(store *SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing session token"})
			c.Abort()
			return
		}

		sess, err := store.Get(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid or expired session"})
			c.Abort()
			return
		}

		setCaller(c, sess)
		c.Next()
	}
}

// OptionalAuth resolves a session when one is presented but lets anonymous
// requests through. Used for the public submission endpoint.
func OptionalAuth(store *SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := ExtractToken(c); token != "" {
			if sess, err := store.Get(c.Request.Context(), token); err == nil {
				setCaller(c, sess)
			}
		}
		c.Next()
	}
}
