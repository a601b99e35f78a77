package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/aie-platform/innovation-backend/internal/policy"
)

const (
	ctxUserID = "caller_id"
	ctxRole   = "caller_role"
)

// CallerID extracts the authenticated user's id from the Gin context.
// ok is false for anonymous requests.
func CallerID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// CallerRole extracts the authenticated user's role, or "" when anonymous.
func CallerRole(c *gin.Context) policy.Role {
	v, exists := c.Get(ctxRole)
	if !exists {
		return ""
	}
	r, _ := v.(policy.Role)
	return r
}

func setCaller(c *gin.Context, sess *Session) {
	c.Set(ctxUserID, sess.UserID)
	c.Set(ctxRole, sess.Role)
}
