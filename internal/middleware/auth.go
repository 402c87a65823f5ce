package middleware

import (
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jonahsteuer/the-multiverse-sub002/internal/constants"
	apierrors "github.com/jonahsteuer/the-multiverse-sub002/internal/errors"
)

// RequireAuth resolves the session's user ID and stores it in the context as
// a uint64. Sessions are written by the identity provider; this service only
// reads them.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(sessions.Default(c).Get(constants.ContextKeyUserID))
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		c.Next()
	}
}

// GetUserID returns the user ID set by RequireAuth
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, ok := c.Get(constants.ContextKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := userID.(uint64)
	return id, ok && id != 0
}

// sessionUserID accepts the integer and string encodings identity providers
// use for the session's user ID
func sessionUserID(v interface{}) (uint64, bool) {
	var id uint64
	switch v := v.(type) {
	case uint64:
		id = v
	case uint:
		id = uint64(v)
	case uint32:
		id = uint64(v)
	case int64:
		if v > 0 {
			id = uint64(v)
		}
	case int:
		if v > 0 {
			id = uint64(v)
		}
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err == nil {
			id = parsed
		}
	}
	return id, id != 0
}
