package middleware

import "github.com/gin-gonic/gin"

// userIDKey and userNameKey carry the authenticated identity through the
// request context. The workflow core treats both as opaque inputs.
const (
	userIDKey   = contextKey("userID")
	userNameKey = contextKey("userName")
)

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if v := c.Request.Context().Value(userIDKey); v != nil {
		if userID, ok := v.(string); ok {
			return userID, true
		}
	}
	return "", false
}

// GetUserNameFromContext retrieves the authenticated user's display name, if
// the token carried one; falls back to empty string.
func GetUserNameFromContext(c *gin.Context) string {
	if v := c.Request.Context().Value(userNameKey); v != nil {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}
