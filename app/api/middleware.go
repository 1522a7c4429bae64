package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "user_id"

// Identify resolves the calling user from the X-User-ID header set by the
// gateway and stores it on the request context. Requests without a valid id
// are rejected before reaching any handler.
func Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		id, err := uuid.Parse(raw)
		if raw == "" || err != nil || id == uuid.Nil {
			UnauthorizedResponse(c)
			c.Abort()
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// UserID returns the authenticated user id from the request context, or
// uuid.Nil when the request was not identified.
func UserID(c *gin.Context) uuid.UUID {
	value, exists := c.Get(userIDKey)
	if !exists {
		return uuid.Nil
	}
	id, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
