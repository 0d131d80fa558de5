package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "userID"

// authContext picks up the user identity established by the upstream auth
// layer (session verification is out of scope here, the gateway sets the
// header after validating the session).
func authContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := c.GetHeader("X-User-ID"); raw != "" {
			if userID, err := uuid.Parse(raw); err == nil {
				c.Set(userIDKey, userID)
			}
		}

		c.Next()
	}
}

// currentUser returns the authenticated user, or nil for guests.
func currentUser(c *gin.Context) *uuid.UUID {
	value, ok := c.Get(userIDKey)
	if !ok {
		return nil
	}

	userID, ok := value.(uuid.UUID)
	if !ok {
		return nil
	}

	return &userID
}
