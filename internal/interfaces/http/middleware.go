package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opencivic/civicflow/internal/identity"
)

const actorContextKey = "actor"

// authMiddleware verifies the bearer token and binds the actor to the
// request. Every protected route runs behind it.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing bearer token",
			})
			return
		}

		actor, err := s.tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "invalid or expired token",
			})
			return
		}

		c.Set(actorContextKey, actor)
		c.Request = c.Request.WithContext(identity.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// currentActor returns the actor the auth middleware stored
func currentActor(c *gin.Context) identity.Actor {
	actor, _ := c.MustGet(actorContextKey).(identity.Actor)
	return actor
}
