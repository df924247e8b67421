package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/herbtrace/herbtrace/internal/actorctx"
	batchdomain "github.com/herbtrace/herbtrace/internal/batch/domain"
)

// ActorRequired reads the caller identity injected by the upstream auth
// layer. Requests without an actor id are rejected before reaching handlers.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorctx.Actor{
			ID:   strings.TrimSpace(c.GetHeader("X-Actor-Id")),
			Role: strings.ToLower(strings.TrimSpace(c.GetHeader("X-Actor-Role"))),
		}
		if raw := strings.TrimSpace(c.GetHeader("X-Actor-Permissions")); raw != "" {
			for _, perm := range strings.Split(raw, ",") {
				if perm = strings.TrimSpace(perm); perm != "" {
					actor.Permissions = append(actor.Permissions, perm)
				}
			}
		}

		if actor.ID == "" {
			AbortWithError(c, batchdomain.ErrUnauthorized)
			return
		}

		ctx := actorctx.WithActor(c.Request.Context(), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole gates a route to the named roles.
func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorctx.ActorFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, batchdomain.ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		AbortWithError(c, batchdomain.ErrForbidden)
	}
}
