package server

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/propbill/internal/observability/context"
	"github.com/smallbiznis/propbill/internal/orgcontext"
)

const (
	HeaderActor     = "X-Actor"
	contextActorKey = "actor"
)

type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
)

type Actor struct {
	Type ActorType
	ID   snowflake.ID
}

// parseActor accepts "system" or "user:<snowflake id>".
func parseActor(raw string) (Actor, bool) {
	raw = strings.TrimSpace(raw)
	if raw == string(ActorSystem) {
		return Actor{Type: ActorSystem}, true
	}
	if !strings.HasPrefix(raw, "user:") {
		return Actor{}, false
	}
	id, err := snowflake.ParseString(strings.TrimPrefix(raw, "user:"))
	if err != nil || id <= 0 {
		return Actor{}, false
	}
	return Actor{Type: ActorUser, ID: id}, true
}

func (a Actor) subject() string {
	switch a.Type {
	case ActorUser:
		return fmt.Sprintf("user:%s", a.ID.String())
	case ActorSystem:
		return "system"
	default:
		return ""
	}
}

// ActorRequired resolves the caller from the X-Actor header.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := parseActor(c.GetHeader(HeaderActor))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actorID := "system"
		if actor.Type == ActorUser {
			actorID = actor.ID.String()
		}
		ctx := obscontext.WithActor(c.Request.Context(), string(actor.Type), actorID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextActorKey, actor)
		c.Next()
	}
}

func (s *Server) authorizeOrgAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if s.authzSvc == nil {
			AbortWithError(c, ErrForbidden)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor.subject(), orgID.String(), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func actorFromContext(c *gin.Context) (Actor, bool) {
	value, ok := c.Get(contextActorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := value.(Actor)
	return actor, ok
}
