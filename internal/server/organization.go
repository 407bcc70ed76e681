package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
)

type addMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// CreateOrganization makes the calling user the organization's first admin.
func (s *Server) CreateOrganization(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok || actor.Type != ActorUser {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req organizationdomain.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.organizationSvc.Create(c.Request.Context(), actor.ID, organizationdomain.CreateOrganizationRequest{
		Name:         strings.TrimSpace(req.Name),
		Currency:     strings.TrimSpace(req.Currency),
		BillingEmail: strings.TrimSpace(req.BillingEmail),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

func (s *Server) GetOrganization(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	org, err := s.organizationSvc.GetByID(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

func (s *Server) AddOrganizationMember(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := optionalIDParam(req.UserID, "user")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.organizationSvc.AddMember(c.Request.Context(), orgID, idOrZero(userID), req.Role); err != nil {
		AbortWithError(c, err)
		return
	}

	noContent(c)
}
