package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
)

type createPropertyRequest struct {
	Name        string `json:"name"`
	OwnerUserID string `json:"owner_user_id"`
}

func (s *Server) CreateProperty(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	ownerID, err := optionalIDParam(req.OwnerUserID, "owner_user")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.propertySvc.Create(c.Request.Context(), propertydomain.CreatePropertyRequest{
		OrgID:       orgID,
		OwnerUserID: idOrZero(ownerID),
		Name:        req.Name,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (s *Server) ListProperties(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	items, err := s.propertySvc.List(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetPropertyByID(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, err := s.propertySvc.Get(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteProperty also removes the property's ledger entries and bookings.
func (s *Server) DeleteProperty(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.propertySvc.Delete(c.Request.Context(), orgID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	noContent(c)
}
