package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/propbill/internal/ledger/domain"
)

type createLedgerEntryRequest struct {
	PropertyID  string `json:"property_id" binding:"required"`
	AmountMinor int64  `json:"amount_minor"`
	EntryDate   string `json:"entry_date" binding:"required"`
	Description string `json:"description"`
}

// CreateLedgerEntry records income (positive) or expense (negative) in minor units.
func (s *Server) CreateLedgerEntry(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	var req createLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	propertyID, err := optionalIDParam(req.PropertyID, "property")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	entryDate, err := parseOptionalTime(req.EntryDate, false)
	if err != nil || entryDate == nil {
		AbortWithError(c, ledgerdomain.ErrInvalidEntryDate)
		return
	}

	item, err := s.ledgerSvc.Create(c.Request.Context(), ledgerdomain.CreateEntryRequest{
		OrgID:       orgID,
		PropertyID:  idOrZero(propertyID),
		AmountMinor: req.AmountMinor,
		EntryDate:   *entryDate,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (s *Server) ListLedgerEntries(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	propertyID, err := optionalIDParam(c.Query("property_id"), "property")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_time", "invalid time"))
		return
	}
	to, err := parseOptionalTime(c.Query("to"), false)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_time", "invalid time"))
		return
	}

	items, err := s.ledgerSvc.List(c.Request.Context(), ledgerdomain.ListFilter{
		OrgID:      orgID,
		PropertyID: idOrZero(propertyID),
		From:       from,
		To:         to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) DeleteLedgerEntry(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.ledgerSvc.Delete(c.Request.Context(), orgID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	noContent(c)
}
