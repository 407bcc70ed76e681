package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	kpidomain "github.com/smallbiznis/propbill/internal/kpi/domain"
	"github.com/smallbiznis/propbill/internal/period"
)

const defaultHistoryMonths = 6

type kpiSnapshotQuery struct {
	Month      string `form:"month" binding:"required,yearmonth"`
	PropertyID string `form:"property_id"`
}

func (s *Server) GetKPISnapshot(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	var query kpiSnapshotQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
		return
	}
	month, err := period.ParseMonth(query.Month)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	propertyID, err := optionalIDParam(query.PropertyID, "property")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	snapshot, err := s.kpiSvc.Snapshot(c.Request.Context(), kpidomain.Scope{
		OrgID:      orgID,
		PropertyID: idOrZero(propertyID),
	}, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetKPIHistory returns org snapshots for the trailing months, oldest first.
func (s *Server) GetKPIHistory(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	months, err := parseOptionalInt(c.Query("months"))
	if err != nil {
		AbortWithError(c, kpidomain.ErrInvalidMonths)
		return
	}
	count := defaultHistoryMonths
	if months != nil {
		count = *months
	}

	items, err := s.kpiSvc.History(c.Request.Context(), orgID, count)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
