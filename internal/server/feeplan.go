package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
)

type upsertFeePlanRequest struct {
	UserID        string `json:"user_id"`
	Tier          string `json:"tier" binding:"required"`
	EffectiveDate string `json:"effective_date" binding:"required"`
}

type reapplyFeeRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) UpsertFeePlan(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	var req upsertFeePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, err := optionalIDParam(req.UserID, "user")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	effective, err := parseOptionalTime(req.EffectiveDate, false)
	if err != nil || effective == nil {
		AbortWithError(c, feeplandomain.ErrInvalidEffectiveDate)
		return
	}

	plan, err := s.feePlanSvc.Upsert(c.Request.Context(), feeplandomain.UpsertRequest{
		OrgID:         orgID,
		UserID:        idOrZero(userID),
		Tier:          req.Tier,
		EffectiveDate: *effective,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}

func (s *Server) ListFeePlans(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	userID, err := optionalIDParam(c.Query("user_id"), "user")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.feePlanSvc.List(c.Request.Context(), orgID, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// ResolveFeePlan previews the plan that prices the given date (default today).
func (s *Server) ResolveFeePlan(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	userID, err := optionalIDParam(c.Query("user_id"), "user")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	target, err := parseOptionalTime(c.Query("date"), false)
	if err != nil {
		AbortWithError(c, feeplandomain.ErrInvalidTargetDate)
		return
	}
	at := s.clock.Now()
	if target != nil {
		at = *target
	}

	resolution, err := s.feePlanSvc.Resolve(c.Request.Context(), orgID, idOrZero(userID), at)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolution)
}

// ReapplyFee re-prices the org's invoices, or one user's when user_id is set.
func (s *Server) ReapplyFee(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	var req reapplyFeeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}
	userID, err := optionalIDParam(req.UserID, "user")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.invoiceSvc.ReapplyFee(c.Request.Context(), orgID, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
