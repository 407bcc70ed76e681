package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/propbill/internal/audit/domain"
	"github.com/smallbiznis/propbill/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	pagination.Pagination
	PropertyID string `form:"property_id"`
	InvoiceID  string `form:"invoice_id"`
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	ActorType  string `form:"actor_type"`
	StartAt    string `form:"start_at"`
	EndAt      string `form:"end_at"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	propertyID, err := optionalIDParam(query.PropertyID, "property_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	invoiceID, err := optionalIDParam(query.InvoiceID, "invoice_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	startAt, err := parseOptionalTime(query.StartAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "invalid start_at"))
		return
	}
	endAt, err := parseOptionalTime(query.EndAt, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "invalid end_at"))
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: query.Pagination,
		PropertyID: idOrZero(propertyID),
		InvoiceID:  idOrZero(invoiceID),
		Action:     strings.TrimSpace(query.Action),
		TargetType: auditdomain.TargetType(strings.TrimSpace(query.TargetType)),
		TargetID:   strings.TrimSpace(query.TargetID),
		ActorType:  strings.TrimSpace(query.ActorType),
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
