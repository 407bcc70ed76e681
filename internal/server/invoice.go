package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	"github.com/smallbiznis/propbill/internal/period"
	"github.com/smallbiznis/propbill/pkg/db/pagination"
	"go.uber.org/zap"
)

type generateInvoiceRequest struct {
	Month      string `json:"month" binding:"required,yearmonth"`
	PropertyID string `json:"property_id"`
}

type setInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type listInvoicesQuery struct {
	pagination.Pagination
	PropertyID string `form:"property_id"`
	UserID     string `form:"user_id"`
	Status     string `form:"status"`
	MonthFrom  string `form:"month_from"`
	MonthTo    string `form:"month_to"`
}

// GenerateInvoice returns 201 when this call created the invoice and 200 when
// it already existed.
func (s *Server) GenerateInvoice(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	var req generateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("month", "invalid_month", "month must be YYYY-MM"))
		return
	}
	month, err := period.ParseMonth(req.Month)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	propertyID, err := optionalIDParam(req.PropertyID, "property")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.invoiceSvc.GenerateOrFetch(c.Request.Context(), invoicedomain.GenerateRequest{
		OrgID:       orgID,
		Month:       month,
		PropertyID:  idOrZero(propertyID),
		GeneratedBy: "api",
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
		s.notifyCreated(c, result.Invoice)
	}
	c.JSON(status, result)
}

func (s *Server) notifyCreated(c *gin.Context, invoice invoicedomain.Invoice) {
	if s.billing != nil && !s.billing.Get().NotifyOnCreate {
		return
	}
	if err := s.invoiceSvc.NotifyCreated(c.Request.Context(), invoice); err != nil {
		s.log.Warn("invoice notification failed",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Server) ListInvoices(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	var query listInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := invoicedomain.ListInvoiceRequest{
		Pagination: query.Pagination,
		OrgID:      orgID,
	}
	var err error
	if req.PropertyID, err = optionalIDParam(query.PropertyID, "property"); err != nil {
		AbortWithError(c, err)
		return
	}
	if req.UserID, err = optionalIDParam(query.UserID, "user"); err != nil {
		AbortWithError(c, err)
		return
	}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := invoicedomain.InvoiceStatus(strings.ToLower(raw))
		req.Status = &status
	}
	if req.MonthFrom, err = parseOptionalMonth(query.MonthFrom); err != nil {
		AbortWithError(c, newValidationError("month_from", "invalid_month", "month must be YYYY-MM"))
		return
	}
	if req.MonthTo, err = parseOptionalMonth(query.MonthTo); err != nil {
		AbortWithError(c, newValidationError("month_to", "invalid_month", "month must be YYYY-MM"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, err := s.invoiceSvc.Get(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	body, err := s.invoiceSvc.RenderPDF(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"invoice-%s.pdf\"", id.String()))
	c.Data(http.StatusOK, "application/pdf", body)
}

func (s *Server) SetInvoiceStatus(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req setInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invoicedomain.ErrInvalidStatus)
		return
	}

	status := invoicedomain.InvoiceStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	item, err := s.invoiceSvc.SetStatus(c.Request.Context(), orgID, id, status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.invoiceSvc.Delete(c.Request.Context(), orgID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	noContent(c)
}
