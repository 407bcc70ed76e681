package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/propbill/internal/payment/domain"
)

type applyPaymentRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Method      string `json:"method"`
	PaymentDate string `json:"payment_date"`
}

// ApplyPayment records a payment and returns the updated invoice.
func (s *Server) ApplyPayment(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req applyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	paymentDate, err := parseOptionalTime(req.PaymentDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("payment_date", "invalid_payment_date", "payment_date must be YYYY-MM-DD"))
		return
	}

	invoice, err := s.paymentSvc.ApplyPayment(c.Request.Context(), paymentdomain.ApplyRequest{
		OrgID:       orgID,
		InvoiceID:   invoiceID,
		AmountMinor: req.AmountMinor,
		Method:      req.Method,
		PaymentDate: paymentDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (s *Server) ListPayments(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	items, err := s.paymentSvc.List(c.Request.Context(), orgID, invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

// RemovePayment deletes a payment and returns the invoice it belonged to.
func (s *Server) RemovePayment(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := s.paymentSvc.RemovePayment(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}
