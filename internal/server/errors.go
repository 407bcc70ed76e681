package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/propbill/internal/audit/domain"
	"github.com/smallbiznis/propbill/internal/authorization"
	bookingdomain "github.com/smallbiznis/propbill/internal/booking/domain"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	kpidomain "github.com/smallbiznis/propbill/internal/kpi/domain"
	ledgerdomain "github.com/smallbiznis/propbill/internal/ledger/domain"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	paymentdomain "github.com/smallbiznis/propbill/internal/payment/domain"
	"github.com/smallbiznis/propbill/internal/period"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	"github.com/smallbiznis/propbill/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// validationErrors lists the domain sentinels surfaced as 400s. Their text is
// the error code; the field is the code without its "invalid_" prefix.
var validationErrors = []error{
	ErrInvalidRequest,
	period.ErrInvalidMonth,
	invoicedomain.ErrInvalidOrganization,
	invoicedomain.ErrInvalidMonth,
	invoicedomain.ErrInvalidInvoiceID,
	invoicedomain.ErrInvalidStatus,
	invoicedomain.ErrInvalidStatusTransition,
	invoicedomain.ErrInvalidPageToken,
	paymentdomain.ErrInvalidOrganization,
	paymentdomain.ErrInvalidInvoice,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidMethod,
	kpidomain.ErrInvalidOrganization,
	kpidomain.ErrInvalidMonth,
	kpidomain.ErrInvalidMonths,
	feeplandomain.ErrInvalidOrganization,
	feeplandomain.ErrInvalidTier,
	feeplandomain.ErrInvalidEffectiveDate,
	feeplandomain.ErrInvalidTargetDate,
	propertydomain.ErrInvalidOrganization,
	propertydomain.ErrInvalidName,
	propertydomain.ErrInvalidProperty,
	ledgerdomain.ErrInvalidOrganization,
	ledgerdomain.ErrInvalidProperty,
	ledgerdomain.ErrInvalidEntryDate,
	ledgerdomain.ErrInvalidTimeRange,
	bookingdomain.ErrInvalidOrganization,
	bookingdomain.ErrInvalidProperty,
	bookingdomain.ErrInvalidDates,
	bookingdomain.ErrInvalidStatus,
	bookingdomain.ErrInvalidStatusTransition,
	organizationdomain.ErrInvalidName,
	organizationdomain.ErrInvalidCurrency,
	organizationdomain.ErrInvalidUser,
	organizationdomain.ErrInvalidOrganization,
	organizationdomain.ErrInvalidEmail,
	organizationdomain.ErrInvalidRole,
	auditdomain.ErrInvalidOrganization,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
	auditdomain.ErrInvalidTargetType,
	auditdomain.ErrInvalidActorType,
	authorization.ErrInvalidOrganization,
	authorization.ErrInvalidObject,
	authorization.ErrInvalidAction,
}

var notFoundErrors = []error{
	ErrNotFound,
	invoicedomain.ErrInvoiceNotFound,
	paymentdomain.ErrPaymentNotFound,
	propertydomain.ErrPropertyNotFound,
	ledgerdomain.ErrEntryNotFound,
	bookingdomain.ErrBookingNotFound,
	organizationdomain.ErrOrganizationNotFound,
	gorm.ErrRecordNotFound,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:      "rate_limited",
			Message:   "too many requests",
			Retryable: true,
		}
	case errors.Is(err, ErrServiceUnavailable),
		db.IsUnavailableErr(err):
		return http.StatusServiceUnavailable, errorPayload{
			Type:      "service_unavailable",
			Message:   "service unavailable",
			Retryable: true,
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code written to request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorCode(err error) (string, bool) {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

func isNotFoundError(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_status_transition":
		return "status transition not allowed"
	default:
		return "invalid value"
	}
}
