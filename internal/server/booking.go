package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/propbill/internal/booking/domain"
)

type createBookingRequest struct {
	PropertyID string `json:"property_id" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	Status     string `json:"status"`
}

type setBookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	propertyID, err := optionalIDParam(req.PropertyID, "property")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	checkIn, err := parseOptionalTime(req.CheckIn, false)
	if err != nil || checkIn == nil {
		AbortWithError(c, bookingdomain.ErrInvalidDates)
		return
	}
	checkOut, err := parseOptionalTime(req.CheckOut, false)
	if err != nil || checkOut == nil {
		AbortWithError(c, bookingdomain.ErrInvalidDates)
		return
	}

	item, err := s.bookingSvc.Create(c.Request.Context(), bookingdomain.CreateBookingRequest{
		OrgID:      orgID,
		PropertyID: idOrZero(propertyID),
		CheckIn:    *checkIn,
		CheckOut:   *checkOut,
		Status:     parseBookingStatus(req.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (s *Server) ListBookings(c *gin.Context) {
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
	status := parseBookingStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		AbortWithError(c, bookingdomain.ErrInvalidStatus)
		return
	}

	items, err := s.bookingSvc.List(c.Request.Context(), bookingdomain.ListFilter{
		OrgID:      orgID,
		PropertyID: idOrZero(propertyID),
		Status:     status,
		From:       from,
		To:         to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) SetBookingStatus(c *gin.Context) {
	orgID, _ := orgIDFromRequest(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req setBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bookingdomain.ErrInvalidStatus)
		return
	}

	item, err := s.bookingSvc.SetStatus(c.Request.Context(), orgID, id, parseBookingStatus(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func parseBookingStatus(raw string) bookingdomain.BookingStatus {
	return bookingdomain.BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
}
