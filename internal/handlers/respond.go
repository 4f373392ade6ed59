package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/database"
	"github.com/smarttransit/bus-ticketing/internal/services"
)

// errorMapping ties a workflow error to its HTTP status and machine-readable code
type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: the first match wins
var errorMappings = []errorMapping{
	{services.ErrValidation, http.StatusBadRequest, "validation_error"},
	{services.ErrAmountMismatch, http.StatusBadRequest, "amount_mismatch"},
	{services.ErrInvalidSignature, http.StatusBadRequest, "invalid_signature"},
	{services.ErrOrderMismatch, http.StatusBadRequest, "order_mismatch"},
	{services.ErrNotEligible, http.StatusBadRequest, "not_eligible"},
	{services.ErrCancelWindowExpired, http.StatusBadRequest, "cancel_window_expired"},
	{services.ErrNoPayment, http.StatusBadRequest, "no_payment"},
	{services.ErrBusNotFound, http.StatusNotFound, "bus_not_found"},
	{services.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{services.ErrSeatUnavailable, http.StatusConflict, "seat_unavailable"},
	{services.ErrStatusConflict, http.StatusConflict, "status_conflict"},
	{services.ErrNotBoardingDay, http.StatusConflict, "not_boarding_day"},
	{database.ErrBusHasBookings, http.StatusConflict, "bus_has_bookings"},
	{database.ErrDuplicatePayment, http.StatusConflict, "duplicate_payment"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
}

// respondError writes {success:false, error, message}. Gateway and internal
// failures are logged in full and answered with a generic message.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{
				"success": false,
				"error":   m.code,
				"message": clientMessage(err),
			})
			return
		}
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	})

	if errors.Is(err, services.ErrPaymentGateway) {
		entry.Error("Payment gateway request failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   "payment_gateway_error",
			"message": "Payment provider is unavailable, please try again later",
		})
		return
	}

	entry.Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "internal_error",
		"message": "Something went wrong, please try again later",
	})
}

// respondBindError answers a request body that could not be decoded
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "validation_error",
		"message": "Invalid request body: " + err.Error(),
	})
}

// clientMessage capitalises the wrapped error text for display
func clientMessage(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
