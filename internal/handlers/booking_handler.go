package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/models"
	"github.com/smarttransit/bus-ticketing/pkg/payment"
)

// BookingWorkflow is the booking orchestration behind the customer and admin endpoints
type BookingWorkflow interface {
	OccupiedSeats(ctx context.Context, busID, travelDate string) ([]int, error)
	InitBooking(ctx context.Context, req *models.InitBookingRequest) (*models.Booking, error)
	CreatePaymentOrder(ctx context.Context, req *models.CreateOrderRequest) (*payment.Order, error)
	VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	AdminRefund(ctx context.Context, bookingID string) (*models.Booking, error)
	ConfirmBoarding(ctx context.Context, bookingID string) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	BookingsByEmail(ctx context.Context, email string) ([]models.Booking, error)
	RevenueStats(ctx context.Context, busID, travelDate string) (*models.RevenueStats, error)
}

// BookingHandler serves the customer booking endpoints
type BookingHandler struct {
	workflow BookingWorkflow
	logger   *logrus.Logger
}

func NewBookingHandler(workflow BookingWorkflow, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{workflow: workflow, logger: logger}
}

// GetOccupiedSeats returns the sold seat numbers as a flat array
// GET /api/bookings/occupied?busId=&date=
func (h *BookingHandler) GetOccupiedSeats(c *gin.Context) {
	busID, date := c.Query("busId"), c.Query("date")
	if busID == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation_error",
			"message": "busId and date query parameters are required",
		})
		return
	}

	seats, err := h.workflow.OccupiedSeats(c.Request.Context(), busID, date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, seats)
}

// InitBooking creates a Pending booking priced by the server
// POST /api/bookings/init
func (h *BookingHandler) InitBooking(c *gin.Context) {
	var req models.InitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.workflow.InitBooking(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"bookingId": booking.ID,
		"amount":    booking.Amount,
	})
}

// VerifyPayment confirms a checkout signature and marks the booking Paid
// POST /api/bookings/verify
func (h *BookingHandler) VerifyPayment(c *gin.Context) {
	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.workflow.VerifyPayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"bookingId": booking.ID,
		"status":    booking.Status,
	})
}

// CancelBooking refunds a Paid booking inside the cancellation window
// POST /api/bookings/cancel/:bookingId
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	if _, err := h.workflow.CancelBooking(c.Request.Context(), c.Param("bookingId")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Booking cancelled and refund initiated",
	})
}

// GetUserBookings returns a customer's booking history with bus details
// GET /api/bookings/user/:email
func (h *BookingHandler) GetUserBookings(c *gin.Context) {
	bookings, err := h.workflow.BookingsByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// GetBooking returns one booking with its bus
// GET /api/bookings/:bookingId
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.workflow.GetBooking(c.Request.Context(), c.Param("bookingId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}
