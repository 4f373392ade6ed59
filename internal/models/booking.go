package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smarttransit/bus-ticketing/pkg/validator"
)

var phoneValidator = validator.NewPhoneValidator()

// TravelDateLayout is the calendar date format used for travel dates
const TravelDateLayout = "2006-01-02"

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending  BookingStatus = "Pending"  // Created at checkout, holds no seat
	BookingStatusPaid     BookingStatus = "Paid"     // Payment signature verified
	BookingStatusBoarded  BookingStatus = "Boarded"  // Passenger confirmed on board
	BookingStatusRefunded BookingStatus = "Refunded" // Refund issued through the gateway
)

// OccupiesSeats reports whether a booking in this status takes its seats off sale
func (s BookingStatus) OccupiesSeats() bool {
	return s == BookingStatusPaid || s == BookingStatusBoarded
}

// CanTransition reports whether moving from s to next respects the lifecycle
// Pending -> Paid -> {Boarded | Refunded}, Boarded -> Refunded.
// Pending -> Boarded is only reachable when boarding checks are relaxed.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusPaid || next == BookingStatusBoarded
	case BookingStatusPaid:
		return next == BookingStatusBoarded || next == BookingStatusRefunded
	case BookingStatusBoarded:
		return next == BookingStatusRefunded
	default:
		return false
	}
}

// Booking represents one seat reservation on a bus for a travel date
type Booking struct {
	ID            string        `json:"id" db:"id"`
	BusID         string        `json:"busId" db:"bus_id"`
	SeatNumbers   SeatNumbers   `json:"seatNumbers" db:"seat_numbers"`
	CustomerName  string        `json:"customerName" db:"customer_name"`
	CustomerEmail string        `json:"customerEmail" db:"customer_email"`
	CustomerPhone string        `json:"customerPhone" db:"customer_phone"`
	TravelDate    string        `json:"travelDate" db:"travel_date"` // YYYY-MM-DD
	BookingDate   time.Time     `json:"bookingDate" db:"booking_date"`
	PaymentID     *string       `json:"paymentId,omitempty" db:"payment_id"`
	OrderID       *string       `json:"orderId,omitempty" db:"order_id"`
	Amount        float64       `json:"amount" db:"amount"`
	Status        BookingStatus `json:"status" db:"status"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`

	// Joined bus details, populated on history and lookup queries
	Bus *Bus `json:"bus,omitempty" db:"-"`
}

// InitBookingRequest is the checkout payload that creates a Pending booking
type InitBookingRequest struct {
	BusID         string  `json:"busId" binding:"required"`
	SeatNumbers   []int   `json:"seatNumbers" binding:"required"`
	CustomerEmail string  `json:"customerEmail" binding:"required,email"`
	CustomerName  string  `json:"customerName" binding:"required"`
	CustomerPhone string  `json:"customerPhone" binding:"required"`
	Amount        float64 `json:"amount"` // Optional, must match the server fare when set
	TravelDate    string  `json:"travelDate" binding:"required"`
}

// Validate validates the InitBookingRequest
func (req *InitBookingRequest) Validate() error {
	if len(req.SeatNumbers) == 0 {
		return errors.New("seatNumbers must not be empty")
	}

	seen := make(map[int]struct{}, len(req.SeatNumbers))
	for _, seat := range req.SeatNumbers {
		if seat <= 0 {
			return fmt.Errorf("invalid seat number: %d", seat)
		}
		if _, dup := seen[seat]; dup {
			return fmt.Errorf("duplicate seat number: %d", seat)
		}
		seen[seat] = struct{}{}
	}

	if strings.TrimSpace(req.CustomerName) == "" {
		return errors.New("customerName is required")
	}

	if _, err := phoneValidator.Validate(req.CustomerPhone); err != nil {
		return fmt.Errorf("invalid customerPhone: %w", err)
	}

	if _, err := ParseTravelDate(req.TravelDate); err != nil {
		return err
	}

	if req.Amount < 0 {
		return errors.New("amount must not be negative")
	}

	return nil
}

// NormalizedPhone returns the customer phone without separators
func (req *InitBookingRequest) NormalizedPhone() string {
	return phoneValidator.Sanitize(req.CustomerPhone)
}

// VerifyPaymentRequest carries the gateway checkout callback fields
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
	BookingID string `json:"bookingId" binding:"required"`
}

// CreateOrderRequest asks for a gateway order in major currency units.
// When BookingID is set the order is bound to that booking.
type CreateOrderRequest struct {
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	BookingID string  `json:"bookingId,omitempty"`
}

// RevenueStats aggregates revenue over Paid and Boarded bookings
type RevenueStats struct {
	BusID            *string `json:"busId,omitempty"`
	TravelDate       *string `json:"date,omitempty"`
	TotalRevenue     float64 `json:"totalRevenue" db:"total_revenue"`
	TotalBookings    int     `json:"totalBookings" db:"total_bookings"`
	TotalSeats       int     `json:"totalSeats" db:"total_seats"`
	PaidBookings     int     `json:"paidBookings" db:"paid_bookings"`
	BoardedBookings  int     `json:"boardedBookings" db:"boarded_bookings"`
	RefundedBookings int     `json:"refundedBookings" db:"refunded_bookings"`
	RefundedAmount   float64 `json:"refundedAmount" db:"refunded_amount"`
}

// ParseTravelDate parses a YYYY-MM-DD travel date
func ParseTravelDate(s string) (time.Time, error) {
	t, err := time.Parse(TravelDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid travel date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}
