package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/bus-ticketing/internal/models"
)

// TicketLookup loads a booking with its bus for boarding checks
type TicketLookup interface {
	GetByIDWithBus(ctx context.Context, id string) (*models.Booking, error)
}

// TicketVerificationService classifies scanned booking ids for boarding staff.
// It never changes a booking.
type TicketVerificationService struct {
	bookings       TicketLookup
	location       *time.Location
	requirePayment bool
	now            func() time.Time
}

// NewTicketVerificationService creates a new TicketVerificationService.
// With requirePayment a Pending booking is reported as unpaid instead of boardable.
func NewTicketVerificationService(bookings TicketLookup, location *time.Location, requirePayment bool) *TicketVerificationService {
	if location == nil {
		location = time.Local
	}
	return &TicketVerificationService{
		bookings:       bookings,
		location:       location,
		requirePayment: requirePayment,
		now:            time.Now,
	}
}

// Classify returns the boarding status of a booking.
// Refunded and Boarded take priority over the travel date check.
func (s *TicketVerificationService) Classify(ctx context.Context, bookingID string) (*models.TicketVerification, error) {
	var booking *models.Booking
	if _, err := uuid.Parse(bookingID); err == nil {
		booking, err = s.bookings.GetByIDWithBus(ctx, bookingID)
		if err != nil {
			return nil, err
		}
	}

	status := ClassifyTicket(booking, s.now().In(s.location).Format(models.TravelDateLayout))
	if s.requirePayment && status == models.TicketStatusSuccess && booking.Status != models.BookingStatusPaid {
		status = models.TicketStatusUnpaid
	}
	return &models.TicketVerification{
		Message: status.Message(),
		Status:  status,
		Booking: booking,
	}, nil
}

// ClassifyTicket applies the boarding rules to a booking for the given YYYY-MM-DD day
func ClassifyTicket(booking *models.Booking, today string) models.TicketStatus {
	switch {
	case booking == nil:
		return models.TicketStatusInvalid
	case booking.Status == models.BookingStatusRefunded:
		return models.TicketStatusRefunded
	case booking.Status == models.BookingStatusBoarded:
		return models.TicketStatusBoardedAlready
	case booking.TravelDate < today:
		return models.TicketStatusExpired
	case booking.TravelDate > today:
		return models.TicketStatusFuture
	default:
		return models.TicketStatusSuccess
	}
}
