package services

import (
	"errors"
	"fmt"

	"github.com/smarttransit/bus-ticketing/pkg/payment"
)

// Sentinel errors returned by the booking workflow. Handlers map them to HTTP statuses.
var (
	ErrValidation          = errors.New("validation failed")
	ErrBusNotFound         = errors.New("bus not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrAmountMismatch      = errors.New("amount does not match the fare")
	ErrInvalidSignature    = errors.New("payment signature verification failed")
	ErrOrderMismatch       = errors.New("payment order does not belong to this booking")
	ErrStatusConflict      = errors.New("booking status does not allow this action")
	ErrNotEligible         = errors.New("booking is not eligible for cancellation")
	ErrCancelWindowExpired = errors.New("cancellation window expired")
	ErrNoPayment           = errors.New("booking has no payment to refund")
	ErrNotBoardingDay      = errors.New("ticket is not valid for boarding today")
	ErrSeatUnavailable     = errors.New("seats are no longer available")
	ErrInvalidCredentials  = errors.New("invalid email or password")

	// ErrPaymentGateway aliases the adapter's error so errors.Is matches either
	ErrPaymentGateway = payment.ErrGateway
)

// SeatUnavailableError lists seats another booking already holds or owns
type SeatUnavailableError struct {
	Seats []int
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSeatUnavailable, e.Seats)
}

// Is makes errors.Is(err, ErrSeatUnavailable) true
func (e *SeatUnavailableError) Is(target error) bool {
	return target == ErrSeatUnavailable
}

// NewValidationError marks a request validation failure so it matches ErrValidation
func NewValidationError(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func gatewayError(op string, err error) error {
	if errors.Is(err, payment.ErrGateway) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrPaymentGateway, err)
}
