package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/models"
	"github.com/smarttransit/bus-ticketing/pkg/payment"
)

// Routing keys for booking lifecycle events
const (
	EventBookingCreated  = "booking.created"
	EventBookingPaid     = "booking.paid"
	EventBookingRefunded = "booking.refunded"
	EventBookingBoarded  = "booking.boarded"
)

// BusStore is the bus lookup the workflow needs
type BusStore interface {
	GetByID(ctx context.Context, id string) (*models.Bus, error)
}

// BookingStore persists bookings. Status changes are conditional on the current status.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByIDWithBus(ctx context.Context, id string) (*models.Booking, error)
	OccupiedSeats(ctx context.Context, busID, travelDate string) ([]int, error)
	SetOrderID(ctx context.Context, id, orderID string) (bool, error)
	MarkPaid(ctx context.Context, id, orderID, paymentID string) (bool, error)
	MarkPaidIfSeatsFree(ctx context.Context, id, orderID, paymentID string) (bool, []int, error)
	TransitionStatus(ctx context.Context, id string, to models.BookingStatus, from ...models.BookingStatus) (bool, error)
	ListByEmail(ctx context.Context, email string) ([]models.Booking, error)
	RevenueStats(ctx context.Context, busID, travelDate *string) (*models.RevenueStats, error)
}

// SeatHoldStore manages optional short-lived seat holds
type SeatHoldStore interface {
	Acquire(ctx context.Context, bookingID, busID, travelDate string, seats []int, expiresAt time.Time) ([]int, error)
	ReleaseForBooking(ctx context.Context, bookingID string) (int, error)
}

// PaymentGateway creates orders, verifies checkout signatures and issues refunds
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, receipt string) (*payment.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*payment.Order, error)
	Refund(ctx context.Context, paymentID string, amountMinor int64) (*payment.Refund, error)
	VerifySignature(orderID, paymentID, signature string) bool
	Currency() string
}

// PaymentAuditLog records payment events
type PaymentAuditLog interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
	HasEvent(ctx context.Context, paymentID string, eventType models.PaymentEventType) (bool, error)
}

// EventPublisher publishes booking lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// BookingConfig holds workflow tunables
type BookingConfig struct {
	CancelWindow     time.Duration
	StrictBoarding   bool
	SeatHoldsEnabled bool
	SeatHoldTTL      time.Duration
	Location         *time.Location
}

// DefaultBookingConfig returns the stock workflow settings
func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		CancelWindow:   30 * time.Minute,
		StrictBoarding: false,
		SeatHoldTTL:    10 * time.Minute,
		Location:       time.Local,
	}
}

// BookingEvent is the payload published on every lifecycle transition
type BookingEvent struct {
	BookingID   string               `json:"bookingId"`
	BusID       string               `json:"busId"`
	TravelDate  string               `json:"travelDate"`
	SeatNumbers models.SeatNumbers   `json:"seatNumbers"`
	Amount      float64              `json:"amount"`
	Status      models.BookingStatus `json:"status"`
	PaymentID   *string              `json:"paymentId,omitempty"`
	OccurredAt  time.Time            `json:"occurredAt"`
}

// BookingService orchestrates seat inventory, payment and the booking lifecycle
type BookingService struct {
	buses    BusStore
	bookings BookingStore
	holds    SeatHoldStore
	gateway  PaymentGateway
	audits   PaymentAuditLog
	events   EventPublisher
	config   BookingConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewBookingService creates a new BookingService. holds may be nil when seat holds are disabled.
func NewBookingService(
	buses BusStore,
	bookings BookingStore,
	holds SeatHoldStore,
	gateway PaymentGateway,
	audits PaymentAuditLog,
	events EventPublisher,
	cfg BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	defaults := DefaultBookingConfig()
	if cfg.CancelWindow <= 0 {
		cfg.CancelWindow = defaults.CancelWindow
	}
	if cfg.SeatHoldTTL <= 0 {
		cfg.SeatHoldTTL = defaults.SeatHoldTTL
	}
	if cfg.Location == nil {
		cfg.Location = defaults.Location
	}
	if holds == nil {
		cfg.SeatHoldsEnabled = false
	}

	return &BookingService{
		buses:    buses,
		bookings: bookings,
		holds:    holds,
		gateway:  gateway,
		audits:   audits,
		events:   events,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// OccupiedSeats returns the seats sold (Paid or Boarded) on a bus for a travel date
func (s *BookingService) OccupiedSeats(ctx context.Context, busID, travelDate string) ([]int, error) {
	if _, err := uuid.Parse(busID); err != nil {
		return nil, validationError("invalid busId")
	}
	if _, err := models.ParseTravelDate(travelDate); err != nil {
		return nil, validationError("%v", err)
	}

	return s.bookings.OccupiedSeats(ctx, busID, travelDate)
}

// InitBooking creates a Pending booking priced by the server.
// Unless seat holds are enabled no seat is reserved here, so two customers may
// both reach Pending (and later Paid) for the same seat.
func (s *BookingService) InitBooking(ctx context.Context, req *models.InitBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError("%v", err)
	}
	if req.TravelDate < s.today() {
		return nil, validationError("travel date %s is in the past", req.TravelDate)
	}

	bus, err := s.getBus(ctx, req.BusID)
	if err != nil {
		return nil, err
	}

	fare := roundMoney(float64(len(req.SeatNumbers)) * bus.Price)
	if req.Amount != 0 && toMinor(req.Amount) != toMinor(fare) {
		return nil, fmt.Errorf("%w: expected %.2f for %d seats, got %.2f", ErrAmountMismatch, fare, len(req.SeatNumbers), req.Amount)
	}

	booking := &models.Booking{
		ID:            uuid.New().String(),
		BusID:         bus.ID,
		SeatNumbers:   models.SeatNumbers(req.SeatNumbers),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: req.NormalizedPhone(),
		TravelDate:    req.TravelDate,
		Amount:        fare,
	}

	if s.config.SeatHoldsEnabled {
		expiresAt := s.now().Add(s.config.SeatHoldTTL)
		taken, err := s.holds.Acquire(ctx, booking.ID, booking.BusID, booking.TravelDate, req.SeatNumbers, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("failed to hold seats: %w", err)
		}
		if len(taken) > 0 {
			return nil, &SeatUnavailableError{Seats: taken}
		}
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		s.releaseHolds(ctx, booking.ID)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"bus_id":      booking.BusID,
		"travel_date": booking.TravelDate,
		"seats":       booking.SeatNumbers,
		"amount":      booking.Amount,
	}).Info("Booking initiated")

	s.publish(ctx, EventBookingCreated, booking)
	return booking, nil
}

// CreatePaymentOrder requests a gateway order for amount (major units).
// With a bookingID the amount must equal the booking's fare and the order is bound to it.
func (s *BookingService) CreatePaymentOrder(ctx context.Context, req *models.CreateOrderRequest) (*payment.Order, error) {
	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, validationError("amount must be a positive number")
	}

	var booking *models.Booking
	receipt := ""
	if req.BookingID != "" {
		var err error
		booking, err = s.getBooking(ctx, req.BookingID)
		if err != nil {
			return nil, err
		}
		if booking.Status != models.BookingStatusPending {
			return nil, fmt.Errorf("%w: booking is %s", ErrStatusConflict, booking.Status)
		}
		if toMinor(req.Amount) != toMinor(booking.Amount) {
			return nil, fmt.Errorf("%w: booking amount is %.2f", ErrAmountMismatch, booking.Amount)
		}
		receipt = "bk_" + booking.ID
	}

	amountMinor := toMinor(req.Amount)
	order, err := s.gateway.CreateOrder(ctx, amountMinor, receipt)
	if err != nil {
		s.recordAudit(ctx, s.newAudit(models.PaymentEventOrderFailed, models.PaymentSourceGatewayAPI).
			SetBooking(req.BookingID).
			SetAmount(amountMinor, s.gateway.Currency()).
			SetHTTPStatus(gatewayStatusCode(err)).
			SetError(err.Error(), nil))
		return nil, gatewayError("create payment order", err)
	}

	s.recordAudit(ctx, s.newAudit(models.PaymentEventOrderCreated, models.PaymentSourceGatewayAPI).
		SetBooking(req.BookingID).
		SetOrderID(order.ID).
		SetAmount(order.Amount, order.Currency).
		SetGatewayResult(order.Status, order.Receipt))

	if booking != nil {
		ok, err := s.bookings.SetOrderID(ctx, booking.ID, order.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"order_id":   order.ID,
			}).Warn("Booking left Pending while its payment order was created")
			return nil, fmt.Errorf("%w: booking is no longer Pending", ErrStatusConflict)
		}
	}

	return order, nil
}

// VerifyPayment checks the checkout signature and moves the booking from Pending to Paid.
// A mismatch leaves the booking untouched and returns ErrInvalidSignature.
// Repeating a successful verification with the same payment id is a no-op.
func (s *BookingService) VerifyPayment(ctx context.Context, req *models.VerifyPaymentRequest) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}

	if booking.OrderID != nil && *booking.OrderID != req.OrderID {
		return nil, ErrOrderMismatch
	}

	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		s.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"order_id":   req.OrderID,
			"payment_id": req.PaymentID,
		}).Warn("Payment signature mismatch")

		s.recordAudit(ctx, s.newAudit(models.PaymentEventSignatureMismatch, models.PaymentSourceCustomer).
			SetBooking(booking.ID).
			SetOrderID(req.OrderID).
			SetPaymentID(req.PaymentID))
		return nil, ErrInvalidSignature
	}

	if booking.Status == models.BookingStatusPaid && booking.PaymentID != nil && *booking.PaymentID == req.PaymentID {
		return booking, nil
	}
	if booking.Status != models.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking is %s", ErrStatusConflict, booking.Status)
	}

	// An order created without a booking must still have been for this booking's fare
	if booking.OrderID == nil {
		order, err := s.gateway.FetchOrder(ctx, req.OrderID)
		if err != nil {
			return nil, gatewayError("fetch payment order", err)
		}
		if order.Amount != toMinor(booking.Amount) {
			s.logger.WithFields(logrus.Fields{
				"booking_id":   booking.ID,
				"order_id":     order.ID,
				"order_amount": order.Amount,
				"amount":       booking.Amount,
			}).Warn("Payment order amount differs from booking fare")
			return nil, fmt.Errorf("%w: order amount %d does not match booking", ErrAmountMismatch, order.Amount)
		}
	}

	s.recordAudit(ctx, s.newAudit(models.PaymentEventSignatureVerified, models.PaymentSourceCustomer).
		SetBooking(booking.ID).
		SetOrderID(req.OrderID).
		SetPaymentID(req.PaymentID).
		SetAmount(toMinor(booking.Amount), s.gateway.Currency()))

	var ok bool
	if s.config.SeatHoldsEnabled {
		// The hold may have expired and the seats been sold to someone else meanwhile
		var taken []int
		ok, taken, err = s.bookings.MarkPaidIfSeatsFree(ctx, booking.ID, req.OrderID, req.PaymentID)
		if err == nil && len(taken) > 0 {
			return nil, s.rejectSoldSeats(ctx, booking, req.PaymentID, taken)
		}
	} else {
		ok, err = s.bookings.MarkPaid(ctx, booking.ID, req.OrderID, req.PaymentID)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with a concurrent verify; succeed only if it recorded this payment
		current, err := s.getBooking(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.BookingStatusPaid && current.PaymentID != nil && *current.PaymentID == req.PaymentID {
			return current, nil
		}
		return nil, fmt.Errorf("%w: booking is %s", ErrStatusConflict, current.Status)
	}

	booking.Status = models.BookingStatusPaid
	booking.OrderID = &req.OrderID
	booking.PaymentID = &req.PaymentID

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": req.PaymentID,
	}).Info("Booking paid")

	s.publish(ctx, EventBookingPaid, booking)
	return booking, nil
}

// CancelBooking refunds a Paid booking within the cancellation window of its creation.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Status != models.BookingStatusPaid {
		return nil, fmt.Errorf("%w: booking is %s", ErrNotEligible, booking.Status)
	}

	if elapsed := s.now().Sub(booking.BookingDate); elapsed > s.config.CancelWindow {
		return nil, fmt.Errorf("%w: booked %s ago, limit is %s", ErrCancelWindowExpired,
			elapsed.Truncate(time.Minute), s.config.CancelWindow)
	}

	if booking.PaymentID == nil {
		return nil, ErrNoPayment
	}

	if err := s.refund(ctx, booking, models.PaymentSourceCustomer, models.BookingStatusPaid); err != nil {
		return nil, err
	}

	return booking, nil
}

// AdminRefund refunds a Paid or Boarded booking regardless of elapsed time
func (s *BookingService) AdminRefund(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.PaymentID == nil {
		return nil, ErrNoPayment
	}

	if booking.Status != models.BookingStatusPaid && booking.Status != models.BookingStatusBoarded {
		return nil, fmt.Errorf("%w: booking is %s", ErrStatusConflict, booking.Status)
	}

	if err := s.refund(ctx, booking, models.PaymentSourceAdmin, models.BookingStatusPaid, models.BookingStatusBoarded); err != nil {
		return nil, err
	}

	return booking, nil
}

// ConfirmBoarding marks a booking as Boarded. In strict mode the booking must be
// Paid and travelling today; otherwise any Pending or Paid booking may board.
func (s *BookingService) ConfirmBoarding(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	from := []models.BookingStatus{models.BookingStatusPending, models.BookingStatusPaid}
	if s.config.StrictBoarding {
		from = []models.BookingStatus{models.BookingStatusPaid}
	}

	if !containsStatus(from, booking.Status) {
		return nil, fmt.Errorf("%w: booking is %s", ErrStatusConflict, booking.Status)
	}

	if s.config.StrictBoarding && booking.TravelDate != s.today() {
		return nil, fmt.Errorf("%w: travel date is %s", ErrNotBoardingDay, booking.TravelDate)
	}

	ok, err := s.bookings.TransitionStatus(ctx, booking.ID, models.BookingStatusBoarded, from...)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking changed while boarding", ErrStatusConflict)
	}

	booking.Status = models.BookingStatusBoarded
	s.logger.WithField("booking_id", booking.ID).Info("Passenger boarded")
	s.publish(ctx, EventBookingBoarded, booking)
	return booking, nil
}

// GetBooking returns a booking with its bus details
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	if _, err := uuid.Parse(bookingID); err != nil {
		return nil, ErrBookingNotFound
	}

	booking, err := s.bookings.GetByIDWithBus(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// BookingsByEmail returns a customer's booking history, matched case-insensitively
func (s *BookingService) BookingsByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, validationError("email is required")
	}
	return s.bookings.ListByEmail(ctx, email)
}

// RevenueStats aggregates revenue, optionally for one bus and/or one travel date
func (s *BookingService) RevenueStats(ctx context.Context, busID, travelDate string) (*models.RevenueStats, error) {
	var busFilter, dateFilter *string
	if busID != "" {
		if _, err := uuid.Parse(busID); err != nil {
			return nil, validationError("invalid busId")
		}
		busFilter = &busID
	}
	if travelDate != "" {
		if _, err := models.ParseTravelDate(travelDate); err != nil {
			return nil, validationError("%v", err)
		}
		dateFilter = &travelDate
	}

	return s.bookings.RevenueStats(ctx, busFilter, dateFilter)
}

// refund issues the gateway refund at most once per payment, then moves the booking
// to Refunded from one of the allowed statuses
func (s *BookingService) refund(ctx context.Context, booking *models.Booking, source models.PaymentEventSource, from ...models.BookingStatus) error {
	paymentID := *booking.PaymentID

	if err := s.refundPayment(ctx, booking.ID, paymentID, toMinor(booking.Amount), source); err != nil {
		return err
	}

	ok, err := s.bookings.TransitionStatus(ctx, booking.ID, models.BookingStatusRefunded, from...)
	if err != nil {
		return err
	}
	if !ok {
		// Money is back with the customer but the booking moved on; an admin refund
		// applies the status without calling the gateway again
		current, _ := s.bookings.GetByID(ctx, booking.ID)
		currentStatus := booking.Status
		if current != nil {
			currentStatus = current.Status
		}
		msg := fmt.Sprintf("refund completed but booking is %s", currentStatus)
		s.logger.WithFields(logrus.Fields{
			"booking_id": booking.ID,
			"payment_id": paymentID,
			"status":     currentStatus,
		}).Error("Refund issued but booking status not updated, reconciliation required")
		s.recordAudit(ctx, s.newAudit(models.PaymentEventRefundUnapplied, models.PaymentSourceBackend).
			SetBooking(booking.ID).
			SetPaymentID(paymentID).
			SetError(msg, nil))
		return fmt.Errorf("%w: booking changed during refund", ErrStatusConflict)
	}

	booking.Status = models.BookingStatusRefunded
	s.releaseHolds(ctx, booking.ID)

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": paymentID,
		"source":     source,
	}).Info("Booking refunded")

	s.publish(ctx, EventBookingRefunded, booking)
	return nil
}

// refundPayment calls the gateway unless the audit log already has a completed refund
func (s *BookingService) refundPayment(ctx context.Context, bookingID, paymentID string, amountMinor int64, source models.PaymentEventSource) error {
	done, err := s.audits.HasEvent(ctx, paymentID, models.PaymentEventRefundCompleted)
	if err != nil {
		return err
	}
	if done {
		s.logger.WithField("payment_id", paymentID).Warn("Refund already completed, skipping gateway call")
		return nil
	}

	s.recordAudit(ctx, s.newAudit(models.PaymentEventRefundInitiated, source).
		SetBooking(bookingID).
		SetPaymentID(paymentID).
		SetAmount(amountMinor, s.gateway.Currency()))

	refund, err := s.gateway.Refund(ctx, paymentID, amountMinor)
	if err != nil {
		s.recordAudit(ctx, s.newAudit(models.PaymentEventRefundFailed, models.PaymentSourceGatewayAPI).
			SetBooking(bookingID).
			SetPaymentID(paymentID).
			SetHTTPStatus(gatewayStatusCode(err)).
			SetError(err.Error(), nil))

		if errors.Is(err, payment.ErrRefundInProgress) {
			return fmt.Errorf("%w: refund already in progress", ErrStatusConflict)
		}
		return gatewayError("refund payment", err)
	}

	s.recordAudit(ctx, s.newAudit(models.PaymentEventRefundCompleted, models.PaymentSourceGatewayAPI).
		SetBooking(bookingID).
		SetPaymentID(paymentID).
		SetAmount(refund.Amount, s.gateway.Currency()).
		SetGatewayResult(refund.Status, refund.ID))
	return nil
}

// rejectSoldSeats handles a verified payment for seats that were sold after this
// booking's hold lapsed. The booking stays Pending and the payment is refunded.
func (s *BookingService) rejectSoldSeats(ctx context.Context, booking *models.Booking, paymentID string, taken []int) error {
	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"payment_id": paymentID,
		"seats":      taken,
	}).Error("Payment received for seats already sold, refunding")

	s.recordAudit(ctx, s.newAudit(models.PaymentEventSeatConflict, models.PaymentSourceBackend).
		SetBooking(booking.ID).
		SetPaymentID(paymentID).
		SetAmount(toMinor(booking.Amount), s.gateway.Currency()).
		SetError(fmt.Sprintf("seats %v already sold", taken), nil))

	s.releaseHolds(ctx, booking.ID)

	if err := s.refundPayment(ctx, booking.ID, paymentID, toMinor(booking.Amount), models.PaymentSourceBackend); err != nil {
		s.logger.WithError(err).WithField("payment_id", paymentID).Error("Refund for unsellable seats failed, manual refund required")
	}

	return &SeatUnavailableError{Seats: taken}
}

func (s *BookingService) getBus(ctx context.Context, busID string) (*models.Bus, error) {
	if _, err := uuid.Parse(busID); err != nil {
		return nil, ErrBusNotFound
	}
	bus, err := s.buses.GetByID(ctx, busID)
	if err != nil {
		return nil, err
	}
	if bus == nil {
		return nil, ErrBusNotFound
	}
	return bus, nil
}

func (s *BookingService) getBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	if _, err := uuid.Parse(bookingID); err != nil {
		return nil, ErrBookingNotFound
	}
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

func (s *BookingService) releaseHolds(ctx context.Context, bookingID string) {
	if !s.config.SeatHoldsEnabled {
		return
	}
	if _, err := s.holds.ReleaseForBooking(ctx, bookingID); err != nil {
		s.logger.WithError(err).WithField("booking_id", bookingID).Warn("Failed to release seat holds")
	}
}

func (s *BookingService) newAudit(eventType models.PaymentEventType, source models.PaymentEventSource) *models.PaymentAudit {
	audit := models.NewPaymentAudit(eventType, source)
	audit.CreatedAt = s.now()
	return audit
}

// recordAudit never fails the request; the gateway call it describes already happened
func (s *BookingService) recordAudit(ctx context.Context, audit *models.PaymentAudit) {
	meta := requestMetaFrom(ctx)
	audit.SetMetadata(meta.IPAddress, meta.UserAgent, meta.DeviceType)
	if err := s.audits.Log(ctx, audit); err != nil {
		s.logger.WithError(err).WithField("event_type", audit.EventType).Error("Payment audit not recorded")
	}
}

func (s *BookingService) publish(ctx context.Context, routingKey string, booking *models.Booking) {
	event := BookingEvent{
		BookingID:   booking.ID,
		BusID:       booking.BusID,
		TravelDate:  booking.TravelDate,
		SeatNumbers: booking.SeatNumbers,
		Amount:      booking.Amount,
		Status:      booking.Status,
		PaymentID:   booking.PaymentID,
		OccurredAt:  s.now(),
	}
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"routing_key": routingKey,
			"booking_id":  booking.ID,
		}).Warn("Failed to publish booking event")
	}
}

func (s *BookingService) today() string {
	return s.now().In(s.config.Location).Format(models.TravelDateLayout)
}

func containsStatus(statuses []models.BookingStatus, status models.BookingStatus) bool {
	for _, st := range statuses {
		if st == status {
			return true
		}
	}
	return false
}

// toMinor converts a major-unit amount to minor units (paise)
func toMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func roundMoney(amount float64) float64 {
	return float64(toMinor(amount)) / 100
}

func gatewayStatusCode(err error) int {
	var gwErr *payment.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.StatusCode
	}
	return 0
}
