package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smarttransit/bus-ticketing/internal/models"
)

// ErrDuplicatePayment is returned when a payment id is already stored on another booking
var ErrDuplicatePayment = errors.New("payment already recorded on another booking")

const uniqueViolation = "23505"

// bookingColumns selects a booking from alias b with the travel date rendered as YYYY-MM-DD
const bookingColumns = `b.id, b.bus_id, b.seat_numbers, b.customer_name, b.customer_email,
		b.customer_phone, to_char(b.travel_date, 'YYYY-MM-DD') AS travel_date, b.booking_date,
		b.payment_id, b.order_id, b.amount, b.status, b.updated_at`

const joinedBusColumns = `bus.name AS bus_name, bus.bus_number AS bus_number, bus.origin AS bus_origin,
		bus.destination AS bus_destination, bus.departure_time AS bus_departure_time,
		bus.price AS bus_price, bus.driver_name AS bus_driver_name, bus.driver_contact AS bus_driver_contact`

// bookingWithBusRow is a booking joined with the (possibly deleted) bus it references
type bookingWithBusRow struct {
	models.Booking
	BusName          sql.NullString  `db:"bus_name"`
	BusNumber        sql.NullString  `db:"bus_number"`
	BusOrigin        sql.NullString  `db:"bus_origin"`
	BusDestination   sql.NullString  `db:"bus_destination"`
	BusDepartureTime sql.NullString  `db:"bus_departure_time"`
	BusPrice         sql.NullFloat64 `db:"bus_price"`
	BusDriverName    sql.NullString  `db:"bus_driver_name"`
	BusDriverContact sql.NullString  `db:"bus_driver_contact"`
}

func (row *bookingWithBusRow) toBooking() models.Booking {
	booking := row.Booking
	if !row.BusName.Valid {
		return booking
	}
	bus := &models.Bus{
		ID:            booking.BusID,
		Name:          row.BusName.String,
		BusNumber:     row.BusNumber.String,
		From:          row.BusOrigin.String,
		To:            row.BusDestination.String,
		DepartureTime: row.BusDepartureTime.String,
		Price:         row.BusPrice.Float64,
	}
	if row.BusDriverName.Valid {
		bus.DriverName = &row.BusDriverName.String
	}
	if row.BusDriverContact.Valid {
		bus.DriverContact = &row.BusDriverContact.String
	}
	booking.Bus = bus
	return booking
}

// BookingRepository handles database operations for bookings
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a new Pending booking
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	booking.Status = models.BookingStatusPending

	query := `
		INSERT INTO bookings (
			id, bus_id, seat_numbers, customer_name, customer_email, customer_phone,
			travel_date, booking_date, amount, status, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::date, NOW(), $8, $9, NOW())
		RETURNING booking_date, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		booking.ID, booking.BusID, booking.SeatNumbers, booking.CustomerName,
		booking.CustomerEmail, booking.CustomerPhone, booking.TravelDate,
		booking.Amount, booking.Status,
	).Scan(&booking.BookingDate, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by ID. Returns nil, nil when no booking matches.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1`

	err := r.db.GetContext(ctx, &booking, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

// GetByIDWithBus retrieves a booking with its bus details joined
func (r *BookingRepository) GetByIDWithBus(ctx context.Context, id string) (*models.Booking, error) {
	var row bookingWithBusRow
	query := `
		SELECT ` + bookingColumns + `, ` + joinedBusColumns + `
		FROM bookings b
		LEFT JOIN buses bus ON bus.id = b.bus_id
		WHERE b.id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	booking := row.toBooking()
	return &booking, nil
}

// OccupiedSeats returns the distinct seat numbers held by Paid or Boarded
// bookings for a bus on a travel date, in ascending order
func (r *BookingRepository) OccupiedSeats(ctx context.Context, busID, travelDate string) ([]int, error) {
	query := `
		SELECT DISTINCT seat
		FROM bookings b, unnest(b.seat_numbers) AS seat
		WHERE b.bus_id = $1
		  AND b.travel_date = $2::date
		  AND b.status IN ('Paid', 'Boarded')
		ORDER BY seat`

	seats := []int{}
	if err := r.db.SelectContext(ctx, &seats, query, busID, travelDate); err != nil {
		return nil, fmt.Errorf("failed to get occupied seats: %w", err)
	}

	return seats, nil
}

// SetOrderID binds a gateway order to a booking that is still Pending
func (r *BookingRepository) SetOrderID(ctx context.Context, id, orderID string) (bool, error) {
	query := `
		UPDATE bookings
		SET order_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'Pending'`

	return r.execConditional(ctx, "set booking order", query, id, orderID)
}

// MarkPaid moves a Pending booking to Paid and stores the gateway identifiers.
// Returns false when the booking was not Pending.
func (r *BookingRepository) MarkPaid(ctx context.Context, id, orderID, paymentID string) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'Paid', order_id = $2, payment_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'Pending'`

	ok, err := r.execConditional(ctx, "mark booking paid", query, id, orderID, paymentID)
	if isUniqueViolation(err) {
		return false, ErrDuplicatePayment
	}
	return ok, err
}

// MarkPaidIfSeatsFree moves a Pending booking to Paid unless another Paid or
// Boarded booking already owns one of its seats, in which case those seats are
// returned and nothing changes. Payments for the same bus and date are
// serialized with a transaction-scoped advisory lock.
func (r *BookingRepository) MarkPaidIfSeatsFree(ctx context.Context, id, orderID, paymentID string) (bool, []int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("failed to begin payment transaction: %w", err)
	}
	defer tx.Rollback()

	var target struct {
		BusID       string             `db:"bus_id"`
		TravelDate  string             `db:"travel_date"`
		SeatNumbers models.SeatNumbers `db:"seat_numbers"`
	}
	err = tx.GetContext(ctx, &target, `
		SELECT bus_id, to_char(travel_date, 'YYYY-MM-DD') AS travel_date, seat_numbers
		FROM bookings
		WHERE id = $1 AND status = 'Pending'
		FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to lock booking: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || '|' || $2))`,
		target.BusID, target.TravelDate); err != nil {
		return false, nil, fmt.Errorf("failed to lock bus departure: %w", err)
	}

	var taken []int
	err = tx.SelectContext(ctx, &taken, `
		SELECT DISTINCT seat
		FROM bookings b, unnest(b.seat_numbers) AS seat
		WHERE b.bus_id = $1
		  AND b.travel_date = $2::date
		  AND b.status IN ('Paid', 'Boarded')
		  AND b.id <> $3
		  AND seat = ANY($4::int[])
		ORDER BY seat`, target.BusID, target.TravelDate, id, pq.Array([]int(target.SeatNumbers)))
	if err != nil {
		return false, nil, fmt.Errorf("failed to check sold seats: %w", err)
	}
	if len(taken) > 0 {
		return false, taken, nil
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'Paid', order_id = $2, payment_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'Pending'`, id, orderID, paymentID)
	if isUniqueViolation(err) {
		return false, nil, ErrDuplicatePayment
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to mark booking paid: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, nil, fmt.Errorf("failed to mark booking paid: %w", err)
	}
	if rowsAffected != 1 {
		return false, nil, nil
	}

	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return true, nil, nil
}

// TransitionStatus moves a booking to status `to` only if its current status is one of `from`.
// Returns false when the precondition did not hold.
func (r *BookingRepository) TransitionStatus(ctx context.Context, id string, to models.BookingStatus, from ...models.BookingStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s needs at least one source status", to)
	}

	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)`

	return r.execConditional(ctx, "transition booking to "+string(to), query, id, to, pq.Array(allowed))
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (r *BookingRepository) execConditional(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}

	return rowsAffected == 1, nil
}

// ListByEmail returns the booking history of a customer, newest first,
// matching the email case-insensitively
func (r *BookingRepository) ListByEmail(ctx context.Context, email string) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `, ` + joinedBusColumns + `
		FROM bookings b
		LEFT JOIN buses bus ON bus.id = b.bus_id
		WHERE LOWER(b.customer_email) = LOWER($1)
		ORDER BY b.booking_date DESC`

	var rows []bookingWithBusRow
	if err := r.db.SelectContext(ctx, &rows, query, email); err != nil {
		return nil, fmt.Errorf("failed to list bookings by email: %w", err)
	}

	bookings := make([]models.Booking, 0, len(rows))
	for i := range rows {
		bookings = append(bookings, rows[i].toBooking())
	}

	return bookings, nil
}

// ListForManifest returns the Paid and Boarded bookings of a bus on a travel date
func (r *BookingRepository) ListForManifest(ctx context.Context, busID, travelDate string) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.bus_id = $1
		  AND b.travel_date = $2::date
		  AND b.status IN ('Paid', 'Boarded')
		ORDER BY b.booking_date`

	bookings := []models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, busID, travelDate); err != nil {
		return nil, fmt.Errorf("failed to list manifest bookings: %w", err)
	}

	return bookings, nil
}

// RevenueStats aggregates bookings, optionally filtered by bus and travel date
func (r *BookingRepository) RevenueStats(ctx context.Context, busID, travelDate *string) (*models.RevenueStats, error) {
	query := `
		SELECT
			COALESCE(SUM(b.amount) FILTER (WHERE b.status IN ('Paid', 'Boarded')), 0) AS total_revenue,
			COUNT(*) FILTER (WHERE b.status IN ('Paid', 'Boarded')) AS total_bookings,
			COALESCE(SUM(cardinality(b.seat_numbers)) FILTER (WHERE b.status IN ('Paid', 'Boarded')), 0) AS total_seats,
			COUNT(*) FILTER (WHERE b.status = 'Paid') AS paid_bookings,
			COUNT(*) FILTER (WHERE b.status = 'Boarded') AS boarded_bookings,
			COUNT(*) FILTER (WHERE b.status = 'Refunded') AS refunded_bookings,
			COALESCE(SUM(b.amount) FILTER (WHERE b.status = 'Refunded'), 0) AS refunded_amount
		FROM bookings b
		WHERE ($1::uuid IS NULL OR b.bus_id = $1::uuid)
		  AND ($2::date IS NULL OR b.travel_date = $2::date)`

	var stats models.RevenueStats
	if err := r.db.GetContext(ctx, &stats, query, busID, travelDate); err != nil {
		return nil, fmt.Errorf("failed to get revenue stats: %w", err)
	}

	stats.BusID = busID
	stats.TravelDate = travelDate
	return &stats, nil
}

// CountStalePending counts Pending bookings created before the cutoff
func (r *BookingRepository) CountStalePending(ctx context.Context, olderThan time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM bookings WHERE status = 'Pending' AND booking_date < $1`

	if err := r.db.GetContext(ctx, &count, query, olderThan); err != nil {
		return 0, fmt.Errorf("failed to count stale pending bookings: %w", err)
	}

	return count, nil
}
