package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SeatHoldRepository manages time-boxed exclusive seat holds keyed by
// (bus, travel date, seat number)
type SeatHoldRepository struct {
	db *sqlx.DB
}

// NewSeatHoldRepository creates a new SeatHoldRepository
func NewSeatHoldRepository(db *sqlx.DB) *SeatHoldRepository {
	return &SeatHoldRepository{db: db}
}

// Acquire holds every requested seat for bookingID until expiresAt, or none of them.
// The returned slice lists the seats that were unavailable; it is empty on success.
// A seat is unavailable when a Paid/Boarded booking owns it or another live hold covers it.
func (r *SeatHoldRepository) Acquire(ctx context.Context, bookingID, busID, travelDate string, seats []int, expiresAt time.Time) ([]int, error) {
	if len(seats) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin seat hold transaction: %w", err)
	}
	defer tx.Rollback()

	requested := pq.Array(seats)

	var sold []int
	err = tx.SelectContext(ctx, &sold, `
		SELECT DISTINCT seat
		FROM bookings b, unnest(b.seat_numbers) AS seat
		WHERE b.bus_id = $1
		  AND b.travel_date = $2::date
		  AND b.status IN ('Paid', 'Boarded')
		  AND seat = ANY($3::int[])
		ORDER BY seat`, busID, travelDate, requested)
	if err != nil {
		return nil, fmt.Errorf("failed to check sold seats: %w", err)
	}
	if len(sold) > 0 {
		return sold, nil
	}

	var held []int
	err = tx.SelectContext(ctx, &held, `
		INSERT INTO seat_holds (id, bus_id, travel_date, seat_number, booking_id, expires_at, created_at)
		SELECT gen_random_uuid(), $1, $2::date, seat, $3, $4, NOW()
		FROM unnest($5::int[]) AS seat
		ON CONFLICT (bus_id, travel_date, seat_number) DO UPDATE
		SET booking_id = EXCLUDED.booking_id,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
		WHERE seat_holds.expires_at < NOW() OR seat_holds.booking_id = EXCLUDED.booking_id
		RETURNING seat_number`, busID, travelDate, bookingID, expiresAt, requested)
	if err != nil {
		return nil, fmt.Errorf("failed to hold seats: %w", err)
	}

	if len(held) < len(seats) {
		return missingSeats(seats, held), nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit seat holds: %w", err)
	}

	return nil, nil
}

// ReleaseForBooking drops every hold owned by a booking
func (r *SeatHoldRepository) ReleaseForBooking(ctx context.Context, bookingID string) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM seat_holds WHERE booking_id = $1`, bookingID)
	if err != nil {
		return 0, fmt.Errorf("failed to release seat holds: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

// ReleaseExpired drops holds that have passed their TTL
func (r *SeatHoldRepository) ReleaseExpired(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM seat_holds WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired seat holds: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	return int(rowsAffected), nil
}

func missingSeats(requested, got []int) []int {
	have := make(map[int]bool, len(got))
	for _, s := range got {
		have[s] = true
	}
	var missing []int
	for _, s := range requested {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	return missing
}
