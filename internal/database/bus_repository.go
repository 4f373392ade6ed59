package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smarttransit/bus-ticketing/internal/models"
)

// ErrBusHasBookings is returned when deleting a bus still referenced by bookings
var ErrBusHasBookings = errors.New("bus has bookings")

// foreignKeyViolation is the PostgreSQL SQLSTATE for foreign_key_violation
const foreignKeyViolation = "23503"

const busColumns = `id, name, bus_number, origin, destination, departure_time, price,
		driver_name, driver_contact, created_at, updated_at`

// BusRepository handles database operations for buses
type BusRepository struct {
	db *sqlx.DB
}

// NewBusRepository creates a new BusRepository
func NewBusRepository(db *sqlx.DB) *BusRepository {
	return &BusRepository{db: db}
}

// Create inserts a new bus and fills in its generated fields
func (r *BusRepository) Create(ctx context.Context, bus *models.Bus) error {
	if bus.ID == "" {
		bus.ID = uuid.New().String()
	}

	query := `
		INSERT INTO buses (
			id, name, bus_number, origin, destination, departure_time, price,
			driver_name, driver_contact, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		bus.ID, bus.Name, bus.BusNumber, bus.From, bus.To, bus.DepartureTime, bus.Price,
		bus.DriverName, bus.DriverContact,
	).Scan(&bus.CreatedAt, &bus.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bus: %w", err)
	}

	return nil
}

// GetByID retrieves a bus by ID. Returns nil, nil when no bus matches.
func (r *BusRepository) GetByID(ctx context.Context, id string) (*models.Bus, error) {
	var bus models.Bus
	query := `SELECT ` + busColumns + ` FROM buses WHERE id = $1`

	err := r.db.GetContext(ctx, &bus, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}

	return &bus, nil
}

// List returns buses filtered case-insensitively by origin and destination.
// Empty filters match every bus.
func (r *BusRepository) List(ctx context.Context, from, to string) ([]models.Bus, error) {
	query := `
		SELECT ` + busColumns + `
		FROM buses
		WHERE ($1 = '' OR LOWER(origin) = LOWER($1))
		  AND ($2 = '' OR LOWER(destination) = LOWER($2))
		ORDER BY departure_time, name`

	buses := []models.Bus{}
	if err := r.db.SelectContext(ctx, &buses, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list buses: %w", err)
	}

	return buses, nil
}

// Update overwrites the editable fields of a bus.
// Returns false when the bus no longer exists.
func (r *BusRepository) Update(ctx context.Context, bus *models.Bus) (bool, error) {
	query := `
		UPDATE buses
		SET name = $2, bus_number = $3, origin = $4, destination = $5,
		    departure_time = $6, price = $7, driver_name = $8, driver_contact = $9,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		bus.ID, bus.Name, bus.BusNumber, bus.From, bus.To, bus.DepartureTime, bus.Price,
		bus.DriverName, bus.DriverContact,
	).Scan(&bus.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update bus: %w", err)
	}

	return true, nil
}

// Delete removes a bus. Returns false when nothing was deleted and
// ErrBusHasBookings when bookings still reference it.
func (r *BusRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM buses WHERE id = $1`, id)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return false, ErrBusHasBookings
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete bus: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}
