package models

import (
	"errors"
	"strings"
	"time"
)

// DepartureTimeLayout is the time-of-day format buses are scheduled with
const DepartureTimeLayout = "15:04"

// Bus represents a route operated daily at a fixed departure time
type Bus struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	BusNumber     string    `json:"busNumber" db:"bus_number"`
	From          string    `json:"from" db:"origin"`
	To            string    `json:"to" db:"destination"`
	DepartureTime string    `json:"departureTime" db:"departure_time"`
	Price         float64   `json:"price" db:"price"`
	DriverName    *string   `json:"driverName,omitempty" db:"driver_name"`
	DriverContact *string   `json:"driverContact,omitempty" db:"driver_contact"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// CreateBusRequest represents the request to create a new bus
type CreateBusRequest struct {
	Name          string  `json:"name" binding:"required"`
	BusNumber     string  `json:"busNumber" binding:"required"`
	From          string  `json:"from" binding:"required"`
	To            string  `json:"to" binding:"required"`
	DepartureTime string  `json:"departureTime" binding:"required"` // Format: HH:MM
	Price         float64 `json:"price"`
	DriverName    *string `json:"driverName,omitempty"`
	DriverContact *string `json:"driverContact,omitempty"`
}

// UpdateBusRequest represents the request to update bus information
type UpdateBusRequest struct {
	Name          *string  `json:"name,omitempty"`
	BusNumber     *string  `json:"busNumber,omitempty"`
	From          *string  `json:"from,omitempty"`
	To            *string  `json:"to,omitempty"`
	DepartureTime *string  `json:"departureTime,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	DriverName    *string  `json:"driverName,omitempty"`
	DriverContact *string  `json:"driverContact,omitempty"`
}

// Validate validates the CreateBusRequest
func (req *CreateBusRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.BusNumber) == "" {
		return errors.New("name and busNumber are required")
	}

	if err := validateRoute(req.From, req.To); err != nil {
		return err
	}

	if _, err := time.Parse(DepartureTimeLayout, req.DepartureTime); err != nil {
		return errors.New("invalid departureTime: expected HH:MM")
	}

	if req.Price < 0 {
		return errors.New("price must not be negative")
	}

	return nil
}

// ToBus builds a new Bus from the request
func (req *CreateBusRequest) ToBus() *Bus {
	return &Bus{
		Name:          strings.TrimSpace(req.Name),
		BusNumber:     strings.TrimSpace(req.BusNumber),
		From:          strings.TrimSpace(req.From),
		To:            strings.TrimSpace(req.To),
		DepartureTime: req.DepartureTime,
		Price:         req.Price,
		DriverName:    req.DriverName,
		DriverContact: req.DriverContact,
	}
}

// Validate validates the UpdateBusRequest
func (req *UpdateBusRequest) Validate() error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return errors.New("name must not be empty")
	}

	if req.BusNumber != nil && strings.TrimSpace(*req.BusNumber) == "" {
		return errors.New("busNumber must not be empty")
	}

	if req.DepartureTime != nil {
		if _, err := time.Parse(DepartureTimeLayout, *req.DepartureTime); err != nil {
			return errors.New("invalid departureTime: expected HH:MM")
		}
	}

	if req.Price != nil && *req.Price < 0 {
		return errors.New("price must not be negative")
	}

	return nil
}

// ApplyTo copies the provided fields onto bus and re-checks the route
func (req *UpdateBusRequest) ApplyTo(bus *Bus) error {
	if req.Name != nil {
		bus.Name = strings.TrimSpace(*req.Name)
	}
	if req.BusNumber != nil {
		bus.BusNumber = strings.TrimSpace(*req.BusNumber)
	}
	if req.From != nil {
		bus.From = strings.TrimSpace(*req.From)
	}
	if req.To != nil {
		bus.To = strings.TrimSpace(*req.To)
	}
	if req.DepartureTime != nil {
		bus.DepartureTime = *req.DepartureTime
	}
	if req.Price != nil {
		bus.Price = *req.Price
	}
	if req.DriverName != nil {
		bus.DriverName = req.DriverName
	}
	if req.DriverContact != nil {
		bus.DriverContact = req.DriverContact
	}
	return validateRoute(bus.From, bus.To)
}

func validateRoute(from, to string) error {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return errors.New("from and to are required")
	}
	if strings.EqualFold(from, to) {
		return errors.New("from and to must differ")
	}
	return nil
}
