package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/phpdave11/gofpdf"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/models"
)

// ManifestStore lists the bookings that hold seats on a bus for a date
type ManifestStore interface {
	ListForManifest(ctx context.Context, busID, travelDate string) ([]models.Booking, error)
}

// ManifestService builds passenger manifests
type ManifestService struct {
	buses    BusStore
	bookings ManifestStore
	logger   *logrus.Logger
}

// NewManifestService creates a new ManifestService
func NewManifestService(buses BusStore, bookings ManifestStore, logger *logrus.Logger) *ManifestService {
	return &ManifestService{buses: buses, bookings: bookings, logger: logger}
}

// Build returns the Paid and Boarded passengers of a bus on a travel date.
// Seats sold to more than one booking are reported in Conflicts rather than dropped.
func (s *ManifestService) Build(ctx context.Context, busID, travelDate string) (*models.Manifest, error) {
	if _, err := uuid.Parse(busID); err != nil {
		return nil, ErrBusNotFound
	}
	if _, err := models.ParseTravelDate(travelDate); err != nil {
		return nil, validationError("%v", err)
	}

	bus, err := s.buses.GetByID(ctx, busID)
	if err != nil {
		return nil, err
	}
	if bus == nil {
		return nil, ErrBusNotFound
	}

	bookings, err := s.bookings.ListForManifest(ctx, busID, travelDate)
	if err != nil {
		return nil, err
	}

	manifest := &models.Manifest{
		Bus:        bus,
		TravelDate: travelDate,
		Entries:    make([]models.ManifestEntry, 0, len(bookings)),
		Conflicts:  []models.SeatConflict{},
	}

	owners := make(map[int][]string)
	for _, b := range bookings {
		manifest.Entries = append(manifest.Entries, models.ManifestEntry{
			BookingID:     b.ID,
			CustomerName:  b.CustomerName,
			CustomerPhone: b.CustomerPhone,
			CustomerEmail: b.CustomerEmail,
			SeatNumbers:   b.SeatNumbers.Sorted(),
			Status:        b.Status,
		})
		for _, seat := range b.SeatNumbers {
			owners[seat] = append(owners[seat], b.ID)
		}
	}

	manifest.SeatsSold = len(owners)
	for seat, ids := range owners {
		if len(ids) > 1 {
			manifest.Conflicts = append(manifest.Conflicts, models.SeatConflict{SeatNumber: seat, BookingIDs: ids})
		}
	}
	sort.Slice(manifest.Conflicts, func(i, j int) bool {
		return manifest.Conflicts[i].SeatNumber < manifest.Conflicts[j].SeatNumber
	})

	if len(manifest.Conflicts) > 0 {
		s.logger.WithFields(logrus.Fields{
			"bus_id":      busID,
			"travel_date": travelDate,
			"conflicts":   len(manifest.Conflicts),
		}).Warn("Manifest has double-booked seats")
	}

	return manifest, nil
}

// RenderPDF renders a manifest as an A4 PDF and returns the bytes and a file name
func (s *ManifestService) RenderPDF(m *models.Manifest) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Passenger Manifest", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "PASSENGER MANIFEST")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Bus        : %s (%s)", m.Bus.Name, m.Bus.BusNumber),
		fmt.Sprintf("Route      : %s - %s", m.Bus.From, m.Bus.To),
		fmt.Sprintf("Departure  : %s %s", m.TravelDate, m.Bus.DepartureTime),
		fmt.Sprintf("Seats sold : %d", m.SeatsSold),
	}
	if m.Bus.DriverName != nil {
		lines = append(lines, "Driver     : "+*m.Bus.DriverName)
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	widths := []float64{30, 55, 40, 35, 25}
	pdf.SetFont("Helvetica", "B", 11)
	for i, h := range []string{"Seats", "Passenger", "Phone", "Booking", "Status"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, e := range m.Entries {
		row := []string{
			joinSeats(e.SeatNumbers),
			e.CustomerName,
			e.CustomerPhone,
			shortID(e.BookingID),
			string(e.Status),
		}
		for i, v := range row {
			pdf.CellFormat(widths[i], 7, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(m.Conflicts) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Seat conflicts (manual resolution required)")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, c := range m.Conflicts {
			ids := make([]string, len(c.BookingIDs))
			for i, id := range c.BookingIDs {
				ids[i] = shortID(id)
			}
			pdf.MultiCell(0, 6, fmt.Sprintf("Seat %d: %s", c.SeatNumber, strings.Join(ids, ", ")), "", "", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render manifest PDF: %w", err)
	}

	filename := fmt.Sprintf("manifest-%s-%s.pdf", m.Bus.BusNumber, m.TravelDate)
	return buf.Bytes(), filename, nil
}

func joinSeats(seats models.SeatNumbers) string {
	parts := make([]string, len(seats))
	for i, s := range seats {
		parts[i] = fmt.Sprint(s)
	}
	return strings.Join(parts, ",")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
