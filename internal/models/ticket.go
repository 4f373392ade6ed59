package models

// TicketStatus is the boarding classification of a scanned booking id
type TicketStatus string

const (
	TicketStatusInvalid        TicketStatus = "invalid"
	TicketStatusRefunded       TicketStatus = "refunded"
	TicketStatusBoardedAlready TicketStatus = "boarded_already"
	TicketStatusExpired        TicketStatus = "expired"
	TicketStatusFuture         TicketStatus = "future"
	TicketStatusSuccess        TicketStatus = "success"
	TicketStatusUnpaid         TicketStatus = "unpaid" // only when boarding requires payment
)

var ticketMessages = map[TicketStatus]string{
	TicketStatusInvalid:        "Ticket not found",
	TicketStatusRefunded:       "Ticket has been refunded",
	TicketStatusBoardedAlready: "Passenger has already boarded",
	TicketStatusExpired:        "Ticket travel date has passed",
	TicketStatusFuture:         "Ticket is for a future date",
	TicketStatusSuccess:        "Ticket is valid for boarding today",
	TicketStatusUnpaid:         "Ticket has not been paid",
}

// Message returns the human readable text shown to boarding staff
func (s TicketStatus) Message() string {
	if msg, ok := ticketMessages[s]; ok {
		return msg
	}
	return string(s)
}

// TicketVerification is the result of classifying a booking for boarding
type TicketVerification struct {
	Message string       `json:"message"`
	Status  TicketStatus `json:"status"`
	Booking *Booking     `json:"booking"`
}

// ManifestEntry is one booking on a passenger manifest
type ManifestEntry struct {
	BookingID     string        `json:"bookingId"`
	CustomerName  string        `json:"customerName"`
	CustomerPhone string        `json:"customerPhone"`
	CustomerEmail string        `json:"customerEmail"`
	SeatNumbers   SeatNumbers   `json:"seatNumbers"`
	Status        BookingStatus `json:"status"`
}

// SeatConflict lists bookings that hold the same seat on the same bus and date
type SeatConflict struct {
	SeatNumber int      `json:"seatNumber"`
	BookingIDs []string `json:"bookingIds"`
}

// Manifest is the list of passengers and seats for a bus on a travel date
type Manifest struct {
	Bus        *Bus            `json:"bus"`
	TravelDate string          `json:"travelDate"`
	Entries    []ManifestEntry `json:"passengers"`
	SeatsSold  int             `json:"seatsSold"`
	Conflicts  []SeatConflict  `json:"conflicts"`
}
