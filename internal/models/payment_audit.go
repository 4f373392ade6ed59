package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventOrderCreated      PaymentEventType = "order_created"
	PaymentEventOrderFailed       PaymentEventType = "order_failed"
	PaymentEventSignatureVerified PaymentEventType = "signature_verified"
	PaymentEventSignatureMismatch PaymentEventType = "signature_mismatch"
	PaymentEventRefundInitiated   PaymentEventType = "refund_initiated"
	PaymentEventRefundCompleted   PaymentEventType = "refund_completed"
	PaymentEventRefundFailed      PaymentEventType = "refund_failed"
	PaymentEventRefundUnapplied   PaymentEventType = "refund_unapplied" // gateway refunded, booking status unchanged
	PaymentEventSeatConflict      PaymentEventType = "seat_conflict"    // paid for seats sold to another booking
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend    PaymentEventSource = "backend"
	PaymentSourceGatewayAPI PaymentEventSource = "gateway_api"
	PaymentSourceCustomer   PaymentEventSource = "customer"
	PaymentSourceAdmin      PaymentEventSource = "admin"
)

// PaymentAudit represents an immutable audit log entry for payment events
type PaymentAudit struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BookingID *string   `json:"bookingId,omitempty" db:"booking_id"`
	OrderID   *string   `json:"orderId,omitempty" db:"order_id"`
	PaymentID *string   `json:"paymentId,omitempty" db:"payment_id"`

	// Event info
	EventType   PaymentEventType   `json:"eventType" db:"event_type"`
	EventSource PaymentEventSource `json:"eventSource" db:"event_source"`

	// Amount tracking, minor units as sent to the gateway
	AmountMinor *int64  `json:"amountMinor,omitempty" db:"amount_minor"`
	Currency    *string `json:"currency,omitempty" db:"currency"`

	// Gateway outcome
	GatewayStatus  *string `json:"gatewayStatus,omitempty" db:"gateway_status"`
	GatewayRef     *string `json:"gatewayRef,omitempty" db:"gateway_ref"`
	HTTPStatusCode *int    `json:"httpStatusCode,omitempty" db:"http_status_code"`

	// Error tracking
	ErrorMessage *string `json:"errorMessage,omitempty" db:"error_message"`
	ErrorCode    *string `json:"errorCode,omitempty" db:"error_code"`

	// Request metadata
	IPAddress  *string `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent  *string `json:"userAgent,omitempty" db:"user_agent"`
	DeviceType *string `json:"deviceType,omitempty" db:"device_type"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetBooking sets the booking the event belongs to
func (pa *PaymentAudit) SetBooking(bookingID string) *PaymentAudit {
	if bookingID != "" {
		pa.BookingID = &bookingID
	}
	return pa
}

// SetOrderID sets the gateway order id
func (pa *PaymentAudit) SetOrderID(orderID string) *PaymentAudit {
	if orderID != "" {
		pa.OrderID = &orderID
	}
	return pa
}

// SetPaymentID sets the gateway payment id
func (pa *PaymentAudit) SetPaymentID(paymentID string) *PaymentAudit {
	if paymentID != "" {
		pa.PaymentID = &paymentID
	}
	return pa
}

// SetAmount sets the amount in minor units and its currency
func (pa *PaymentAudit) SetAmount(minor int64, currency string) *PaymentAudit {
	pa.AmountMinor = &minor
	pa.Currency = &currency
	return pa
}

// SetGatewayResult records the provider-side status and reference (order or refund id)
func (pa *PaymentAudit) SetGatewayResult(status, ref string) *PaymentAudit {
	if status != "" {
		pa.GatewayStatus = &status
	}
	if ref != "" {
		pa.GatewayRef = &ref
	}
	return pa
}

// SetHTTPStatus sets the HTTP status returned by the gateway
func (pa *PaymentAudit) SetHTTPStatus(statusCode int) *PaymentAudit {
	if statusCode != 0 {
		pa.HTTPStatusCode = &statusCode
	}
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(message string, code *string) *PaymentAudit {
	pa.ErrorMessage = &message
	pa.ErrorCode = code
	return pa
}

// SetMetadata sets request metadata
func (pa *PaymentAudit) SetMetadata(ip, userAgent, deviceType string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	if deviceType != "" {
		pa.DeviceType = &deviceType
	}
	return pa
}
