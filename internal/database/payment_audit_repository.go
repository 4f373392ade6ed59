package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-ticketing/internal/models"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, booking_id, order_id, payment_id,
			event_type, event_source,
			amount_minor, currency,
			gateway_status, gateway_ref, http_status_code,
			error_message, error_code,
			ip_address, user_agent, device_type,
			created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8,
			$9, $10, $11,
			$12, $13,
			$14, $15, $16,
			$17
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.BookingID, audit.OrderID, audit.PaymentID,
		audit.EventType, audit.EventSource,
		audit.AmountMinor, audit.Currency,
		audit.GatewayStatus, audit.GatewayRef, audit.HTTPStatusCode,
		audit.ErrorMessage, audit.ErrorCode,
		audit.IPAddress, audit.UserAgent, audit.DeviceType,
		audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"booking_id": audit.BookingID,
			"payment_id": audit.PaymentID,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
		"booking_id": audit.BookingID,
	}).Debug("Payment audit logged")

	return nil
}

// HasEvent reports whether an event of the given type was recorded for a payment
func (r *PaymentAuditRepository) HasEvent(ctx context.Context, paymentID string, eventType models.PaymentEventType) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payment_audits
			WHERE payment_id = $1 AND event_type = $2
		)`

	if err := r.db.GetContext(ctx, &exists, query, paymentID, eventType); err != nil {
		return false, fmt.Errorf("failed to check payment audit: %w", err)
	}

	return exists, nil
}

// ListByPaymentID returns the audit trail for a payment, oldest first
func (r *PaymentAuditRepository) ListByPaymentID(ctx context.Context, paymentID string) ([]models.PaymentAudit, error) {
	query := `
		SELECT id, booking_id, order_id, payment_id, event_type, event_source,
		       amount_minor, currency, gateway_status, gateway_ref, http_status_code,
		       error_message, error_code, ip_address, user_agent, device_type, created_at
		FROM payment_audits
		WHERE payment_id = $1
		ORDER BY created_at ASC`

	audits := []models.PaymentAudit{}
	if err := r.db.SelectContext(ctx, &audits, query, paymentID); err != nil {
		return nil, fmt.Errorf("failed to get payment audits: %w", err)
	}

	return audits, nil
}
