package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"booking-service/internal/models"
)

// ErrPaymentNotFound is returned when a payment lookup resolves to no row.
var ErrPaymentNotFound = fmt.Errorf("payment not found")

// ErrActivePaymentExists is returned when an insert collides with the
// one-open-attempt-per-booking constraint.
var ErrActivePaymentExists = fmt.Errorf("booking already has an active payment attempt")

// CreatePayment creates a new payment attempt. The payments table allows at
// most one non-terminal attempt per booking; a concurrent insert loses here.
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (booking_id, gateway_order_id, amount, status, gateway_session_token, gateway_payment_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := s.db.GetContext(ctx, payment, query,
		payment.BookingID, payment.GatewayOrderID, payment.Amount,
		payment.Status, payment.GatewaySessionToken, payment.GatewayPaymentURL)
	if isActiveAttemptConflict(err) {
		return fmt.Errorf("%w: booking %d", ErrActivePaymentExists, payment.BookingID)
	}
	return err
}

func isActiveAttemptConflict(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" &&
		pqErr.Constraint == "uq_payments_active_booking"
}

// GetPaymentByOrderID retrieves a payment by its unique gateway order ID
func (s *Store) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE gateway_order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: order %s", ErrPaymentNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetLatestPaymentByBookingID retrieves the most recent payment attempt for
// a booking, or nil when none exists yet
func (s *Store) GetLatestPaymentByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment,
		"SELECT * FROM payments WHERE booking_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1", bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetPaymentsByBookingID retrieves the full attempt history for a booking
func (s *Store) GetPaymentsByBookingID(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE booking_id = $1 ORDER BY created_at DESC, id DESC", bookingID)
	return payments, err
}

// GetUnresolvedPayments retrieves payment attempts still awaiting a terminal
// status, oldest first, for the reconciliation loop
func (s *Store) GetUnresolvedPayments(ctx context.Context, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.SelectContext(ctx, &payments, `
		SELECT * FROM payments
		WHERE status IN ('pending', 'processing')
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	return payments, err
}

// MarkPaymentProcessing moves a pending attempt to processing; a no-op when
// the attempt has already advanced
func (s *Store) MarkPaymentProcessing(ctx context.Context, paymentID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, paymentID)
	return err
}
