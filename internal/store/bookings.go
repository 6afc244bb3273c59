package store

import (
	"context"
	"database/sql"
	"fmt"

	"booking-service/internal/models"
)

// ErrBookingNotFound is returned when a booking ID resolves to no row.
var ErrBookingNotFound = fmt.Errorf("booking not found")

// CreateBooking creates a new booking
func (s *Store) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (renter_id, owner_id, product_id, period_start, period_end, total_price, status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, booking, query,
		booking.RenterID, booking.OwnerID, booking.ProductID,
		booking.PeriodStart, booking.PeriodEnd, booking.TotalPrice,
		booking.Status, booking.PaymentStatus)
}

// GetBookingByID retrieves a booking by ID
func (s *Store) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.GetContext(ctx, &booking, "SELECT * FROM bookings WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrBookingNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingsByRenterID retrieves bookings created by a renter
func (s *Store) GetBookingsByRenterID(ctx context.Context, renterID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE renter_id = $1 ORDER BY created_at DESC", renterID)
	return bookings, err
}

// GetBookingsByOwnerID retrieves bookings against an owner's products
func (s *Store) GetBookingsByOwnerID(ctx context.Context, ownerID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE owner_id = $1 ORDER BY created_at DESC", ownerID)
	return bookings, err
}

// CompareAndSetBookingStatus writes the new status only if the row still
// carries the (status, payment_status) pair the caller evaluated the guard
// against. The booking row is the unit of serialization: of two concurrent
// writers exactly one observes rows affected == 1.
func (s *Store) CompareAndSetBookingStatus(
	ctx context.Context,
	bookingID int64,
	expectStatus models.BookingStatus,
	expectPaymentStatus models.PaymentStatus,
	newStatus models.BookingStatus,
) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND payment_status = $4`,
		newStatus, bookingID, expectStatus, expectPaymentStatus)
	if err != nil {
		return false, fmt.Errorf("failed to update booking status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// SyncResult reports what a synchronization transaction actually wrote.
type SyncResult struct {
	PaymentUpdated bool
	BookingUpdated bool
}

// SyncPaymentStatus commits a payment's terminal status and mirrors it onto
// the booking in one transaction, so no reader ever observes one written
// without the other. The payment row is touched only while still
// non-terminal, which makes replayed gateway reports no-ops. The booking
// mirror is skipped when the booking is already terminal (a cancelled
// booking must not be resurrected by a late "paid"), when the payment is
// no longer the most recent attempt, or when a non-paid status would land
// on a confirmed booking, which stays paid.
func (s *Store) SyncPaymentStatus(
	ctx context.Context,
	paymentID int64,
	status models.PaymentStatus,
	externalTxID sql.NullString,
	paidAt sql.NullTime,
) (*SyncResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &SyncResult{}

	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1,
		    external_transaction_id = COALESCE($2, external_transaction_id),
		    paid_at = COALESCE($3, paid_at),
		    updated_at = NOW()
		WHERE id = $4
		  AND status IN ('pending', 'processing')`,
		status, externalTxID, paidAt, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	result.PaymentUpdated = affected == 1

	if !result.PaymentUpdated {
		// Already terminal; nothing to mirror.
		return result, tx.Commit()
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE bookings b
		SET payment_status = $1, updated_at = NOW()
		FROM payments p
		WHERE p.id = $2
		  AND b.id = p.booking_id
		  AND b.status NOT IN ('cancelled', 'completed')
		  AND (b.status <> 'confirmed' OR $1 = 'paid')
		  AND p.id = (
			SELECT id FROM payments
			WHERE booking_id = p.booking_id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		  )`,
		status, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to mirror payment status onto booking: %w", err)
	}

	affected, err = res.RowsAffected()
	if err != nil {
		return nil, err
	}
	result.BookingUpdated = affected == 1

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit synchronization: %w", err)
	}
	return result, nil
}
