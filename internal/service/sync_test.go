package service

import (
	"testing"

	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func booking(status models.BookingStatus) *models.Booking {
	return &models.Booking{ID: 1, Status: status, PaymentStatus: models.PaymentStatusPending}
}

func payment(id int64, status models.PaymentStatus) *models.Payment {
	return &models.Payment{ID: id, BookingID: 1, Status: status}
}

func TestShouldApply_PaidOnPendingBooking(t *testing.T) {
	applyPayment, mirror, reason := ShouldApply(
		booking(models.BookingStatusPending),
		payment(10, models.PaymentStatusProcessing),
		10,
		models.PaymentStatusPaid,
	)
	assert.True(t, applyPayment)
	assert.True(t, mirror)
	assert.Equal(t, SkipNone, reason)
}

func TestShouldApply_NonTerminalReportIsNoop(t *testing.T) {
	for _, status := range []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusProcessing} {
		applyPayment, mirror, reason := ShouldApply(
			booking(models.BookingStatusPending),
			payment(10, models.PaymentStatusPending),
			10,
			status,
		)
		assert.False(t, applyPayment, "status %s must not commit", status)
		assert.False(t, mirror)
		assert.Equal(t, SkipNotTerminal, reason)
	}
}

func TestShouldApply_ReplayedReportIsNoop(t *testing.T) {
	applyPayment, mirror, reason := ShouldApply(
		booking(models.BookingStatusPending),
		payment(10, models.PaymentStatusPaid),
		10,
		models.PaymentStatusPaid,
	)
	assert.False(t, applyPayment)
	assert.False(t, mirror)
	assert.Equal(t, SkipAlreadyApplied, reason)
}

func TestShouldApply_CancelledBookingIsNotResurrected(t *testing.T) {
	// Late "paid" report after the renter cancelled: the payment record
	// closes out but the booking mirror is skipped.
	applyPayment, mirror, reason := ShouldApply(
		booking(models.BookingStatusCancelled),
		payment(10, models.PaymentStatusProcessing),
		10,
		models.PaymentStatusPaid,
	)
	assert.True(t, applyPayment)
	assert.False(t, mirror)
	assert.Equal(t, SkipBookingTerminal, reason)
}

func TestShouldApply_CompletedBookingIgnoresLateReports(t *testing.T) {
	_, mirror, reason := ShouldApply(
		booking(models.BookingStatusCompleted),
		payment(10, models.PaymentStatusPending),
		10,
		models.PaymentStatusFailed,
	)
	assert.False(t, mirror)
	assert.Equal(t, SkipBookingTerminal, reason)
}

func TestShouldApply_StaleAttemptDoesNotDriveBooking(t *testing.T) {
	// An expired first attempt reporting late, after a second attempt was
	// minted: only the most recent attempt is authoritative.
	applyPayment, mirror, reason := ShouldApply(
		booking(models.BookingStatusPending),
		payment(10, models.PaymentStatusPending),
		11,
		models.PaymentStatusExpired,
	)
	assert.True(t, applyPayment)
	assert.False(t, mirror)
	assert.Equal(t, SkipStaleAttempt, reason)
}

func TestShouldApply_ConfirmedBookingStaysPaid(t *testing.T) {
	// A second attempt minted while the first already paid, expiring after
	// the owner confirmed: the attempt closes out but the confirmed booking
	// keeps its paid status.
	confirmed := booking(models.BookingStatusConfirmed)
	confirmed.PaymentStatus = models.PaymentStatusPaid

	for _, status := range []models.PaymentStatus{
		models.PaymentStatusFailed,
		models.PaymentStatusExpired,
		models.PaymentStatusCancelled,
	} {
		applyPayment, mirror, reason := ShouldApply(
			confirmed,
			payment(11, models.PaymentStatusPending),
			11,
			status,
		)
		assert.True(t, applyPayment, "status %s must still close the attempt", status)
		assert.False(t, mirror, "status %s must not land on a confirmed booking", status)
		assert.Equal(t, SkipBookingConfirmed, reason)
	}
}

func TestShouldApply_PaidMirrorsOnConfirmedBooking(t *testing.T) {
	confirmed := booking(models.BookingStatusConfirmed)
	confirmed.PaymentStatus = models.PaymentStatusPaid

	applyPayment, mirror, reason := ShouldApply(
		confirmed,
		payment(11, models.PaymentStatusProcessing),
		11,
		models.PaymentStatusPaid,
	)
	assert.True(t, applyPayment)
	assert.True(t, mirror)
	assert.Equal(t, SkipNone, reason)
}

func TestShouldApply_AllTerminalStatusesMirror(t *testing.T) {
	for _, status := range []models.PaymentStatus{
		models.PaymentStatusPaid,
		models.PaymentStatusFailed,
		models.PaymentStatusExpired,
		models.PaymentStatusCancelled,
	} {
		applyPayment, mirror, reason := ShouldApply(
			booking(models.BookingStatusPending),
			payment(10, models.PaymentStatusPending),
			10,
			status,
		)
		assert.True(t, applyPayment, "terminal status %s must commit", status)
		assert.True(t, mirror)
		assert.Equal(t, SkipNone, reason)
	}
}
