package service

import (
	"testing"
	"time"

	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTotalPrice(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// Three whole days.
	assert.EqualValues(t, 3000, TotalPrice(1000, start, start.AddDate(0, 0, 3)))

	// Partial days round up.
	assert.EqualValues(t, 2000, TotalPrice(1000, start, start.Add(36*time.Hour)))

	// Less than a day still charges one day.
	assert.EqualValues(t, 1000, TotalPrice(1000, start, start.Add(2*time.Hour)))
}

func TestCanRequestPayment(t *testing.T) {
	pending := func(ps models.PaymentStatus) *models.Booking {
		return &models.Booking{ID: 7, Status: models.BookingStatusPending, PaymentStatus: ps}
	}

	// A fresh pending booking and one whose last attempt failed may both
	// open an attempt.
	assert.NoError(t, canRequestPayment(pending(models.PaymentStatusPending)))
	assert.NoError(t, canRequestPayment(pending(models.PaymentStatusFailed)))

	// Money already collected: no second charge while awaiting confirmation.
	err := canRequestPayment(pending(models.PaymentStatusPaid))
	var serr *InvalidStateError
	assert.ErrorAs(t, err, &serr)

	for _, status := range []models.BookingStatus{
		models.BookingStatusConfirmed,
		models.BookingStatusActive,
		models.BookingStatusCompleted,
		models.BookingStatusCancelled,
	} {
		b := &models.Booking{ID: 7, Status: status, PaymentStatus: models.PaymentStatusPaid}
		assert.Error(t, canRequestPayment(b), "status %s must refuse payment requests", status)
	}
}

func TestSessionFromPayment(t *testing.T) {
	// The rebuilt session must carry the persisted redirect URL, not just
	// the order ID and token.
	p := &models.Payment{
		GatewayOrderID:      "RNT-abc",
		GatewaySessionToken: "tok_abc",
		GatewayPaymentURL:   "https://pay.example/tok_abc",
	}
	session := sessionFromPayment(p)
	assert.Equal(t, "RNT-abc", session.OrderID)
	assert.Equal(t, "tok_abc", session.Token)
	assert.Equal(t, "https://pay.example/tok_abc", session.URL)
}

func TestValidatePeriod(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, validatePeriod(start, start.AddDate(0, 0, 1)))

	err := validatePeriod(start, start)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	assert.Error(t, validatePeriod(start, start.Add(-time.Hour)))
	assert.Error(t, validatePeriod(time.Time{}, start))
}
