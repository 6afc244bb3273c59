package guard

import (
	"testing"

	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_ConfirmRequiresPaid(t *testing.T) {
	unpaid := []models.PaymentStatus{
		models.PaymentStatusPending,
		models.PaymentStatusProcessing,
		models.PaymentStatusFailed,
		models.PaymentStatusExpired,
		models.PaymentStatusCancelled,
	}

	for _, ps := range unpaid {
		v := Evaluate(Request{
			From:          models.BookingStatusPending,
			PaymentStatus: ps,
			To:            models.BookingStatusConfirmed,
			Actor:         models.RoleOwner,
		})
		assert.False(t, v.Allowed, "payment status %s must block confirm", ps)
		assert.Equal(t, ReasonPaymentIncomplete, v.Reason)
	}

	v := Evaluate(Request{
		From:          models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPaid,
		To:            models.BookingStatusConfirmed,
		Actor:         models.RoleOwner,
	})
	assert.True(t, v.Allowed)
}

func TestEvaluate_CancelFromPending(t *testing.T) {
	for _, role := range []models.Role{models.RoleRenter, models.RoleOwner} {
		v := Evaluate(Request{
			From:          models.BookingStatusPending,
			PaymentStatus: models.PaymentStatusPending,
			To:            models.BookingStatusCancelled,
			Actor:         role,
		})
		assert.True(t, v.Allowed, "role %s may cancel pending booking", role)
	}

	v := Evaluate(Request{
		From:  models.BookingStatusPending,
		To:    models.BookingStatusCancelled,
		Actor: models.RoleSystem,
	})
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonActorNotAllowed, v.Reason)
}

func TestEvaluate_CancelFromConfirmed(t *testing.T) {
	v := Evaluate(Request{
		From:              models.BookingStatusConfirmed,
		PaymentStatus:     models.PaymentStatusPaid,
		To:                models.BookingStatusCancelled,
		Actor:             models.RoleRenter,
		BeforePeriodStart: true,
	})
	assert.True(t, v.Allowed)

	// Once the rental period has started, a confirmed booking cannot be
	// cancelled any more.
	v = Evaluate(Request{
		From:              models.BookingStatusConfirmed,
		PaymentStatus:     models.PaymentStatusPaid,
		To:                models.BookingStatusCancelled,
		Actor:             models.RoleRenter,
		BeforePeriodStart: false,
	})
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonPeriodStarted, v.Reason)
}

func TestEvaluate_StartAndComplete(t *testing.T) {
	v := Evaluate(Request{
		From:          models.BookingStatusConfirmed,
		PaymentStatus: models.PaymentStatusPaid,
		To:            models.BookingStatusActive,
		Actor:         models.RoleOwner,
	})
	assert.True(t, v.Allowed)

	v = Evaluate(Request{
		From:  models.BookingStatusActive,
		To:    models.BookingStatusCompleted,
		Actor: models.RoleOwner,
	})
	assert.True(t, v.Allowed)

	// Automated close-out is permitted.
	v = Evaluate(Request{
		From:  models.BookingStatusActive,
		To:    models.BookingStatusCompleted,
		Actor: models.RoleSystem,
	})
	assert.True(t, v.Allowed)

	v = Evaluate(Request{
		From:  models.BookingStatusActive,
		To:    models.BookingStatusCompleted,
		Actor: models.RoleRenter,
	})
	assert.False(t, v.Allowed)
	assert.Equal(t, ReasonActorNotAllowed, v.Reason)
}

func TestEvaluate_ClosedWorldDefault(t *testing.T) {
	all := []models.BookingStatus{
		models.BookingStatusPending,
		models.BookingStatusConfirmed,
		models.BookingStatusActive,
		models.BookingStatusCompleted,
		models.BookingStatusCancelled,
	}

	allowed := map[[2]models.BookingStatus]bool{
		{models.BookingStatusPending, models.BookingStatusConfirmed}:   true,
		{models.BookingStatusPending, models.BookingStatusCancelled}:   true,
		{models.BookingStatusConfirmed, models.BookingStatusActive}:    true,
		{models.BookingStatusConfirmed, models.BookingStatusCancelled}: true,
		{models.BookingStatusActive, models.BookingStatusCompleted}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			if allowed[[2]models.BookingStatus{from, to}] {
				continue
			}
			v := Evaluate(Request{
				From:              from,
				PaymentStatus:     models.PaymentStatusPaid,
				To:                to,
				Actor:             models.RoleOwner,
				BeforePeriodStart: true,
			})
			assert.False(t, v.Allowed, "%s -> %s must be denied", from, to)
			assert.Equal(t, ReasonInvalidTransition, v.Reason)
		}
	}
}

func TestEvaluate_TerminalStatesHaveNoExit(t *testing.T) {
	for _, from := range []models.BookingStatus{models.BookingStatusCompleted, models.BookingStatusCancelled} {
		for _, to := range []models.BookingStatus{
			models.BookingStatusPending,
			models.BookingStatusConfirmed,
			models.BookingStatusActive,
			models.BookingStatusCompleted,
			models.BookingStatusCancelled,
		} {
			v := Evaluate(Request{
				From:              from,
				PaymentStatus:     models.PaymentStatusPaid,
				To:                to,
				Actor:             models.RoleOwner,
				BeforePeriodStart: true,
			})
			assert.False(t, v.Allowed, "%s is terminal, %s -> %s must be denied", from, from, to)
		}
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	req := Request{
		From:          models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPaid,
		To:            models.BookingStatusConfirmed,
		Actor:         models.RoleOwner,
	}

	first := Evaluate(req)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Evaluate(req))
	}
}
