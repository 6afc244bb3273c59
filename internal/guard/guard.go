// Package guard decides whether a requested booking state change is legal.
// It is pure: no I/O, no clock reads, same inputs always yield the same
// verdict, so it is unit-testable without a store.
package guard

import "booking-service/internal/models"

// DenyReason classifies why a transition was refused.
type DenyReason string

const (
	ReasonNone              DenyReason = ""
	ReasonInvalidTransition DenyReason = "invalid_transition"
	ReasonPaymentIncomplete DenyReason = "payment_incomplete"
	ReasonActorNotAllowed   DenyReason = "actor_not_allowed"
	ReasonPeriodStarted     DenyReason = "period_started"
)

// Request carries everything the guard needs. BeforePeriodStart is computed
// by the caller (clock reads would break determinism here); it only matters
// for cancelling a confirmed booking.
type Request struct {
	From              models.BookingStatus
	PaymentStatus     models.PaymentStatus
	To                models.BookingStatus
	Actor             models.Role
	BeforePeriodStart bool
}

// Verdict is the guard's decision.
type Verdict struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Verdict {
	return Verdict{Allowed: true}
}

func deny(reason DenyReason) Verdict {
	return Verdict{Allowed: false, Reason: reason}
}

// Evaluate applies the transition table. Any pair not listed is denied
// (closed-world default), so completed and cancelled have no way out.
func Evaluate(req Request) Verdict {
	switch {
	case req.From == models.BookingStatusPending && req.To == models.BookingStatusConfirmed:
		if req.PaymentStatus != models.PaymentStatusPaid {
			return deny(ReasonPaymentIncomplete)
		}
		return allow()

	case req.From == models.BookingStatusPending && req.To == models.BookingStatusCancelled:
		if !isParty(req.Actor) {
			return deny(ReasonActorNotAllowed)
		}
		return allow()

	case req.From == models.BookingStatusConfirmed && req.To == models.BookingStatusActive:
		return allow()

	case req.From == models.BookingStatusConfirmed && req.To == models.BookingStatusCancelled:
		if !isParty(req.Actor) {
			return deny(ReasonActorNotAllowed)
		}
		if !req.BeforePeriodStart {
			return deny(ReasonPeriodStarted)
		}
		return allow()

	case req.From == models.BookingStatusActive && req.To == models.BookingStatusCompleted:
		if req.Actor != models.RoleOwner && req.Actor != models.RoleSystem {
			return deny(ReasonActorNotAllowed)
		}
		return allow()
	}

	return deny(ReasonInvalidTransition)
}

// isParty reports whether the actor is one of the booking's two parties.
func isParty(r models.Role) bool {
	return r == models.RoleRenter || r == models.RoleOwner
}
