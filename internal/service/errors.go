package service

import (
	"fmt"

	"booking-service/internal/guard"
	"booking-service/internal/models"
)

// ValidationError reports malformed input. Terminal: returned to the caller
// with no retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// AuthorizationError reports an actor not permitted to perform an operation.
type AuthorizationError struct {
	ActorID   int64
	Operation string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %d is not permitted to %s", e.ActorID, e.Operation)
}

// InvalidStateError reports a guard denial unrelated to payment.
type InvalidStateError struct {
	BookingID int64
	From      models.BookingStatus
	To        models.BookingStatus
	Reason    guard.DenyReason
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("booking %d: transition %s -> %s denied: %s",
		e.BookingID, e.From, e.To, e.Reason)
}

// PaymentNotCompletedError reports a confirm attempted before the payment
// reached paid. Surfaced as its own kind so callers can branch on it rather
// than string-match a generic failure.
type PaymentNotCompletedError struct {
	BookingID     int64
	PaymentStatus models.PaymentStatus
}

func (e *PaymentNotCompletedError) Error() string {
	return fmt.Sprintf("booking %d: cannot confirm, payment status is %s",
		e.BookingID, e.PaymentStatus)
}
