// Package gateway abstracts the external payment processor. The service
// never talks to the processor directly; it only sees the Adapter contract,
// which supports both the polling reconciler and webhook-style push
// delivery feeding the same synchronization path.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/models"
)

// Session is a payment session minted by the gateway. The renter completes
// payment at URL; OrderID is the service-side unique handle.
type Session struct {
	OrderID string `json:"order_id"`
	Token   string `json:"token"`
	URL     string `json:"url"`
}

// StatusReport is the gateway's view of one payment attempt.
type StatusReport struct {
	Status        models.PaymentStatus
	TransactionID string
	// PaidAt is the gateway-reported completion time; nil when the gateway
	// did not report one, in which case the recorder falls back to its
	// local clock.
	PaidAt *time.Time
}

// Adapter is the payment gateway contract. CheckStatus must be safe to call
// repeatedly with no side effect beyond returning the current known status.
type Adapter interface {
	CreateSession(ctx context.Context, orderID string, amount int64) (*Session, error)
	CheckStatus(ctx context.Context, orderID string) (*StatusReport, error)
}

// ErrUnavailable signals a transient gateway failure; the caller decides
// whether and when to retry.
var ErrUnavailable = errors.New("payment gateway unavailable")

// ErrAmbiguous signals a gateway response that cannot be mapped to a known
// payment status. It never advances state; the attempt is left for the next
// reconciliation pass.
var ErrAmbiguous = errors.New("ambiguous gateway response")

// MapStatus converts a raw gateway status string to a payment status,
// returning ErrAmbiguous for anything unknown.
func MapStatus(raw string) (models.PaymentStatus, error) {
	status := models.PaymentStatus(raw)
	if !models.ValidPaymentStatus(status) {
		return "", fmt.Errorf("%w: status %q", ErrAmbiguous, raw)
	}
	return status, nil
}
