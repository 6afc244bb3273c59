package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/redisclient"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// StatusSynchronizer is the single owner of Booking.paymentStatus. Every
// payment status report, whether it arrives by webhook, gateway event stream
// or the polling reconciler, funnels into ApplyGatewayStatus, which commits
// the payment update and the booking mirror in one store transaction.
type StatusSynchronizer struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewStatusSynchronizer creates a new status synchronizer
func NewStatusSynchronizer(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
) *StatusSynchronizer {
	return &StatusSynchronizer{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// SkipReason classifies why a gateway report resulted in no write.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipNotTerminal      SkipReason = "not_terminal"
	SkipAlreadyApplied   SkipReason = "already_applied"
	SkipStaleAttempt     SkipReason = "stale_attempt"
	SkipBookingTerminal  SkipReason = "booking_terminal"
	SkipBookingConfirmed SkipReason = "booking_confirmed"
	SkipConcurrent       SkipReason = "concurrent_update"
)

// ShouldApply decides whether an incoming status report may touch the
// payment and whether it may be mirrored onto the booking. Pure; the store
// transaction re-enforces the same rules under concurrency.
func ShouldApply(booking *models.Booking, payment *models.Payment, latestPaymentID int64, incoming models.PaymentStatus) (applyPayment bool, mirrorBooking bool, reason SkipReason) {
	if !incoming.IsTerminal() {
		// pending/processing reports carry no news worth committing.
		return false, false, SkipNotTerminal
	}
	if payment.Status.IsTerminal() {
		return false, false, SkipAlreadyApplied
	}
	if booking.Status.IsTerminal() {
		// A cancelled or completed booking must not be resurrected by a
		// late report; the payment record still closes out for audit.
		return true, false, SkipBookingTerminal
	}
	if payment.ID != latestPaymentID {
		return true, false, SkipStaleAttempt
	}
	if booking.Status == models.BookingStatusConfirmed && incoming != models.PaymentStatusPaid {
		// A confirmed booking stays paid. A late failed or expired attempt
		// closes out on the payment side only.
		return true, false, SkipBookingConfirmed
	}
	return true, true, SkipNone
}

// ApplyGatewayStatus records a gateway-reported status for the payment
// identified by orderID. For a "paid" report, paidAt falls back to the local
// clock when the gateway did not report a timestamp.
func (s *StatusSynchronizer) ApplyGatewayStatus(
	ctx context.Context,
	orderID string,
	status models.PaymentStatus,
	transactionID string,
	paidAt *time.Time,
) error {
	ctx, span := util.StartSpan(ctx, "StatusSynchronizer.ApplyGatewayStatus")
	defer span.End()

	if !models.ValidPaymentStatus(status) {
		return fmt.Errorf("unknown payment status %q for order %s", status, orderID)
	}

	payment, err := s.store.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrPaymentNotFound) {
			s.logger.Warn("Gateway reported status for unknown order",
				zap.String("order_id", orderID))
		}
		return err
	}

	booking, err := s.store.GetBookingByID(ctx, payment.BookingID)
	if err != nil {
		return err
	}

	latest, err := s.store.GetLatestPaymentByBookingID(ctx, payment.BookingID)
	if err != nil {
		return err
	}

	applyPayment, _, reason := ShouldApply(booking, payment, latest.ID, status)
	if !applyPayment {
		util.PaymentSyncSkippedTotal.WithLabelValues(string(reason)).Inc()
		s.logger.Info("Gateway report skipped",
			zap.String("order_id", orderID),
			zap.String("status", string(status)),
			zap.String("reason", string(reason)))
		return nil
	}

	var txID sql.NullString
	if transactionID != "" {
		txID = sql.NullString{String: transactionID, Valid: true}
	}

	var paid sql.NullTime
	if status == models.PaymentStatusPaid {
		when := time.Now()
		if paidAt != nil {
			when = *paidAt
		}
		paid = sql.NullTime{Time: when, Valid: true}
	}

	result, err := s.store.SyncPaymentStatus(ctx, payment.ID, status, txID, paid)
	if err != nil {
		return fmt.Errorf("failed to synchronize payment %d: %w", payment.ID, err)
	}

	if !result.PaymentUpdated {
		// A concurrent synchronization already applied a terminal status.
		util.PaymentSyncSkippedTotal.WithLabelValues(string(SkipAlreadyApplied)).Inc()
		return nil
	}

	if result.BookingUpdated {
		util.PaymentSyncAppliedTotal.WithLabelValues(string(status)).Inc()
	} else {
		if reason == SkipNone {
			// The transaction declined the mirror even though the loaded
			// snapshot allowed it: a concurrent writer moved the booking
			// or minted a newer attempt in between.
			reason = SkipConcurrent
		}
		util.PaymentSyncSkippedTotal.WithLabelValues(string(reason)).Inc()
	}

	if err := s.redis.InvalidateSession(ctx, payment.BookingID); err != nil {
		s.logger.Warn("Failed to invalidate cached session",
			zap.Int64("booking_id", payment.BookingID), zap.Error(err))
	}

	s.logger.Info("Payment synchronized",
		zap.String("order_id", orderID),
		zap.Int64("booking_id", payment.BookingID),
		zap.String("status", string(status)),
		zap.Bool("booking_updated", result.BookingUpdated))

	event := &models.PaymentSynchronizedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentSynchronized),
		BookingID: payment.BookingID,
		PaymentID: payment.ID,
		OrderID:   orderID,
		Status:    status,
	}
	if err := s.eventPublisher.PublishPaymentSynchronized(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentSynchronized event", zap.Error(err))
	}

	return nil
}
