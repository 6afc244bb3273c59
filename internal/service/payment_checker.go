package service

import (
	"context"
	"time"

	"booking-service/internal/gateway"
	"booking-service/internal/models"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

// PaymentChecker performs one polling round for a payment attempt: ask the
// gateway for the current status and feed anything terminal into the
// synchronizer. Used by the explicit user-triggered status check and by the
// background reconciler, so both paths behave identically. An attempt still
// open past the expiry window is expired here, which unblocks a fresh
// payment request.
type PaymentChecker struct {
	store        *store.Store
	adapter      gateway.Adapter
	synchronizer *StatusSynchronizer
	expiryWindow time.Duration
	logger       *zap.Logger
}

// NewPaymentChecker creates a new payment checker
func NewPaymentChecker(
	store *store.Store,
	adapter gateway.Adapter,
	synchronizer *StatusSynchronizer,
	expiryWindow time.Duration,
) *PaymentChecker {
	return &PaymentChecker{
		store:        store,
		adapter:      adapter,
		synchronizer: synchronizer,
		expiryWindow: expiryWindow,
		logger:       util.GetLogger(),
	}
}

// Check polls the gateway for one order and returns the refreshed payment
// record. Safe to call repeatedly: with no gateway-side change the payment
// status never moves.
func (c *PaymentChecker) Check(ctx context.Context, orderID string) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentChecker.Check")
	defer span.End()

	payment, err := c.store.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if payment.Status.IsTerminal() {
		return payment, nil
	}

	report, err := c.adapter.CheckStatus(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch {
	case report.Status.IsTerminal():
		if err := c.synchronizer.ApplyGatewayStatus(ctx,
			orderID, report.Status, report.TransactionID, report.PaidAt); err != nil {
			return nil, err
		}

	case time.Since(payment.CreatedAt) > c.expiryWindow:
		util.PaymentsExpiredTotal.Inc()
		c.logger.Info("Payment attempt expired",
			zap.String("order_id", orderID),
			zap.Time("created_at", payment.CreatedAt))
		if err := c.synchronizer.ApplyGatewayStatus(ctx,
			orderID, models.PaymentStatusExpired, "", nil); err != nil {
			return nil, err
		}

	case report.Status == models.PaymentStatusProcessing && payment.Status == models.PaymentStatusPending:
		if err := c.store.MarkPaymentProcessing(ctx, payment.ID); err != nil {
			return nil, err
		}
	}

	return c.store.GetPaymentByOrderID(ctx, orderID)
}
