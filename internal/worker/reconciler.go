package worker

import (
	"context"
	"errors"
	"time"

	"booking-service/internal/gateway"
	"booking-service/internal/models"
	"booking-service/internal/service"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

const reconcileBatchSize = 100

// Reconciler periodically runs a polling round for every payment attempt
// still awaiting a terminal status. An ambiguous gateway answer leaves the
// attempt untouched for the next pass; a transient outage aborts the pass.
type Reconciler struct {
	store    *store.Store
	checker  *service.PaymentChecker
	interval time.Duration
	logger   *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(store *store.Store, checker *service.PaymentChecker, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:    store,
		checker:  checker,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Run loops until the context is cancelled
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Reconciler started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciler stopped")
			return
		case <-ticker.C:
			r.reconcileOnce(ctx)
		}
	}
}

func (r *Reconciler) reconcileOnce(ctx context.Context) {
	payments, err := r.store.GetUnresolvedPayments(ctx, reconcileBatchSize)
	if err != nil {
		r.logger.Error("Failed to list unresolved payments", zap.Error(err))
		return
	}

	for _, payment := range payments {
		if err := r.reconcilePayment(ctx, payment); err != nil {
			if errors.Is(err, gateway.ErrUnavailable) {
				// Gateway is down; retrying the rest of the batch now
				// would only hammer it.
				r.logger.Warn("Gateway unavailable, aborting reconciliation pass", zap.Error(err))
				return
			}
			r.logger.Warn("Reconciliation attempt failed",
				zap.String("order_id", payment.GatewayOrderID),
				zap.Error(err))
		}
	}
}

func (r *Reconciler) reconcilePayment(ctx context.Context, payment models.Payment) error {
	_, err := r.checker.Check(ctx, payment.GatewayOrderID)
	if err != nil {
		if errors.Is(err, gateway.ErrAmbiguous) {
			// No state change; left for the next pass.
			util.ReconcilerChecksTotal.WithLabelValues("ambiguous").Inc()
			r.logger.Warn("Ambiguous gateway response, attempt left unresolved",
				zap.String("order_id", payment.GatewayOrderID))
			return nil
		}
		if errors.Is(err, gateway.ErrUnavailable) {
			util.ReconcilerChecksTotal.WithLabelValues("unavailable").Inc()
			return err
		}
		util.ReconcilerChecksTotal.WithLabelValues("error").Inc()
		return err
	}

	util.ReconcilerChecksTotal.WithLabelValues("ok").Inc()
	return nil
}
