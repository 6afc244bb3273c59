package worker

import (
	"context"
	"log"

	"booking-service/internal/broker"
	"booking-service/internal/models"
	"booking-service/internal/service"
	"booking-service/internal/store"
)

// GatewayEventWorker consumes payment status events pushed by the gateway
// onto the payment-events topic and funnels them into the same
// synchronization path the webhook and reconciler use.
type GatewayEventWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	synchronizer *service.StatusSynchronizer
}

// NewGatewayEventWorker creates a new gateway event worker
func NewGatewayEventWorker(
	consumer *broker.Consumer,
	store *store.Store,
	synchronizer *service.StatusSynchronizer,
) *GatewayEventWorker {
	w := &GatewayEventWorker{
		consumer:     consumer,
		store:        store,
		synchronizer: synchronizer,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPaymentStatusChanged(w.handlePaymentStatusChanged)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *GatewayEventWorker) Start(ctx context.Context) error {
	log.Println("Starting gateway event worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *GatewayEventWorker) Stop() error {
	log.Println("Stopping gateway event worker...")
	return w.consumer.Close()
}

func (w *GatewayEventWorker) handlePaymentStatusChanged(ctx context.Context, event *models.PaymentStatusChangedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		log.Printf("Event already processed: %s", event.EventID)
		return nil
	}

	if err := w.synchronizer.ApplyGatewayStatus(ctx,
		event.OrderID, event.Status, event.TransactionID, event.PaidAt); err != nil {
		return err
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
