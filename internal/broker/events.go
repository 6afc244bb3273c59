package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"booking-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishBookingCreated publishes BookingCreated event
func (ep *EventPublisher) PublishBookingCreated(ctx context.Context, event *models.BookingCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishPaymentSessionCreated publishes PaymentSessionCreated event
func (ep *EventPublisher) PublishPaymentSessionCreated(ctx context.Context, event *models.PaymentSessionCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishPaymentSynchronized publishes PaymentSynchronized event
func (ep *EventPublisher) PublishPaymentSynchronized(ctx context.Context, event *models.PaymentSynchronizedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishBookingConfirmed publishes BookingConfirmed event
func (ep *EventPublisher) PublishBookingConfirmed(ctx context.Context, event *models.BookingConfirmedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishBookingCancelled publishes BookingCancelled event
func (ep *EventPublisher) PublishBookingCancelled(ctx context.Context, event *models.BookingCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishRentalStarted publishes RentalStarted event
func (ep *EventPublisher) PublishRentalStarted(ctx context.Context, event *models.RentalStartedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

// PublishRentalCompleted publishes RentalCompleted event
func (ep *EventPublisher) PublishRentalCompleted(ctx context.Context, event *models.RentalCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, bookingKey(event.BookingID), event)
}

func bookingKey(bookingID int64) string {
	return fmt.Sprintf("booking-%d", bookingID)
}

// EventHandler routes incoming gateway events
type EventHandler struct {
	onPaymentStatusChanged func(context.Context, *models.PaymentStatusChangedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnPaymentStatusChanged registers a handler for PaymentStatusChanged events
func (eh *EventHandler) OnPaymentStatusChanged(handler func(context.Context, *models.PaymentStatusChangedEvent) error) {
	eh.onPaymentStatusChanged = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypePaymentStatusChanged:
		if eh.onPaymentStatusChanged != nil {
			var event models.PaymentStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentStatusChanged event: %w", err)
			}
			return eh.onPaymentStatusChanged(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
