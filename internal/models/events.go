package models

import "time"

// Event types
const (
	EventTypeBookingCreated        = "BOOKING_CREATED"
	EventTypePaymentSessionCreated = "PAYMENT_SESSION_CREATED"
	EventTypePaymentSynchronized   = "PAYMENT_SYNCHRONIZED"
	EventTypeBookingConfirmed      = "BOOKING_CONFIRMED"
	EventTypeBookingCancelled      = "BOOKING_CANCELLED"
	EventTypeRentalStarted         = "RENTAL_STARTED"
	EventTypeRentalCompleted       = "RENTAL_COMPLETED"
	EventTypePaymentStatusChanged  = "PAYMENT_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingCreatedEvent published when a renter creates a booking
type BookingCreatedEvent struct {
	BaseEvent
	BookingID  int64     `json:"booking_id"`
	RenterID   int64     `json:"renter_id"`
	OwnerID    int64     `json:"owner_id"`
	ProductID  int64     `json:"product_id"`
	TotalPrice int64     `json:"total_price"`
	Start      time.Time `json:"period_start"`
	End        time.Time `json:"period_end"`
}

// PaymentSessionCreatedEvent published when a gateway session is minted
type PaymentSessionCreatedEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	PaymentID int64  `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
}

// PaymentSynchronizedEvent published when a payment's terminal status has
// been mirrored onto its booking
type PaymentSynchronizedEvent struct {
	BaseEvent
	BookingID int64         `json:"booking_id"`
	PaymentID int64         `json:"payment_id"`
	OrderID   string        `json:"order_id"`
	Status    PaymentStatus `json:"status"`
}

// BookingConfirmedEvent published when the owner confirms a paid booking
type BookingConfirmedEvent struct {
	BaseEvent
	BookingID int64 `json:"booking_id"`
	OwnerID   int64 `json:"owner_id"`
}

// BookingCancelledEvent published when a booking is cancelled
type BookingCancelledEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	ActorID   int64  `json:"actor_id"`
	Reason    string `json:"reason,omitempty"`
}

// RentalStartedEvent published when a confirmed rental goes active
type RentalStartedEvent struct {
	BaseEvent
	BookingID int64 `json:"booking_id"`
}

// RentalCompletedEvent published when an active rental is closed out
type RentalCompletedEvent struct {
	BaseEvent
	BookingID int64 `json:"booking_id"`
}

// PaymentStatusChangedEvent is consumed from the gateway's event stream; it
// carries the same payload the webhook endpoint accepts
type PaymentStatusChangedEvent struct {
	BaseEvent
	OrderID       string        `json:"order_id"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}
