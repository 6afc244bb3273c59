package models

import (
	"database/sql"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsTerminal reports whether a booking in this status accepts no further
// status or payment-status writes.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// PaymentStatus is the state of a payment attempt, mirrored onto the booking
// by status synchronization.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPaid       PaymentStatus = "paid"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusExpired    PaymentStatus = "expired"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

// IsTerminal reports whether this payment status is final. Terminal statuses
// are the only ones synchronization propagates onto the booking.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired, PaymentStatusCancelled:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status value.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusPaid,
		PaymentStatusFailed, PaymentStatusExpired, PaymentStatusCancelled:
		return true
	}
	return false
}

// Role of the actor performing a booking operation.
type Role string

const (
	RoleRenter Role = "renter"
	RoleOwner  Role = "owner"
	RoleSystem Role = "system"
)

// Product represents a rentable catalog item
type Product struct {
	ID          int64     `db:"id" json:"id"`
	OwnerID     int64     `db:"owner_id" json:"owner_id"`
	Name        string    `db:"name" json:"name"`
	PricePerDay int64     `db:"price_per_day" json:"price_per_day"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Booking represents a rental transaction between a renter and an owner
type Booking struct {
	ID            int64         `db:"id" json:"id"`
	RenterID      int64         `db:"renter_id" json:"renter_id"`
	OwnerID       int64         `db:"owner_id" json:"owner_id"`
	ProductID     int64         `db:"product_id" json:"product_id"`
	PeriodStart   time.Time     `db:"period_start" json:"period_start"`
	PeriodEnd     time.Time     `db:"period_end" json:"period_end"`
	TotalPrice    int64         `db:"total_price" json:"total_price"`
	Status        BookingStatus `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Payment represents one gateway-tracked payment attempt for a booking.
// A booking accumulates attempts over its life; only the most recently
// created one drives the booking's mirrored payment status.
type Payment struct {
	ID                    int64          `db:"id" json:"id"`
	BookingID             int64          `db:"booking_id" json:"booking_id"`
	GatewayOrderID        string         `db:"gateway_order_id" json:"gateway_order_id"`
	Amount                int64          `db:"amount" json:"amount"`
	Status                PaymentStatus  `db:"status" json:"status"`
	GatewaySessionToken   string         `db:"gateway_session_token" json:"gateway_session_token,omitempty"`
	GatewayPaymentURL     string         `db:"gateway_payment_url" json:"gateway_payment_url,omitempty"`
	ExternalTransactionID sql.NullString `db:"external_transaction_id" json:"external_transaction_id,omitempty"`
	PaidAt                sql.NullTime   `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
