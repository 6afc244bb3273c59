package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"booking-service/internal/broker"
	"booking-service/internal/gateway"
	"booking-service/internal/guard"
	"booking-service/internal/models"
	"booking-service/internal/redisclient"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingService orchestrates the booking lifecycle: create, request
// payment, confirm, start, complete, cancel. Every status change goes
// through the guard and lands via a compare-and-set on the booking row.
// The service reads payment status but never writes it; that is the
// synchronizer's job.
type BookingService struct {
	store          *store.Store
	redis          *redisclient.Client
	adapter        gateway.Adapter
	eventPublisher *broker.EventPublisher
	sessionTTL     time.Duration
	logger         *zap.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	store *store.Store,
	redis *redisclient.Client,
	adapter gateway.Adapter,
	eventPublisher *broker.EventPublisher,
	sessionTTL time.Duration,
) *BookingService {
	return &BookingService{
		store:          store,
		redis:          redis,
		adapter:        adapter,
		eventPublisher: eventPublisher,
		sessionTTL:     sessionTTL,
		logger:         util.GetLogger(),
	}
}

// CreateBookingRequest represents a renter's request to book a product
type CreateBookingRequest struct {
	RenterID    int64     `json:"renter_id" binding:"required"`
	ProductID   int64     `json:"product_id" binding:"required"`
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

// CreateBooking validates the period and availability, computes the total
// price from the catalog and creates the booking as pending/pending.
func (s *BookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.CreateBooking")
	defer span.End()

	if err := validatePeriod(req.PeriodStart, req.PeriodEnd); err != nil {
		util.BookingsFailedTotal.WithLabelValues("invalid_period").Inc()
		return nil, err
	}

	product, err := s.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		util.BookingsFailedTotal.WithLabelValues("product_not_found").Inc()
		return nil, &ValidationError{Field: "product_id", Reason: err.Error()}
	}

	if product.OwnerID == req.RenterID {
		util.BookingsFailedTotal.WithLabelValues("own_product").Inc()
		return nil, &ValidationError{Field: "product_id", Reason: "cannot rent own product"}
	}

	available, err := s.store.IsProductAvailable(ctx, req.ProductID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	if !available {
		util.BookingsFailedTotal.WithLabelValues("unavailable").Inc()
		return nil, &ValidationError{Field: "period", Reason: "product unavailable for the requested period"}
	}

	booking := &models.Booking{
		RenterID:      req.RenterID,
		OwnerID:       product.OwnerID,
		ProductID:     req.ProductID,
		PeriodStart:   req.PeriodStart,
		PeriodEnd:     req.PeriodEnd,
		TotalPrice:    TotalPrice(product.PricePerDay, req.PeriodStart, req.PeriodEnd),
		Status:        models.BookingStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		util.BookingsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	util.BookingsCreatedTotal.Inc()
	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("renter_id", booking.RenterID),
		zap.Int64("total_price", booking.TotalPrice))

	event := &models.BookingCreatedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeBookingCreated),
		BookingID:  booking.ID,
		RenterID:   booking.RenterID,
		OwnerID:    booking.OwnerID,
		ProductID:  booking.ProductID,
		TotalPrice: booking.TotalPrice,
		Start:      booking.PeriodStart,
		End:        booking.PeriodEnd,
	}
	if err := s.eventPublisher.PublishBookingCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCreated event", zap.Error(err))
	}

	return booking, nil
}

// RequestPayment mints a gateway payment session for a pending booking.
// Idempotent per active attempt: while one attempt is non-terminal, repeated
// calls return the existing session instead of minting a new one.
func (s *BookingService) RequestPayment(ctx context.Context, bookingID int64) (*gateway.Session, error) {
	ctx, span := util.StartSpan(ctx, "BookingService.RequestPayment")
	defer span.End()

	booking, err := s.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := canRequestPayment(booking); err != nil {
		return nil, err
	}

	// Serialize session minting per booking so two concurrent calls cannot
	// both reach the gateway. A held lock means another caller is minting
	// right now; surfacing the conflict beats minting a duplicate.
	locked, err := s.redis.AcquireBookingLock(ctx, bookingID, 10*time.Second)
	if err != nil {
		// Degraded mode: the unique index on open attempts still prevents
		// a duplicate row.
		s.logger.Warn("Redis lock failed, proceeding on store state",
			zap.Int64("booking_id", bookingID), zap.Error(err))
	} else if !locked {
		return nil, &InvalidStateError{
			BookingID: bookingID,
			From:      booking.Status,
			To:        booking.Status,
			Reason:    "payment request already in progress",
		}
	} else {
		defer func() {
			if err := s.redis.ReleaseBookingLock(context.Background(), bookingID); err != nil {
				s.logger.Warn("Failed to release booking lock", zap.Error(err))
			}
		}()
	}

	latest, err := s.store.GetLatestPaymentByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest payment: %w", err)
	}

	if latest != nil && !latest.Status.IsTerminal() {
		var cached gateway.Session
		ok, err := s.redis.GetCachedSession(ctx, bookingID, &cached)
		if err != nil {
			s.logger.Warn("Session cache read failed", zap.Error(err))
		}
		if ok && cached.OrderID == latest.GatewayOrderID {
			return &cached, nil
		}
		// Cache expired before the attempt did; rebuild from the record.
		return sessionFromPayment(latest), nil
	}

	orderID := fmt.Sprintf("RNT-%s", uuid.New().String())

	session, err := s.adapter.CreateSession(ctx, orderID, booking.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}

	payment := &models.Payment{
		BookingID:           bookingID,
		GatewayOrderID:      orderID,
		Amount:              booking.TotalPrice,
		Status:              models.PaymentStatusPending,
		GatewaySessionToken: session.Token,
		GatewayPaymentURL:   session.URL,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, store.ErrActivePaymentExists) {
			return nil, &InvalidStateError{
				BookingID: bookingID,
				From:      booking.Status,
				To:        booking.Status,
				Reason:    "payment request already in progress",
			}
		}
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	if err := s.redis.CacheSession(ctx, bookingID, session, s.sessionTTL); err != nil {
		s.logger.Warn("Failed to cache payment session", zap.Error(err))
	}

	util.PaymentSessionsCreatedTotal.Inc()
	s.logger.Info("Payment session created",
		zap.Int64("booking_id", bookingID),
		zap.String("order_id", orderID),
		zap.Int64("amount", payment.Amount))

	event := &models.PaymentSessionCreatedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentSessionCreated),
		BookingID: bookingID,
		PaymentID: payment.ID,
		OrderID:   orderID,
		Amount:    payment.Amount,
	}
	if err := s.eventPublisher.PublishPaymentSessionCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentSessionCreated event", zap.Error(err))
	}

	return session, nil
}

// canRequestPayment gates session minting on the booking snapshot: only a
// pending booking that has not already collected money may open an attempt.
// A pending+paid booking is awaiting owner confirmation, not another charge.
func canRequestPayment(booking *models.Booking) error {
	if booking.Status != models.BookingStatusPending {
		return &InvalidStateError{
			BookingID: booking.ID,
			From:      booking.Status,
			To:        booking.Status,
			Reason:    "payment can only be requested for a pending booking",
		}
	}
	if booking.PaymentStatus == models.PaymentStatusPaid {
		return &InvalidStateError{
			BookingID: booking.ID,
			From:      booking.Status,
			To:        booking.Status,
			Reason:    "booking is already paid",
		}
	}
	return nil
}

// sessionFromPayment rebuilds the session handed out for an attempt when the
// cached copy has expired. The gateway URL is persisted on the row so the
// renter can still be redirected.
func sessionFromPayment(payment *models.Payment) *gateway.Session {
	return &gateway.Session{
		OrderID: payment.GatewayOrderID,
		Token:   payment.GatewaySessionToken,
		URL:     payment.GatewayPaymentURL,
	}
}

// ConfirmBooking is the explicit owner acceptance of a paid booking. Money
// received alone never advances the booking; this call does.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, actorID int64) error {
	ctx, span := util.StartSpan(ctx, "BookingService.ConfirmBooking")
	defer span.End()

	booking, err := s.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if actorID != booking.OwnerID {
		return &AuthorizationError{ActorID: actorID, Operation: "confirm booking"}
	}

	if err := s.transition(ctx, booking, models.BookingStatusConfirmed, models.RoleOwner); err != nil {
		return err
	}

	util.BookingsConfirmedTotal.Inc()
	s.logger.Info("Booking confirmed", zap.Int64("booking_id", bookingID))

	event := &models.BookingConfirmedEvent{
		BaseEvent: newBaseEvent(models.EventTypeBookingConfirmed),
		BookingID: bookingID,
		OwnerID:   booking.OwnerID,
	}
	if err := s.eventPublisher.PublishBookingConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingConfirmed event", zap.Error(err))
	}
	return nil
}

// StartRental moves a confirmed booking to active
func (s *BookingService) StartRental(ctx context.Context, bookingID, actorID int64) error {
	ctx, span := util.StartSpan(ctx, "BookingService.StartRental")
	defer span.End()

	booking, err := s.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}

	role, err := s.roleOf(booking, actorID)
	if err != nil {
		return err
	}

	if err := s.transition(ctx, booking, models.BookingStatusActive, role); err != nil {
		return err
	}

	util.RentalsStartedTotal.Inc()
	s.logger.Info("Rental started", zap.Int64("booking_id", bookingID))

	event := &models.RentalStartedEvent{
		BaseEvent: newBaseEvent(models.EventTypeRentalStarted),
		BookingID: bookingID,
	}
	if err := s.eventPublisher.PublishRentalStarted(ctx, event); err != nil {
		s.logger.Error("Failed to publish RentalStarted event", zap.Error(err))
	}
	return nil
}

// CompleteRental closes out an active rental
func (s *BookingService) CompleteRental(ctx context.Context, bookingID, actorID int64) error {
	ctx, span := util.StartSpan(ctx, "BookingService.CompleteRental")
	defer span.End()

	booking, err := s.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}

	role, err := s.roleOf(booking, actorID)
	if err != nil {
		return err
	}

	if err := s.transition(ctx, booking, models.BookingStatusCompleted, role); err != nil {
		return err
	}

	util.RentalsCompletedTotal.Inc()
	s.logger.Info("Rental completed", zap.Int64("booking_id", bookingID))

	event := &models.RentalCompletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeRentalCompleted),
		BookingID: bookingID,
	}
	if err := s.eventPublisher.PublishRentalCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish RentalCompleted event", zap.Error(err))
	}
	return nil
}

// CancelBooking cancels a pending or confirmed booking. The row is kept for
// audit; cancelled is the deletion marker.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID int64) error {
	ctx, span := util.StartSpan(ctx, "BookingService.CancelBooking")
	defer span.End()

	booking, err := s.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}

	role, err := s.roleOf(booking, actorID)
	if err != nil {
		return err
	}

	if err := s.transition(ctx, booking, models.BookingStatusCancelled, role); err != nil {
		return err
	}

	util.BookingsCancelledTotal.Inc()
	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actorID))

	event := &models.BookingCancelledEvent{
		BaseEvent: newBaseEvent(models.EventTypeBookingCancelled),
		BookingID: bookingID,
		ActorID:   actorID,
	}
	if err := s.eventPublisher.PublishBookingCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish BookingCancelled event", zap.Error(err))
	}
	return nil
}

// GetBooking retrieves a booking with its payment attempt history
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*models.Booking, []models.Payment, error) {
	booking, err := s.store.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}

	payments, err := s.store.GetPaymentsByBookingID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}

	return booking, payments, nil
}

// ListBookingsByRenter retrieves bookings created by a renter
func (s *BookingService) ListBookingsByRenter(ctx context.Context, renterID int64) ([]models.Booking, error) {
	return s.store.GetBookingsByRenterID(ctx, renterID)
}

// ListBookingsByOwner retrieves bookings against an owner's products
func (s *BookingService) ListBookingsByOwner(ctx context.Context, ownerID int64) ([]models.Booking, error) {
	return s.store.GetBookingsByOwnerID(ctx, ownerID)
}

// transition evaluates the guard against the loaded booking state and
// commits via compare-and-set. A CAS miss means a concurrent writer won;
// the loser gets InvalidStateError.
func (s *BookingService) transition(
	ctx context.Context,
	booking *models.Booking,
	to models.BookingStatus,
	role models.Role,
) error {
	verdict := guard.Evaluate(guard.Request{
		From:              booking.Status,
		PaymentStatus:     booking.PaymentStatus,
		To:                to,
		Actor:             role,
		BeforePeriodStart: time.Now().Before(booking.PeriodStart),
	})

	if !verdict.Allowed {
		util.BookingsFailedTotal.WithLabelValues(string(verdict.Reason)).Inc()
		if verdict.Reason == guard.ReasonPaymentIncomplete {
			return &PaymentNotCompletedError{
				BookingID:     booking.ID,
				PaymentStatus: booking.PaymentStatus,
			}
		}
		if verdict.Reason == guard.ReasonActorNotAllowed {
			return &AuthorizationError{Operation: fmt.Sprintf("move booking to %s", to)}
		}
		return &InvalidStateError{
			BookingID: booking.ID,
			From:      booking.Status,
			To:        to,
			Reason:    verdict.Reason,
		}
	}

	applied, err := s.store.CompareAndSetBookingStatus(ctx,
		booking.ID, booking.Status, booking.PaymentStatus, to)
	if err != nil {
		return err
	}
	if !applied {
		util.BookingsFailedTotal.WithLabelValues("concurrent_update").Inc()
		return &InvalidStateError{
			BookingID: booking.ID,
			From:      booking.Status,
			To:        to,
			Reason:    "booking state changed concurrently",
		}
	}

	booking.Status = to
	return nil
}

// roleOf resolves the actor's role on this booking
func (s *BookingService) roleOf(booking *models.Booking, actorID int64) (models.Role, error) {
	switch actorID {
	case booking.RenterID:
		return models.RoleRenter, nil
	case booking.OwnerID:
		return models.RoleOwner, nil
	}
	return "", &AuthorizationError{ActorID: actorID, Operation: "operate on booking"}
}

// TotalPrice computes the booking price: price per day times the number of
// rental days, charging at least one day.
func TotalPrice(pricePerDay int64, start, end time.Time) int64 {
	days := int64(end.Sub(start).Hours() / 24)
	if end.Sub(start)%(24*time.Hour) != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return pricePerDay * days
}

func validatePeriod(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return &ValidationError{Field: "period", Reason: "start and end are required"}
	}
	if !end.After(start) {
		return &ValidationError{Field: "period", Reason: "end must be after start"}
	}
	return nil
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
