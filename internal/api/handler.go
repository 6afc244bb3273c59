package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"booking-service/internal/gateway"
	"booking-service/internal/service"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	bookingService *service.BookingService
	checker        *service.PaymentChecker
	synchronizer   *service.StatusSynchronizer
}

// NewHandler creates a new HTTP handler
func NewHandler(
	bookingService *service.BookingService,
	checker *service.PaymentChecker,
	synchronizer *service.StatusSynchronizer,
) *Handler {
	return &Handler{
		bookingService: bookingService,
		checker:        checker,
		synchronizer:   synchronizer,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/payment", h.paymentWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/bookings", h.createBooking)
		v1.GET("/bookings", h.listBookings)
		v1.GET("/bookings/:id", h.getBooking)
		v1.POST("/bookings/:id/payment", h.requestPayment)
		v1.POST("/bookings/:id/confirm", h.confirmBooking)
		v1.POST("/bookings/:id/start", h.startRental)
		v1.POST("/bookings/:id/complete", h.completeRental)
		v1.POST("/bookings/:id/cancel", h.cancelBooking)
		v1.GET("/payments/:orderId", h.checkPayment)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createBooking handles booking creation by the renter
func (h *Handler) createBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// getBooking returns a booking with its payment attempts
func (h *Handler) getBooking(c *gin.Context) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	booking, payments, err := h.bookingService.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking":  booking,
		"payments": payments,
	})
}

// listBookings lists bookings by renter or owner
func (h *Handler) listBookings(c *gin.Context) {
	if renterID := c.Query("renter_id"); renterID != "" {
		id, err := strconv.ParseInt(renterID, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid renter_id"})
			return
		}
		bookings, err := h.bookingService.ListBookingsByRenter(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": bookings})
		return
	}

	if ownerID := c.Query("owner_id"); ownerID != "" {
		id, err := strconv.ParseInt(ownerID, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid owner_id"})
			return
		}
		bookings, err := h.bookingService.ListBookingsByOwner(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookings": bookings})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "renter_id or owner_id query parameter required"})
}

// requestPayment mints (or returns the active) payment session
func (h *Handler) requestPayment(c *gin.Context) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	session, err := h.bookingService.RequestPayment(c.Request.Context(), bookingID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// confirmBooking handles owner confirmation
func (h *Handler) confirmBooking(c *gin.Context) {
	h.lifecycleAction(c, h.bookingService.ConfirmBooking)
}

// startRental handles rental start
func (h *Handler) startRental(c *gin.Context) {
	h.lifecycleAction(c, h.bookingService.StartRental)
}

// completeRental handles rental close-out
func (h *Handler) completeRental(c *gin.Context) {
	h.lifecycleAction(c, h.bookingService.CompleteRental)
}

// cancelBooking handles cancellation by either party
func (h *Handler) cancelBooking(c *gin.Context) {
	h.lifecycleAction(c, h.bookingService.CancelBooking)
}

// checkPayment triggers a user-initiated gateway status check
func (h *Handler) checkPayment(c *gin.Context) {
	payment, err := h.checker.Check(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// paymentWebhookRequest is the push notification payload from the gateway
type paymentWebhookRequest struct {
	OrderID       string     `json:"order_id" binding:"required"`
	Status        string     `json:"status" binding:"required"`
	TransactionID string     `json:"transaction_id"`
	PaidAt        *time.Time `json:"paid_at"`
}

// paymentWebhook feeds a pushed gateway report into synchronization; same
// path the polling reconciler takes
func (h *Handler) paymentWebhook(c *gin.Context) {
	var req paymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid webhook payload",
			"details": err.Error(),
		})
		return
	}

	status, err := gateway.MapStatus(req.Status)
	if err != nil {
		// Unknown status never advances state; acknowledge so the gateway
		// does not retry a payload we will never understand.
		util.PaymentSyncSkippedTotal.WithLabelValues("ambiguous_webhook").Inc()
		c.JSON(http.StatusOK, gin.H{"accepted": false})
		return
	}

	if err := h.synchronizer.ApplyGatewayStatus(c.Request.Context(),
		req.OrderID, status, req.TransactionID, req.PaidAt); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

type lifecycleFunc func(ctx context.Context, bookingID, actorID int64) error

// lifecycleAction runs a guard-checked status transition with the actor
// taken from the X-Actor-ID header
func (h *Handler) lifecycleAction(c *gin.Context, fn lifecycleFunc) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}

	actorID, err := strconv.ParseInt(c.GetHeader("X-Actor-ID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Actor-ID header required"})
		return
	}

	if err := fn(c.Request.Context(), bookingID, actorID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return 0, false
	}
	return id, true
}

// writeError maps domain error kinds to HTTP statuses. PaymentNotCompleted
// gets its own error code so UIs can branch on kind instead of matching
// message strings.
func writeError(c *gin.Context, err error) {
	var (
		validationErr *service.ValidationError
		authErr       *service.AuthorizationError
		stateErr      *service.InvalidStateError
		paymentErr    *service.PaymentNotCompletedError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error_code": "validation_error",
			"error":      validationErr.Error(),
		})
	case errors.As(err, &authErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error_code": "authorization_error",
			"error":      authErr.Error(),
		})
	case errors.As(err, &paymentErr):
		c.JSON(http.StatusConflict, gin.H{
			"error_code":     "payment_not_completed",
			"error":          paymentErr.Error(),
			"payment_status": paymentErr.PaymentStatus,
		})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{
			"error_code": "invalid_state",
			"error":      stateErr.Error(),
		})
	case errors.Is(err, store.ErrBookingNotFound), errors.Is(err, store.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error_code": "not_found",
			"error":      err.Error(),
		})
	case errors.Is(err, gateway.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error_code": "gateway_unavailable",
			"error":      err.Error(),
		})
	case errors.Is(err, gateway.ErrAmbiguous):
		c.JSON(http.StatusBadGateway, gin.H{
			"error_code": "gateway_ambiguous",
			"error":      err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error_code": "internal_error",
			"error":      err.Error(),
		})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
