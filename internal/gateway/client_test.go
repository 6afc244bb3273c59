package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"booking-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"token":"tok_abc","payment_url":"https://pay.example/tok_abc"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "https://svc.example/webhooks/payment", "USD")

	session, err := client.CreateSession(context.Background(), "RNT-123", 100000)
	require.NoError(t, err)
	assert.Equal(t, "RNT-123", session.OrderID)
	assert.Equal(t, "tok_abc", session.Token)
	assert.Equal(t, "https://pay.example/tok_abc", session.URL)
}

func TestCreateSession_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "", "USD")

	_, err := client.CreateSession(context.Background(), "RNT-123", 100000)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCheckStatus_Paid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sessions/RNT-123", r.URL.Path)
		w.Write([]byte(`{"status":"paid","transaction_id":"tx-9","paid_at":"2026-08-30T12:00:00Z"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "", "USD")

	report, err := client.CheckStatus(context.Background(), "RNT-123")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, report.Status)
	assert.Equal(t, "tx-9", report.TransactionID)
	require.NotNil(t, report.PaidAt)
}

func TestCheckStatus_Idempotent(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(`{"status":"processing","transaction_id":""}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "", "USD")

	for i := 0; i < 5; i++ {
		report, err := client.CheckStatus(context.Background(), "RNT-123")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusProcessing, report.Status)
	}
	assert.EqualValues(t, 5, calls)
}

func TestCheckStatus_AmbiguousResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"charge.review","transaction_id":""}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "", "USD")

	_, err := client.CheckStatus(context.Background(), "RNT-123")
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestCheckStatus_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(srv.URL, "test-key", "", "USD")

	_, err := client.CheckStatus(context.Background(), "RNT-123")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMapStatus(t *testing.T) {
	for _, raw := range []string{"pending", "processing", "paid", "failed", "expired", "cancelled"} {
		status, err := MapStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatus(raw), status)
	}

	_, err := MapStatus("settled")
	assert.True(t, errors.Is(err, ErrAmbiguous))
}
