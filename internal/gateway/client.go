package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"booking-service/internal/util"

	"go.uber.org/zap"
)

// Client is an HTTP Adapter implementation against a REST-style gateway:
// POST /v1/sessions mints a session, GET /v1/sessions/{orderID} reads the
// current status.
type Client struct {
	baseURL     string
	apiKey      string
	callbackURL string
	currency    string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a gateway HTTP client
func NewClient(baseURL, apiKey, callbackURL, currency string) *Client {
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		callbackURL: callbackURL,
		currency:    currency,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: util.GetLogger(),
	}
}

type createSessionRequest struct {
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type createSessionResponse struct {
	Token string `json:"token"`
	URL   string `json:"payment_url"`
}

type statusResponse struct {
	Status        string     `json:"status"`
	TransactionID string     `json:"transaction_id"`
	PaidAt        *time.Time `json:"paid_at"`
}

// CreateSession mints a payment session for the given order
func (c *Client) CreateSession(ctx context.Context, orderID string, amount int64) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "gateway.CreateSession")
	defer span.End()

	start := time.Now()
	defer func() {
		util.GatewayRequestLatency.WithLabelValues("create_session").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(createSessionRequest{
		OrderID:     orderID,
		Amount:      amount,
		Currency:    c.currency,
		CallbackURL: c.callbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		util.GatewayErrorsTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway rejected session for order %s: status %d", orderID, resp.StatusCode)
	}

	var sessionResp createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sessionResp); err != nil {
		util.GatewayErrorsTotal.WithLabelValues("ambiguous").Inc()
		return nil, fmt.Errorf("%w: undecodable session response: %v", ErrAmbiguous, err)
	}

	c.logger.Info("Payment session created",
		zap.String("order_id", orderID),
		zap.Int64("amount", amount))

	return &Session{
		OrderID: orderID,
		Token:   sessionResp.Token,
		URL:     sessionResp.URL,
	}, nil
}

// CheckStatus reads the current status of an order. Repeated calls with no
// gateway-side change return the same report.
func (c *Client) CheckStatus(ctx context.Context, orderID string) (*StatusReport, error) {
	ctx, span := util.StartSpan(ctx, "gateway.CheckStatus")
	defer span.End()

	start := time.Now()
	defer func() {
		util.GatewayRequestLatency.WithLabelValues("check_status").Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/sessions/"+orderID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		util.GatewayErrorsTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		util.GatewayErrorsTotal.WithLabelValues("ambiguous").Inc()
		return nil, fmt.Errorf("%w: unexpected status %d for order %s", ErrAmbiguous, resp.StatusCode, orderID)
	}

	var statusResp statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		util.GatewayErrorsTotal.WithLabelValues("ambiguous").Inc()
		return nil, fmt.Errorf("%w: undecodable status response: %v", ErrAmbiguous, err)
	}

	status, err := MapStatus(statusResp.Status)
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("ambiguous").Inc()
		return nil, err
	}

	return &StatusReport{
		Status:        status,
		TransactionID: statusResp.TransactionID,
		PaidAt:        statusResp.PaidAt,
	}, nil
}
