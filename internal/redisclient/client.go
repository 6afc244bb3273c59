package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireBookingLock takes a short-lived lock serializing payment-session
// minting for one booking
func (c *Client) AcquireBookingLock(ctx context.Context, bookingID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:booking:%d", bookingID), "1", ttl).Result()
}

// ReleaseBookingLock releases the payment-session lock
func (c *Client) ReleaseBookingLock(ctx context.Context, bookingID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:booking:%d", bookingID)).Err()
}

// CacheSession stores the active payment session for a booking with a TTL
// matching the gateway expiry window
func (c *Client) CacheSession(ctx context.Context, bookingID int64, session interface{}, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return c.rdb.Set(ctx, sessionKey(bookingID), data, ttl).Err()
}

// GetCachedSession loads the active payment session for a booking into dest.
// Returns false when no session is cached.
func (c *Client) GetCachedSession(ctx context.Context, bookingID int64, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, sessionKey(bookingID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached session: %w", err)
	}
	return true, nil
}

// InvalidateSession drops the cached session for a booking, used when an
// attempt reaches a terminal status
func (c *Client) InvalidateSession(ctx context.Context, bookingID int64) error {
	return c.rdb.Del(ctx, sessionKey(bookingID)).Err()
}

func sessionKey(bookingID int64) string {
	return fmt.Sprintf("paysession:%d", bookingID)
}
