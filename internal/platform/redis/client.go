package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"caseflow/internal/platform/config"
)

// Client wraps the go-redis client with health checking capabilities.
// The engine uses it for per-case-number reopen locks; a nil Client means
// lock coordination stays in-process.
type Client struct {
	*redis.Client
}

// New creates a new Redis client from the provided configuration.
// Returns nil if the URL is empty (Redis not configured).
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	// Apply configuration overrides
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// NewFromClient wraps an existing go-redis client, mainly for tests that
// provision their own connection.
func NewFromClient(client *redis.Client) *Client {
	return &Client{Client: client}
}

// TryLock acquires a short-lived exclusive lock for the given case number.
// Returns false when another process holds it. The TTL guards against a
// crashed holder wedging reopens forever.
func (c *Client) TryLock(ctx context.Context, caseNumber string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, "caseflow:reopen-lock:"+caseNumber, 1, ttl).Result()
}

// Unlock releases a lock taken with TryLock.
func (c *Client) Unlock(ctx context.Context, caseNumber string) error {
	return c.Del(ctx, "caseflow:reopen-lock:"+caseNumber).Err()
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.Client.Close()
}
