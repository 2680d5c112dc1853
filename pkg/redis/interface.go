package redis

import (
	"context"
	"time"
)

// Client is the subset of Redis operations the exchange relies on.
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error
	// Get returns the value at key. A missing key returns ("", false, nil).
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
