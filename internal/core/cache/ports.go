package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key does not exist or has expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the key/value store behind carts, cart locks and the order lookup cache.
// A ttl of 0 stores the value without expiry.
type Cache interface {
	// Get returns the value under key, or a wrapped ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Take returns the value under key and removes it in one step, so two
	// concurrent callers never both receive it. A missing key is ErrCacheMiss.
	Take(ctx context.Context, key string) ([]byte, error)

	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// DeleteIfEqual removes key only while it still holds value.
	DeleteIfEqual(ctx context.Context, key string, value []byte) (bool, error)

	// SetVersioned stores value unless a higher version was already written for
	// key. The version is kept beside the value and survives Delete, so a late
	// write of older data cannot replace newer data.
	SetVersioned(ctx context.Context, key string, value []byte, version int64, ttl time.Duration) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}
