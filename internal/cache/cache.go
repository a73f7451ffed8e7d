package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	GetString(ctx context.Context, key string) (val string, hit bool, err error)
	SetString(ctx context.Context, key, val string, ttl time.Duration) error
	// SetNX writes key only when absent and reports whether it did.
	SetNX(ctx context.Context, key, val string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
}
