// Package cache is the read-through layer that sits between the engine and
// the record store.
package cache

import (
	"context"
	"time"
)

// Backend stores opaque encoded values. A miss is reported with ok=false and
// a nil error.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
