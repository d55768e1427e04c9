package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Local is an in-process Backend on top of go-cache.
type Local struct {
	items *gocache.Cache
}

func NewLocal(defaultTTL, cleanupInterval time.Duration) *Local {
	return &Local{items: gocache.New(defaultTTL, cleanupInterval)}
}

func (l *Local) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := l.items.Get(key)
	if !found {
		return nil, false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		l.items.Delete(key)
		return nil, false, nil
	}
	return raw, true, nil
}

func (l *Local) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	l.items.Set(key, value, ttl)
	return nil
}

func (l *Local) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		l.items.Delete(key)
	}
	return nil
}
