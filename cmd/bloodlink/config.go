package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bloodlink/internal/cache"
	"bloodlink/internal/db"
	"bloodlink/internal/metrics"
	"bloodlink/internal/store"
	"bloodlink/pkg/types"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	storeBackendPostgres = "postgres"
	storeBackendFirebase = "firebase"
	storeBackendMemory   = "memory"

	cacheBackendLocal = "local"
	cacheBackendRedis = "redis"
)

func loadConfig() (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))

	switch c.StoreBackend {
	case storeBackendPostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("set DATABASE_URL")
		}
	case storeBackendFirebase:
		if c.FirebaseDatabaseURL == "" {
			return nil, fmt.Errorf("set FIREBASE_DATABASE_URL")
		}
	case storeBackendMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.CacheBackend != cacheBackendLocal && c.CacheBackend != cacheBackendRedis {
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	if c.DatabaseSchema == "" {
		c.DatabaseSchema = "bloodlink"
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	if c.DefaultRadiusKm <= 0 {
		c.DefaultRadiusKm = 50
	}

	if c.SweepSchedule == "" {
		c.SweepSchedule = "@every 1m"
	}

	return c, nil
}

func newLogger(cfg *types.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).WithField("log_level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// backend holds whatever the configured record store needs closed on exit.
type backend struct {
	store store.RecordStore
	close []func()
}

func (b *backend) Close() {
	for i := len(b.close) - 1; i >= 0; i-- {
		b.close[i]()
	}
}

// openStore connects the configured record store without a cache in front.
func openStore(ctx context.Context, cfg *types.Config) (*backend, error) {
	b := new(backend)

	switch cfg.StoreBackend {
	case storeBackendPostgres:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.close = append(b.close, pool.Close)
		b.store = store.NewPostgres(pool)
	case storeBackendFirebase:
		fb, err := store.NewFirebase(ctx, cfg.FirebaseDatabaseURL, cfg.FirebaseCredentialsFile)
		if err != nil {
			return nil, err
		}
		b.store = fb
	default:
		b.store = store.NewMemory()
	}

	return b, nil
}

// openCachedStore wraps the configured record store in the read-through
// cache.
func openCachedStore(ctx context.Context, cfg *types.Config, logger *logrus.Logger, m *metrics.Metrics) (*backend, error) {
	b, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ttl := cache.TTLs{
		Collection: time.Duration(cfg.CacheCollectionTTLSec) * time.Second,
		Record:     time.Duration(cfg.CacheRecordTTLSec) * time.Second,
	}

	var cacheBackend cache.Backend
	switch cfg.CacheBackend {
	case cacheBackendRedis:
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.close = append(b.close, func() { _ = client.Close() })
		cacheBackend = cache.NewRedis(client, cache.DefaultRedisPrefix)
	default:
		cacheBackend = cache.NewLocal(ttl.Record, 5*time.Minute)
	}

	b.store = cache.NewStore(b.store, cacheBackend, ttl, logger, m)
	logger.WithFields(logrus.Fields{
		"store": cfg.StoreBackend,
		"cache": cfg.CacheBackend,
	}).Info("record store ready")

	return b, nil
}
