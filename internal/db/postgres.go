// Package db opens the postgres pool behind the record store and applies the
// schema it expects.
package db

import (
	"context"
	"fmt"
	"time"

	"bloodlink/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool on config.DatabaseURL and pings it. Unqualified table
// names resolve to config.DatabaseSchema unless the URL sets search_path.
func Connect(ctx context.Context, config *types.Config) (*pgxpool.Pool, error) {
	poolConfig, err := buildPoolConfig(config)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func buildPoolConfig(config *types.Config) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if _, ok := poolConfig.ConnConfig.RuntimeParams["search_path"]; !ok && config.DatabaseSchema != "" {
		poolConfig.ConnConfig.RuntimeParams["search_path"] = config.DatabaseSchema
	}

	if config.DatabaseMaxConns > 0 {
		poolConfig.MaxConns = config.DatabaseMaxConns
	}
	if config.DatabaseMinConns > 0 {
		poolConfig.MinConns = config.DatabaseMinConns
	}
	if config.DatabaseMaxConnIdleMin > 0 {
		poolConfig.MaxConnIdleTime = time.Duration(config.DatabaseMaxConnIdleMin) * time.Minute
	}
	if config.DatabaseMaxConnLifetimeMin > 0 {
		poolConfig.MaxConnLifetime = time.Duration(config.DatabaseMaxConnLifetimeMin) * time.Minute
	}

	return poolConfig, nil
}
