// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

// Package store provides database connectivity and schema management.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const (
	// connectAttempts bounds startup pings. The database may still be
	// coming up when the service starts (compose, CI).
	connectAttempts = 5
	connectBaseWait = 250 * time.Millisecond
)

// NewPool connects to PostgreSQL and verifies the connection with a ping.
// Transient connection failures are retried with fibonacci backoff so the
// service survives starting before its database.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").
			With("operation", "parse database url").
			Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_POOL_FAILED").
			With("operation", "create connection pool").
			Wrap(err)
	}

	backoff := retry.WithMaxRetries(connectAttempts, retry.NewFibonacci(connectBaseWait))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_UNREACHABLE").
			With("operation", "ping database").
			With("attempts", connectAttempts+1).
			Wrap(err)
	}

	return pool, nil
}
