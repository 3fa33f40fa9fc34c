// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// SweepFunc is notified after each sweep with the kind of record swept
// and how many were removed. Used to feed metrics without coupling the
// sweeper to the metrics registry.
type SweepFunc func(kind string, removed int64)

// Sweeper periodically purges expired sessions and verification tokens
// and prunes drained rate limiter windows.
type Sweeper struct {
	sessions SessionRepository
	tokens   VerificationTokenRepository
	limiter  *SlidingWindowLimiter
	interval time.Duration
	logger   *slog.Logger

	// OnSwept and OnError are optional observation hooks.
	OnSwept SweepFunc
	OnError func(kind string)

	// LimiterWindow bounds how old a limiter window may be before it is
	// pruned. Must cover the largest policy window in use or live
	// windows get evicted early.
	LimiterWindow time.Duration
}

// NewSweeper creates a Sweeper. The limiter is optional.
func NewSweeper(sessions SessionRepository, tokens VerificationTokenRepository, limiter *SlidingWindowLimiter, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if sessions == nil {
		return nil, oops.Code("SWEEPER_INVALID").Errorf("session repository is required")
	}
	if tokens == nil {
		return nil, oops.Code("SWEEPER_INVALID").Errorf("token repository is required")
	}
	if interval <= 0 {
		return nil, oops.Code("SWEEPER_INVALID").Errorf("interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		sessions:      sessions,
		tokens:        tokens,
		limiter:       limiter,
		interval:      interval,
		logger:        logger,
		LimiterWindow: 24 * time.Hour,
	}, nil
}

// Run sweeps on the configured interval until ctx is cancelled. The
// first sweep happens after one interval, not immediately, so startup
// is not serialized behind a purge.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass. Failures are logged and reported through
// OnError; one store failing does not stop the other from being swept.
func (s *Sweeper) Sweep(ctx context.Context) {
	if n, err := s.sessions.DeleteExpired(ctx); err != nil {
		s.logger.Error("expired session sweep failed", "error", err)
		s.notifyError("sessions")
	} else if n > 0 {
		s.logger.Info("swept expired sessions", "count", n)
		s.notifySwept("sessions", n)
	}

	if n, err := s.tokens.DeleteExpired(ctx); err != nil {
		s.logger.Error("expired token sweep failed", "error", err)
		s.notifyError("tokens")
	} else if n > 0 {
		s.logger.Info("swept expired verification tokens", "count", n)
		s.notifySwept("tokens", n)
	}

	if s.limiter != nil {
		s.limiter.Prune(s.LimiterWindow, time.Now())
	}
}

func (s *Sweeper) notifySwept(kind string, n int64) {
	if s.OnSwept != nil {
		s.OnSwept(kind, n)
	}
}

func (s *Sweeper) notifyError(kind string) {
	if s.OnError != nil {
		s.OnError(kind)
	}
}
