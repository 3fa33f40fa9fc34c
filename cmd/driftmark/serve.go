// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/driftmark/driftmark/internal/auth"
	"github.com/driftmark/driftmark/internal/auth/postgres"
	"github.com/driftmark/driftmark/internal/config"
	"github.com/driftmark/driftmark/internal/logging"
	"github.com/driftmark/driftmark/internal/observability"
	"github.com/driftmark/driftmark/internal/store"
	"github.com/driftmark/driftmark/internal/web"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the Driftmark HTTP server: the session lifecycle endpoints,
the metrics and health endpoints, and the background janitor that
purges expired sessions and verification tokens.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, autoMigrate)
		},
	}

	// Flag names mirror config keys so they merge over the file. Defaults
	// match config.Default so unchanged flags never clobber file values.
	def := config.Default()
	cmd.Flags().String("server.addr", def.Server.Addr, "HTTP listen address")
	cmd.Flags().String("database.url", def.Database.URL, "PostgreSQL connection URL")
	cmd.Flags().String("logging.format", def.Logging.Format, "log format (json or text)")
	cmd.Flags().String("observability.addr", def.Observability.Addr, "metrics/health HTTP address")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending migrations on startup")

	return cmd
}

// databaseURL resolves the connection string from config or environment.
func databaseURL(cfg *config.Config) (string, error) {
	if cfg.Database.URL != "" {
		return cfg.Database.URL, nil
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url, nil
	}
	return "", oops.Code("CONFIG_INVALID").
		Errorf("database URL is required (database.url or DATABASE_URL)")
}

func runServe(ctx context.Context, cfg *config.Config, autoMigrate bool) error {
	logging.SetDefault("driftmark", version, cfg.Logging.Format)
	logger := slog.Default()

	dbURL, err := databaseURL(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if autoMigrate {
		if err := migrateUp(dbURL, logger); err != nil {
			return err
		}
	}

	pool, err := store.NewPool(ctx, dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := postgres.NewUserRepository(pool)
	sessions := postgres.NewSessionRepository(pool)
	tokens := postgres.NewVerificationTokenRepository(pool)

	limiter := auth.NewSlidingWindowLimiter()
	hasher := auth.NewArgon2idHasher()

	service, err := auth.NewService(users, sessions, hasher, limiter,
		auth.WithLoginPolicy(auth.LimitPolicy{
			Limit:  cfg.Auth.LoginLimit,
			Window: cfg.Auth.LoginWindow,
		}),
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
	)
	if err != nil {
		return err
	}
	validator, err := auth.NewSessionValidator(sessions, users, logger)
	if err != nil {
		return err
	}
	verifier, err := auth.NewEmailVerificationService(users, tokens, cfg.Auth.RequireAdminApproval, logger,
		auth.WithTokenTTL(cfg.Auth.VerificationTokenTTL),
	)
	if err != nil {
		return err
	}

	// Observability server with the auth metrics.
	obs := observability.NewServer(cfg.Observability.Addr, func() bool {
		return pool.Ping(ctx) == nil
	})
	obsErrCh, err := obs.Start()
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = obs.Stop(stopCtx)
	}()
	metrics := obs.Metrics()

	handler, err := web.NewHandler(web.HandlerConfig{
		Service:   service,
		Validator: validator,
		Verifier:  verifier,
		Users:     users,
		Limiter:   limiter,
		VerifyPolicy: auth.LimitPolicy{
			Limit:  cfg.Auth.VerifyLimit,
			Window: cfg.Auth.VerifyWindow,
		},
		Cookies: web.CookieConfig{
			Name:   cfg.Server.CookieName,
			Secure: cfg.Server.CookieSecure,
		},
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	// Janitor: purge expired sessions and tokens, prune limiter windows.
	sweeper, err := auth.NewSweeper(sessions, tokens, limiter, cfg.Auth.SweepInterval, logger)
	if err != nil {
		return err
	}
	sweeper.OnSwept = func(kind string, removed int64) {
		metrics.SweptRecordsTotal.WithLabelValues(kind).Add(float64(removed))
	}
	sweeper.OnError = observability.RecordSweepFailure
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("http server started", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErrCh:
		return oops.Code("SERVER_FAILED").Wrap(err)
	case err := <-obsErrCh:
		return oops.Code("OBSERVABILITY_FAILED").Wrap(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	<-sweepDone

	logger.Info("shutdown complete")
	return nil
}
