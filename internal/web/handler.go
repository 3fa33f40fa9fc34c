// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web

import (
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/driftmark/driftmark/internal/auth"
	"github.com/driftmark/driftmark/internal/observability"
)

// VerifyBucket is the rate limiter bucket for verification requests,
// keyed by client IP.
const VerifyBucket = "verify-email"

// DefaultVerifyPolicy throttles verification attempts per client IP.
var DefaultVerifyPolicy = auth.LimitPolicy{Limit: 30, Window: auth.DefaultLoginPolicy.Window * 4}

// Handler serves the session lifecycle endpoints.
type Handler struct {
	service      *auth.Service
	validator    *auth.SessionValidator
	verifier     *auth.EmailVerificationService
	users        auth.UserRepository
	limiter      auth.Limiter
	verifyPolicy auth.LimitPolicy
	cookies      CookieConfig
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// HandlerConfig carries the dependencies for NewHandler.
type HandlerConfig struct {
	Service   *auth.Service
	Validator *auth.SessionValidator
	Verifier  *auth.EmailVerificationService
	Users     auth.UserRepository

	// Limiter throttles verification attempts; nil disables throttling.
	Limiter      auth.Limiter
	VerifyPolicy auth.LimitPolicy

	Cookies CookieConfig

	// Metrics may be nil; handlers then skip recording.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Service == nil {
		return nil, oops.Code("WEB_HANDLER_INVALID").Errorf("auth service is required")
	}
	if cfg.Validator == nil {
		return nil, oops.Code("WEB_HANDLER_INVALID").Errorf("session validator is required")
	}
	if cfg.Verifier == nil {
		return nil, oops.Code("WEB_HANDLER_INVALID").Errorf("verification service is required")
	}
	if cfg.Users == nil {
		return nil, oops.Code("WEB_HANDLER_INVALID").Errorf("user repository is required")
	}
	if cfg.Cookies.Name == "" {
		return nil, oops.Code("WEB_HANDLER_INVALID").Errorf("cookie name is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.VerifyPolicy == (auth.LimitPolicy{}) {
		cfg.VerifyPolicy = DefaultVerifyPolicy
	}

	return &Handler{
		service:      cfg.Service,
		validator:    cfg.Validator,
		verifier:     cfg.Verifier,
		users:        cfg.Users,
		limiter:      cfg.Limiter,
		verifyPolicy: cfg.VerifyPolicy,
		cookies:      cfg.Cookies,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}, nil
}

// Routes returns the handler's route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("POST /logout", h.handleLogout)
	mux.Handle("POST /account/delete", h.RequireSession(http.HandlerFunc(h.handleDeleteAccount)))
	mux.HandleFunc("GET /verify-email", h.handleVerifyEmail)
	return mux
}

// countLogin records a login outcome when metrics are wired.
func (h *Handler) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

// countValidation records a session validation state when metrics are wired.
func (h *Handler) countValidation(state string) {
	if h.metrics != nil {
		h.metrics.SessionValidationsTotal.WithLabelValues(state).Inc()
	}
}

// countVerification records a verification outcome when metrics are wired.
func (h *Handler) countVerification(outcome string) {
	if h.metrics != nil {
		h.metrics.VerificationsTotal.WithLabelValues(outcome).Inc()
	}
}

// countThrottle records a limiter rejection when metrics are wired.
func (h *Handler) countThrottle(bucket string) {
	if h.metrics != nil {
		h.metrics.ThrottleRejectionsTotal.WithLabelValues(bucket).Inc()
	}
}
