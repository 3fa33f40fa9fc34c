// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web

import (
	"net"
	"net/http"
	"strconv"

	"github.com/samber/oops"

	"github.com/driftmark/driftmark/internal/auth"
	"github.com/driftmark/driftmark/pkg/errutil"
)

// clientIP extracts the client address from the request, without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// errorCode extracts the oops code from an error, or "".
func errorCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		code, _ := oopsErr.Code().(string)
		return code
	}
	return ""
}

// retryAfterSeconds reads the retry_after_ms context of a throttle
// error, rounded up to whole seconds for the Retry-After header.
func retryAfterSeconds(err error) int64 {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 1
	}
	ms, ok := oopsErr.Context()["retry_after_ms"].(int64)
	if !ok || ms <= 0 {
		return 1
	}
	return (ms + 999) / 1000
}

// handleLogin authenticates the posted credentials and issues a session
// cookie. Throttled attempts get a 429 with Retry-After; every other
// outcome is a redirect.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectError(w, r, LoginPath, CodeInvalidCredentials)
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	session, token, err := h.service.Login(r.Context(), email, password, r.UserAgent(), clientIP(r))
	if err != nil {
		switch errorCode(err) {
		case "AUTH_RATE_LIMITED":
			h.countThrottle(auth.LoginBucket)
			h.countLogin("throttled")
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(err), 10))
			http.Error(w, "too many login attempts", http.StatusTooManyRequests)

		case "AUTH_INVALID_CREDENTIALS":
			h.countLogin("invalid_credentials")
			redirectError(w, r, LoginPath, CodeInvalidCredentials)

		case "AUTH_ACCOUNT_PENDING":
			h.countLogin("pending")
			redirectError(w, r, LoginPath, CodeAccountPending)

		case "AUTH_ACCOUNT_SUSPENDED":
			h.countLogin("suspended")
			redirectError(w, r, LoginPath, CodeAccountSuspended)

		default:
			errutil.LogError(h.logger, "login failed", err)
			h.countLogin("error")
			redirectError(w, r, LoginPath, CodeServerError)
		}
		return
	}

	h.countLogin("success")
	SetSessionCookie(w, h.cookies, token, session.ExpiresAt)
	redirect(w, r, SettingsPath)
}
