// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web

import (
	"context"
	"net/http"

	"github.com/driftmark/driftmark/internal/auth"
	"github.com/driftmark/driftmark/pkg/errutil"
)

type contextKey int

const sessionContextKey contextKey = iota

// SessionFromContext returns the authenticated session status stored by
// RequireSession.
func SessionFromContext(ctx context.Context) (auth.SessionStatus, bool) {
	status, ok := ctx.Value(sessionContextKey).(auth.SessionStatus)
	return status, ok
}

// RequireSession gates next behind an authenticated session. Requests
// without a cookie go to the login page with no error code; requests
// with a non-authenticating cookie get the cookie cleared and an error
// code explaining why. Authenticated requests proceed with the session
// status in the context.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r, h.cookies)

		status, err := h.validator.Validate(r.Context(), token)
		if err != nil {
			// Store failure, not a verdict on the session. Keep the
			// cookie so the user can retry once the store recovers.
			errutil.LogError(h.logger, "session validation failed", err)
			h.countValidation("error")
			redirectError(w, r, LoginPath, CodeServerError)
			return
		}

		switch status.State {
		case auth.StateAuthenticated:
			h.countValidation("authenticated")
			ctx := context.WithValue(r.Context(), sessionContextKey, status)
			next.ServeHTTP(w, r.WithContext(ctx))

		case auth.StateMissing:
			h.countValidation("missing")
			redirect(w, r, LoginPath)

		default:
			h.countValidation(string(status.Reason))
			ClearSessionCookie(w, h.cookies)
			redirectError(w, r, LoginPath, RedirectCode(status.Reason))
		}
	})
}
