// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web

import (
	"net/http"

	"github.com/driftmark/driftmark/internal/auth"
	"github.com/driftmark/driftmark/pkg/errutil"
)

// handleLogout revokes the current session and sends the browser back
// to the login page. The revoke is best effort: a failure is reported
// via the error code, but the cookie is cleared on every path. All
// outcomes funnel through the single clear-then-redirect tail below,
// so no early return can leave the browser holding the cookie. The
// clear must happen before the redirect, which writes the response
// headers out.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	target := LoginPath
	failed := false

	if token := sessionToken(r, h.cookies); token != "" {
		status, err := h.validator.Validate(r.Context(), token)
		switch {
		case err != nil:
			errutil.LogError(h.logger, "logout session lookup failed", err)
			failed = true

		case status.State == auth.StateAuthenticated:
			if err := h.service.Revoke(r.Context(), status.Session.ID); err != nil {
				// A session that is already gone is a successful logout.
				if errorCode(err) != "SESSION_NOT_FOUND" {
					errutil.LogError(h.logger, "logout revoke failed", err)
					failed = true
				}
			}
		}
		// Missing or invalid sessions have nothing to revoke.
	}

	ClearSessionCookie(w, h.cookies)
	if failed {
		redirectError(w, r, target, CodeServerError)
		return
	}
	redirect(w, r, target)
}
