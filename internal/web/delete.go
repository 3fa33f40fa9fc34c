// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web

import (
	"net/http"
)

// handleDeleteAccount removes the authenticated user's account.
// Sessions and verification tokens go with it through schema cascades.
//
// On failure the session cookie is left alone: the session is still
// valid server-side, and keeping the credential lets the user retry
// from the settings page instead of being logged out by a failed
// deletion.
func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	status, ok := SessionFromContext(r.Context())
	if !ok {
		// RequireSession did not run; treat as unauthenticated.
		redirect(w, r, LoginPath)
		return
	}

	if err := h.users.Delete(r.Context(), status.User.ID); err != nil {
		h.logger.Error("account deletion failed",
			"user_id", status.User.ID.String(),
			"error", err)
		redirectError(w, r, SettingsPath, CodeDeleteFailed)
		return
	}

	ClearSessionCookie(w, h.cookies)
	redirect(w, r, LoginPath+"?deleted=1")
}
