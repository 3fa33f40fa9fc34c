// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web

import (
	"net/http"
	"net/url"

	"github.com/driftmark/driftmark/internal/auth"
)

// Page paths handlers redirect to.
const (
	LoginPath    = "/login"
	SettingsPath = "/settings"
)

// Error codes carried in the ?error= query parameter.
const (
	CodeSessionExpired     = "session-expired"
	CodeAccountPending     = "account-pending"
	CodeAccountSuspended   = "account-suspended"
	CodeSessionInvalid     = "session-invalid"
	CodeInvalidCredentials = "invalid-credentials"
	CodeServerError        = "server-error"
	CodeDeleteFailed       = "delete-failed"
	CodeVerifyInvalid      = "verify-invalid"
)

// RedirectCode maps a session rejection reason to its ?error= code.
// Total: unknown reasons fall through to session-invalid rather than
// leaking an internal value into a URL.
func RedirectCode(reason auth.InvalidReason) string {
	switch reason {
	case auth.ReasonSessionExpired:
		return CodeSessionExpired
	case auth.ReasonUserPending:
		return CodeAccountPending
	case auth.ReasonUserSuspended:
		return CodeAccountSuspended
	default:
		return CodeSessionInvalid
	}
}

// redirect issues a 303 so the browser re-requests the target with GET
// regardless of the method that landed here.
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectError issues a redirect to path with the given ?error= code.
func redirectError(w http.ResponseWriter, r *http.Request, path, code string) {
	redirect(w, r, path+"?error="+url.QueryEscape(code))
}
