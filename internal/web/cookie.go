// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web

import (
	"net/http"
	"time"
)

// CookieConfig describes the session cookie the handlers issue.
type CookieConfig struct {
	Name   string
	Secure bool
}

// SetSessionCookie writes the session cookie carrying the opaque token.
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie. The attributes must
// match SetSessionCookie or browsers treat it as a different cookie and
// keep the stale credential.
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken reads the session token from the request cookie.
// Returns "" when the cookie is absent.
func sessionToken(r *http.Request, cfg CookieConfig) string {
	cookie, err := r.Cookie(cfg.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
