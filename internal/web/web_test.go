// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftmark/driftmark/internal/auth"
	"github.com/driftmark/driftmark/internal/web"
)

var testCookies = web.CookieConfig{Name: "driftmark_session", Secure: false}

// env wires real auth services over in-memory repositories behind the
// HTTP handler under test.
type env struct {
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	tokens   *fakeTokenRepo
	limiter  *auth.SlidingWindowLimiter
	hasher   *auth.Argon2idHasher
	handler  *web.Handler
	mux      *http.ServeMux
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := &env{
		users:    newFakeUserRepo(),
		sessions: newFakeSessionRepo(),
		tokens:   newFakeTokenRepo(),
		limiter:  auth.NewSlidingWindowLimiter(),
		hasher:   auth.NewArgon2idHasher(),
	}

	service, err := auth.NewService(e.users, e.sessions, e.hasher, e.limiter)
	require.NoError(t, err)
	validator, err := auth.NewSessionValidator(e.sessions, e.users, logger)
	require.NoError(t, err)
	verifier, err := auth.NewEmailVerificationService(e.users, e.tokens, false, logger)
	require.NoError(t, err)

	handler, err := web.NewHandler(web.HandlerConfig{
		Service:      service,
		Validator:    validator,
		Verifier:     verifier,
		Users:        e.users,
		Limiter:      e.limiter,
		VerifyPolicy: auth.LimitPolicy{Limit: 3, Window: time.Minute},
		Cookies:      testCookies,
		Logger:       logger,
	})
	require.NoError(t, err)

	e.handler = handler
	e.mux = handler.Routes()
	return e
}

// seedActiveUser stores an active user whose password is "correct horse".
func (e *env) seedActiveUser(t *testing.T, email string) *auth.User {
	t.Helper()
	hash, err := e.hasher.Hash("correct horse")
	require.NoError(t, err)
	user, err := auth.NewUser(email, "Test User", hash)
	require.NoError(t, err)
	user.Status = auth.StatusActive
	require.NoError(t, e.users.Create(t.Context(), user))
	return user
}

// seedSession stores a live session for the user and returns the
// plaintext token a browser would hold.
func (e *env) seedSession(t *testing.T, user *auth.User) string {
	t.Helper()
	token, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)
	session, err := auth.NewUserSession(user.ID, hash, "test-agent", "127.0.0.1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, e.sessions.Create(t.Context(), session))
	return token
}

// do performs a request against the handler. A non-empty token rides
// along as the session cookie.
func (e *env) do(method, target, token string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookies.Name, Value: token})
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

// findCookie returns the Set-Cookie for the session cookie, or nil.
func findCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookies.Name {
			return c
		}
	}
	return nil
}

func assertCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	cookie := findCookie(rec)
	require.NotNil(t, cookie, "expected a Set-Cookie clearing the session")
	require.Empty(t, cookie.Value)
	require.Negative(t, cookie.MaxAge)
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, location, rec.Header().Get("Location"))
}
