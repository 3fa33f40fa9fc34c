// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmark/driftmark/internal/auth"
	"github.com/driftmark/driftmark/internal/web"
)

// probe runs RequireSession in front of a handler that records whether
// it was reached and with what session.
func probe(t *testing.T, e *env, token string) (*httptest.ResponseRecorder, *auth.SessionStatus) {
	t.Helper()
	var got *auth.SessionStatus
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, ok := web.SessionFromContext(r.Context())
		require.True(t, ok, "authenticated request must carry the session")
		got = &status
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookies.Name, Value: token})
	}
	rec := httptest.NewRecorder()
	e.handler.RequireSession(next).ServeHTTP(rec, req)
	return rec, got
}

func TestRequireSession_Authenticated(t *testing.T) {
	e := newEnv(t)
	user := e.seedActiveUser(t, "ada@example.com")
	token := e.seedSession(t, user)

	rec, status := probe(t, e, token)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, status)
	assert.Equal(t, auth.StateAuthenticated, status.State)
	assert.Equal(t, user.ID, status.User.ID)
}

func TestRequireSession_MissingCookie(t *testing.T) {
	e := newEnv(t)

	rec, status := probe(t, e, "")

	assert.Nil(t, status, "handler must not run")
	assertRedirect(t, rec, web.LoginPath)
	// No error code and no cookie churn for a plain anonymous visit.
	assert.Nil(t, findCookie(rec))
}

func TestRequireSession_InvalidSessions(t *testing.T) {
	tests := []struct {
		name string
		seed func(t *testing.T, e *env) string
		code string
	}{
		{
			name: "expired session",
			seed: func(t *testing.T, e *env) string {
				user := e.seedActiveUser(t, "ada@example.com")
				token, hash, err := auth.GenerateSessionToken()
				require.NoError(t, err)
				session, err := auth.NewUserSession(user.ID, hash, "", "", time.Now().Add(-time.Minute))
				require.NoError(t, err)
				require.NoError(t, e.sessions.Create(t.Context(), session))
				return token
			},
			code: web.CodeSessionExpired,
		},
		{
			name: "unknown token",
			seed: func(t *testing.T, e *env) string {
				return "no-such-token"
			},
			code: web.CodeSessionExpired,
		},
		{
			name: "pending user",
			seed: func(t *testing.T, e *env) string {
				user := e.seedActiveUser(t, "ada@example.com")
				token := e.seedSession(t, user)
				user.Status = auth.StatusPending
				require.NoError(t, e.users.Update(t.Context(), user))
				return token
			},
			code: web.CodeAccountPending,
		},
		{
			name: "suspended user",
			seed: func(t *testing.T, e *env) string {
				user := e.seedActiveUser(t, "ada@example.com")
				token := e.seedSession(t, user)
				user.Status = auth.StatusSuspended
				require.NoError(t, e.users.Update(t.Context(), user))
				return token
			},
			code: web.CodeAccountSuspended,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			token := tt.seed(t, e)

			rec, status := probe(t, e, token)

			assert.Nil(t, status, "handler must not run")
			// Invalid sessions get their cookie cleared so the browser
			// stops presenting a dead credential.
			assertCleared(t, rec)
			assertRedirect(t, rec, web.LoginPath+"?error="+tt.code)
		})
	}
}

func TestRequireSession_StoreFailureKeepsCookie(t *testing.T) {
	e := newEnv(t)
	user := e.seedActiveUser(t, "ada@example.com")
	token := e.seedSession(t, user)
	e.sessions.getErr = errors.New("db down")

	rec, status := probe(t, e, token)

	assert.Nil(t, status, "handler must not run")
	// A store outage is not a verdict on the session; the cookie
	// survives so the user recovers without logging in again.
	assert.Nil(t, findCookie(rec))
	assertRedirect(t, rec, web.LoginPath+"?error="+web.CodeServerError)
}
