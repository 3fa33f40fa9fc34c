// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// SessionState classifies an inbound request's authentication status.
type SessionState int

const (
	// StateMissing means no token was presented.
	StateMissing SessionState = iota

	// StateInvalid means a token was presented but does not authenticate;
	// the Reason says why.
	StateInvalid

	// StateAuthenticated means the token resolved to a live session of an
	// active user.
	StateAuthenticated
)

// InvalidReason says why a presented token does not authenticate.
type InvalidReason string

const (
	// ReasonSessionExpired covers both absent and expired sessions; the
	// two are deliberately indistinguishable so the response leaks no
	// record existence.
	ReasonSessionExpired InvalidReason = "session-expired"

	// ReasonUserPending means the session's user has not been activated.
	ReasonUserPending InvalidReason = "user-pending"

	// ReasonUserSuspended means the session's user is suspended.
	ReasonUserSuspended InvalidReason = "user-suspended"

	// ReasonSessionInvalid covers any other non-authenticating state.
	ReasonSessionInvalid InvalidReason = "session-invalid"
)

// SessionStatus is the tagged result of validating a token.
// User and Session are set only when State is StateAuthenticated;
// Reason is set only when State is StateInvalid.
type SessionStatus struct {
	State   SessionState
	Reason  InvalidReason
	User    *User
	Session *UserSession
}

// SessionValidator maps an opaque session token to an authentication
// status by consulting the session and user stores.
type SessionValidator struct {
	sessions SessionRepository
	users    UserRepository
	logger   *slog.Logger
}

// NewSessionValidator creates a SessionValidator.
func NewSessionValidator(sessions SessionRepository, users UserRepository, logger *slog.Logger) (*SessionValidator, error) {
	if sessions == nil {
		return nil, oops.Code("VALIDATOR_INVALID_DEPS").Errorf("sessions repository is required")
	}
	if users == nil {
		return nil, oops.Code("VALIDATOR_INVALID_DEPS").Errorf("users repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionValidator{sessions: sessions, users: users, logger: logger}, nil
}

// Validate resolves a token to a SessionStatus. The error return carries
// only store failures; lookup misses and rejections are statuses, never
// errors, so every caller handles each case explicitly.
func (v *SessionValidator) Validate(ctx context.Context, token string) (SessionStatus, error) {
	if token == "" {
		return SessionStatus{State: StateMissing}, nil
	}

	session, err := v.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SessionStatus{State: StateInvalid, Reason: ReasonSessionExpired}, nil
		}
		return SessionStatus{}, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return SessionStatus{State: StateInvalid, Reason: ReasonSessionExpired}, nil
	}

	user, err := v.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Session without a user is a dangling record, not an outage.
			v.logger.Warn("session references missing user",
				"session_id", session.ID.String(),
				"user_id", session.UserID.String())
			return SessionStatus{State: StateInvalid, Reason: ReasonSessionInvalid}, nil
		}
		return SessionStatus{}, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session user").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}

	switch user.Status {
	case StatusActive:
		// fall through to authenticated
	case StatusPending:
		return SessionStatus{State: StateInvalid, Reason: ReasonUserPending}, nil
	case StatusSuspended:
		return SessionStatus{State: StateInvalid, Reason: ReasonUserSuspended}, nil
	default:
		return SessionStatus{State: StateInvalid, Reason: ReasonSessionInvalid}, nil
	}

	// Best effort; validation succeeds regardless.
	_ = v.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck

	return SessionStatus{State: StateAuthenticated, User: user, Session: session}, nil
}
