// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// LoginBucket is the rate-limit bucket for login attempts, keyed by
// lowercased email.
const LoginBucket = "login"

// DefaultLoginPolicy throttles login attempts per account.
var DefaultLoginPolicy = LimitPolicy{Limit: 10, Window: 15 * time.Minute}

// Service provides login and session revocation.
type Service struct {
	users      UserRepository
	sessions   SessionRepository
	hasher     PasswordHasher
	limiter    Limiter
	policy     LimitPolicy
	sessionTTL time.Duration
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithLoginPolicy overrides the login throttle policy.
func WithLoginPolicy(p LimitPolicy) ServiceOption {
	return func(s *Service) {
		s.policy = p
	}
}

// WithSessionTTL overrides the lifetime of issued sessions.
func WithSessionTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.sessionTTL = d
	}
}

// NewService creates a Service. limiter may be nil to disable login
// throttling (tests).
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, limiter Limiter, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	s := &Service{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		limiter:    limiter,
		policy:     DefaultLoginPolicy,
		sessionTTL: SessionTokenExpiry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks. We still run password verification to make response time
// consistent. This is NOT a real credential - it's a fake hash that will
// never match any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Login authenticates a user by email and password and creates a session.
// Returns the session and plaintext token. Uses constant-time operations
// to prevent timing-based address enumeration, and a sliding-window
// throttle per account that is reset on success.
func (s *Service) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*UserSession, string, error) {
	identifier := strings.ToLower(strings.TrimSpace(email))

	if s.limiter != nil {
		if res := s.limiter.Check(LoginBucket, identifier, s.policy, time.Now()); !res.Admitted {
			return nil, "", oops.Code("AUTH_RATE_LIMITED").
				With("retry_after_ms", res.RetryAfter.Milliseconds()).
				Errorf("too many login attempts")
		}
	}

	user, lookupErr := s.users.GetByEmail(ctx, identifier)

	// Verify against a dummy digest when the account is unknown so the
	// response time does not reveal existence.
	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid := s.hasher.Verify(password, targetHash)

	if !userExists || !valid {
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
	}

	// Status gate after password verification to keep timing uniform.
	switch user.Status {
	case StatusActive:
	case StatusPending:
		return nil, "", oops.Code("AUTH_ACCOUNT_PENDING").Errorf("account is awaiting verification")
	case StatusSuspended:
		return nil, "", oops.Code("AUTH_ACCOUNT_SUSPENDED").Errorf("account is suspended")
	default:
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
	}

	// Successful sensitive action clears the failed-attempt window.
	if s.limiter != nil {
		s.limiter.Reset(LoginBucket, identifier)
	}

	// Recompute legacy or re-parameterized digests while we hold the
	// plaintext. Best effort; login succeeds regardless.
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			user.PasswordHash = newHash
			user.UpdatedAt = time.Now()
			_ = s.users.Update(ctx, user) //nolint:errcheck // Best effort
		}
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewUserSession(user.ID, tokenHash, userAgent, ipAddress, time.Now().Add(s.sessionTTL))
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	return session, token, nil
}

// Revoke deletes a session by ID.
func (s *Service) Revoke(ctx context.Context, sessionID ulid.ULID) error {
	err := s.sessions.Delete(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").
				With("session_id", sessionID.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_REVOKE_FAILED").
			With("operation", "delete session").
			With("session_id", sessionID.String()).
			Wrap(err)
	}
	return nil
}
