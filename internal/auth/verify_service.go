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

// VerifyRejection says why a verification attempt was rejected.
type VerifyRejection string

const (
	// RejectInvalidToken is the routine case: no active token record
	// matches the presented secret (unknown, expired, or already consumed).
	RejectInvalidToken VerifyRejection = "invalid-token"

	// RejectUserNotFound means the token's owning user is gone. This is a
	// data-integrity fault and is logged at error severity.
	RejectUserNotFound VerifyRejection = "user-not-found"
)

// VerifyResult is the tagged result of a verification attempt.
// User is set on success; Rejection is set otherwise.
type VerifyResult struct {
	User      *User
	Rejection VerifyRejection
}

// Ok returns true if the verification succeeded.
func (r VerifyResult) Ok() bool {
	return r.User != nil
}

// EmailVerificationService consumes single-use verification tokens and
// transitions account status.
type EmailVerificationService struct {
	users  UserRepository
	tokens VerificationTokenRepository
	logger *slog.Logger

	// requireApproval leaves verified users pending until an admin
	// activates them.
	requireApproval bool

	// tokenTTL is the lifetime of issued verification tokens.
	tokenTTL time.Duration

	// now is the clock; replaceable in tests.
	now func() time.Time
}

// VerifyOption configures the EmailVerificationService.
type VerifyOption func(*EmailVerificationService)

// WithTokenTTL overrides the lifetime of issued verification tokens.
func WithTokenTTL(d time.Duration) VerifyOption {
	return func(s *EmailVerificationService) {
		s.tokenTTL = d
	}
}

// NewEmailVerificationService creates an EmailVerificationService.
func NewEmailVerificationService(users UserRepository, tokens VerificationTokenRepository, requireApproval bool, logger *slog.Logger, opts ...VerifyOption) (*EmailVerificationService, error) {
	if users == nil {
		return nil, oops.Code("VERIFY_INVALID_DEPS").Errorf("users repository is required")
	}
	if tokens == nil {
		return nil, oops.Code("VERIFY_INVALID_DEPS").Errorf("tokens repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &EmailVerificationService{
		users:           users,
		tokens:          tokens,
		requireApproval: requireApproval,
		logger:          logger,
		tokenTTL:        VerificationTokenExpiry,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Verify consumes the presented token exactly once and records the email
// verification on the owning user.
//
// The token is consumed before the user is touched. A failure between the
// two leaves the token burned and the user unverified: replay prevention
// wins over end-to-end success of a single attempt, and recovery is a
// fresh token via RequestVerification, never a retry of the same one.
func (s *EmailVerificationService) Verify(ctx context.Context, token string) (VerifyResult, error) {
	if token == "" {
		return VerifyResult{Rejection: RejectInvalidToken}, nil
	}

	record, err := s.tokens.GetActiveByTokenHash(ctx, HashVerificationToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return VerifyResult{Rejection: RejectInvalidToken}, nil
		}
		return VerifyResult{}, oops.Code("VERIFY_FAILED").
			With("operation", "get active token by hash").
			Wrap(err)
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Error("verification token references missing user",
				"token_id", record.ID.String(),
				"user_id", record.UserID.String())
			return VerifyResult{Rejection: RejectUserNotFound}, nil
		}
		return VerifyResult{}, oops.Code("VERIFY_FAILED").
			With("operation", "get token user").
			With("user_id", record.UserID.String()).
			Wrap(err)
	}

	now := s.now()

	if err := s.tokens.Consume(ctx, record.ID, now); err != nil {
		// A concurrent attempt may have consumed it first; that attempt
		// owns the verification and this one loses.
		if errors.Is(err, ErrNotFound) {
			return VerifyResult{Rejection: RejectInvalidToken}, nil
		}
		return VerifyResult{}, oops.Code("VERIFY_FAILED").
			With("operation", "consume token").
			With("token_id", record.ID.String()).
			Wrap(err)
	}

	user.MarkEmailVerified(now)
	if user.Status == StatusPending && !s.requireApproval {
		user.Status = StatusActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		// Token already burned; the user stays unverified until a new
		// token is issued.
		return VerifyResult{}, oops.Code("VERIFY_FAILED").
			With("operation", "update user").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	return VerifyResult{User: user}, nil
}

// RequestVerification issues a fresh verification token for the account
// with the given email and returns the plaintext token for mailing
// (sending the email is not this service's job). Unknown emails return an
// empty token with no error to prevent address enumeration.
func (s *EmailVerificationService) RequestVerification(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", oops.Code("VERIFY_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, hash, err := GenerateVerificationToken()
	if err != nil {
		return "", oops.Code("VERIFY_REQUEST_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	record, err := NewEmailVerificationToken(user.ID, hash, s.now().Add(s.tokenTTL))
	if err != nil {
		return "", oops.Code("VERIFY_REQUEST_FAILED").
			With("operation", "build token record").
			Wrap(err)
	}

	if err := s.tokens.Create(ctx, record); err != nil {
		return "", oops.Code("VERIFY_REQUEST_FAILED").
			With("operation", "store token").
			Wrap(err)
	}

	return token, nil
}
