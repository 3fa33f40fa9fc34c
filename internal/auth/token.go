// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Verification token configuration.
const (
	VerificationTokenBytes  = 32             // 32 bytes = 64 hex chars
	VerificationTokenExpiry = 24 * time.Hour // 24 hour expiry
)

// EmailVerificationToken is a single-use proof of email ownership.
// Consumption is monotone: ConsumedAt, once set, is never cleared.
type EmailVerificationToken struct {
	ID         ulid.ULID
	UserID     ulid.ULID
	TokenHash  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// NewEmailVerificationToken creates a validated token record.
func NewEmailVerificationToken(userID ulid.ULID, tokenHash string, expiresAt time.Time) (*EmailVerificationToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("VERIFY_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("VERIFY_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("VERIFY_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &EmailVerificationToken{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpired returns true if the token has expired.
func (t *EmailVerificationToken) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the token would be expired at the given time.
func (t *EmailVerificationToken) IsExpiredAt(at time.Time) bool {
	return at.After(t.ExpiresAt)
}

// IsActive returns true if the token is unconsumed and unexpired at the
// given time.
func (t *EmailVerificationToken) IsActive(at time.Time) bool {
	return t.ConsumedAt == nil && !t.IsExpiredAt(at)
}

// GenerateVerificationToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token goes into the verification email; the hash is stored.
func GenerateVerificationToken() (token, hash string, err error) {
	tokenBytes := make([]byte, VerificationTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("VERIFY_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashVerificationToken(token)

	return token, hash, nil
}

// HashVerificationToken computes the SHA-256 hash of a verification token.
func HashVerificationToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyVerificationToken checks if the plaintext token matches the stored
// hash using constant-time comparison. Empty inputs never match.
func VerifyVerificationToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashVerificationToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

// VerificationTokenRepository manages verification token persistence.
type VerificationTokenRepository interface {
	// Create stores a new verification token.
	Create(ctx context.Context, token *EmailVerificationToken) error

	// GetActiveByTokenHash retrieves the unconsumed, unexpired token with
	// the given hash. Returns ErrNotFound if no such token exists; consumed
	// and expired tokens are indistinguishable from absent ones.
	GetActiveByTokenHash(ctx context.Context, tokenHash string) (*EmailVerificationToken, error)

	// Consume marks the token consumed at the given time. It succeeds at
	// most once per token: a second call returns ErrNotFound.
	Consume(ctx context.Context, id ulid.ULID, at time.Time) error

	// DeleteByUser removes all verification tokens for a user.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error

	// DeleteExpired removes all expired tokens and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)
}
