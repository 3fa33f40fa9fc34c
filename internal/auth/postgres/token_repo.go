// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/driftmark/driftmark/internal/auth"
)

// VerificationTokenRepository implements auth.VerificationTokenRepository
// using PostgreSQL.
type VerificationTokenRepository struct {
	db DB
}

// NewVerificationTokenRepository creates a new VerificationTokenRepository.
func NewVerificationTokenRepository(db DB) *VerificationTokenRepository {
	return &VerificationTokenRepository{db: db}
}

// Create stores a new verification token.
func (r *VerificationTokenRepository) Create(ctx context.Context, token *auth.EmailVerificationToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO email_verification_tokens (id, user_id, token_hash, expires_at, consumed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		token.ID.String(),
		token.UserID.String(),
		token.TokenHash,
		token.ExpiresAt,
		token.ConsumedAt,
		token.CreatedAt,
	)
	if err != nil {
		return oops.Code("VERIFY_TOKEN_CREATE_FAILED").
			With("operation", "insert email_verification_token").
			With("user_id", token.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetActiveByTokenHash retrieves the unconsumed, unexpired token with the
// given hash. Consumed, expired, and absent records are all ErrNotFound.
func (r *VerificationTokenRepository) GetActiveByTokenHash(ctx context.Context, tokenHash string) (*auth.EmailVerificationToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, consumed_at, created_at
		FROM email_verification_tokens
		WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > $2
	`, tokenHash, time.Now())

	token, err := r.scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("VERIFY_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("VERIFY_TOKEN_GET_FAILED").
			With("operation", "get active token by hash").
			Wrap(err)
	}
	return token, nil
}

// Consume marks the token consumed at the given time. The conditional
// update makes consumption exactly-once even under concurrent attempts:
// whichever statement matches the unconsumed row wins, every other call
// returns ErrNotFound.
func (r *VerificationTokenRepository) Consume(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE email_verification_tokens SET consumed_at = $2
		WHERE id = $1 AND consumed_at IS NULL
	`, id.String(), at)
	if err != nil {
		return oops.Code("VERIFY_TOKEN_CONSUME_FAILED").
			With("operation", "consume token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("VERIFY_TOKEN_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes all verification tokens for a user.
func (r *VerificationTokenRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM email_verification_tokens WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return oops.Code("VERIFY_TOKEN_DELETE_BY_USER_FAILED").
			With("operation", "delete tokens by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes all expired tokens and returns the count.
func (r *VerificationTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.Exec(ctx, `
		DELETE FROM email_verification_tokens WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, oops.Code("VERIFY_TOKEN_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// scanToken scans a row into an EmailVerificationToken.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *VerificationTokenRepository) scanToken(row pgx.Row) (*auth.EmailVerificationToken, error) {
	var (
		idStr      string
		userIDStr  string
		tokenHash  string
		expiresAt  time.Time
		consumedAt *time.Time
		createdAt  time.Time
	)

	err := row.Scan(&idStr, &userIDStr, &tokenHash, &expiresAt, &consumedAt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("VERIFY_TOKEN_SCAN_FAILED").
			With("operation", "scan email_verification_token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("VERIFY_TOKEN_INVALID_ID").
			With("operation", "parse token id").
			With("id", idStr).
			Wrap(err)
	}

	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("VERIFY_TOKEN_INVALID_USER_ID").
			With("operation", "parse user id").
			With("user_id", userIDStr).
			Wrap(err)
	}

	return &auth.EmailVerificationToken{
		ID:         id,
		UserID:     userID,
		TokenHash:  tokenHash,
		ExpiresAt:  expiresAt,
		ConsumedAt: consumedAt,
		CreatedAt:  createdAt,
	}, nil
}

// Compile-time interface check.
var _ auth.VerificationTokenRepository = (*VerificationTokenRepository)(nil)
