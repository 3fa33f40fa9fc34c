// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// UserStatus is the lifecycle status of an account.
type UserStatus string

// Account lifecycle statuses. A session only authenticates for an
// active user; pending and suspended accounts are rejected with
// distinct reasons.
const (
	StatusPending   UserStatus = "pending"
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
)

// Display name validation constraints.
const (
	MinDisplayNameLength = 1
	MaxDisplayNameLength = 60
)

// emailRegex is a pragmatic shape check, not full RFC 5322.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User represents a Driftmark account.
type User struct {
	ID              ulid.ULID
	Email           string
	DisplayName     string
	PasswordHash    string
	Status          UserStatus
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewUser creates a validated User in the pending status.
func NewUser(email, displayName, passwordHash string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if len(displayName) < MinDisplayNameLength || len(displayName) > MaxDisplayNameLength {
		return nil, oops.Code("AUTH_INVALID_DISPLAY_NAME").
			With("min", MinDisplayNameLength).
			With("max", MaxDisplayNameLength).
			Errorf("display name must be %d to %d characters", MinDisplayNameLength, MaxDisplayNameLength)
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateEmail validates the shape of an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email address is malformed")
	}
	return nil
}

// IsActive returns true if the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// MarkEmailVerified records the verification time. Activation is a
// separate decision owned by EmailVerificationService.
func (u *User) MarkEmailVerified(at time.Time) {
	u.EmailVerifiedAt = &at
	u.UpdatedAt = at
}

// UserRepository manages account persistence.
type UserRepository interface {
	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *User) error

	// Delete removes a user and, by cascade, their sessions and tokens.
	Delete(ctx context.Context, id ulid.ULID) error
}
