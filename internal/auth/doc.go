// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

// Package auth provides the session and credential lifecycle core for
// Driftmark accounts.
//
// # Domain Types
//
// Domain types (User, UserSession, EmailVerificationToken) should be
// created using their respective constructors:
//   - NewUser - creates a User with validated email and password hash
//   - NewUserSession - creates a UserSession with validated user and expiry
//   - NewEmailVerificationToken - creates a token with validated user and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors. Secrets are never persisted in plaintext: sessions and
// verification tokens store SHA-256 hashes, passwords store argon2id
// digests.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - login, session issuance, session revocation
//   - SessionValidator - opaque token to authentication status
//   - EmailVerificationService - exactly-once email verification
//
// The sliding-window Limiter throttles sensitive operations per
// (bucket, identifier) key. The Sweeper periodically purges expired
// sessions and verification tokens and prunes stale limiter windows.
package auth
