// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/driftmark/driftmark/internal/auth"
)

// fakeUserRepo is an in-memory auth.UserRepository. Any of the err fields
// force that operation to fail.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User

	getErr    error
	deleteErr error
}

func newFakeUserRepo(users ...*auth.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[ulid.ULID]*auth.User)}
	for _, u := range users {
		copied := *u
		r.users[u.ID] = &copied
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return auth.ErrNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// fakeSessionRepo is an in-memory auth.SessionRepository.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[ulid.ULID]*auth.UserSession

	getErr    error
	deleteErr error
}

func newFakeSessionRepo(sessions ...*auth.UserSession) *fakeSessionRepo {
	r := &fakeSessionRepo{sessions: make(map[ulid.ULID]*auth.UserSession)}
	for _, s := range sessions {
		copied := *s
		r.sessions[s.ID] = &copied
	}
	return r
}

func (r *fakeSessionRepo) Create(_ context.Context, session *auth.UserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*auth.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, s := range r.sessions {
		if s.TokenHash == tokenHash {
			copied := *s
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *fakeSessionRepo) GetByUser(_ context.Context, userID ulid.ULID) ([]*auth.UserSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*auth.UserSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastSeenAt = lastSeen
		return nil
	}
	return auth.ErrNotFound
}

func (r *fakeSessionRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.sessions[id]; !ok {
		return auth.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for id, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// fakeTokenRepo is an in-memory auth.VerificationTokenRepository with
// exactly-once Consume semantics.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[ulid.ULID]*auth.EmailVerificationToken
}

func newFakeTokenRepo(tokens ...*auth.EmailVerificationToken) *fakeTokenRepo {
	r := &fakeTokenRepo{tokens: make(map[ulid.ULID]*auth.EmailVerificationToken)}
	for _, tk := range tokens {
		copied := *tk
		r.tokens[tk.ID] = &copied
	}
	return r
}

func (r *fakeTokenRepo) Create(_ context.Context, token *auth.EmailVerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.tokens[token.ID] = &copied
	return nil
}

func (r *fakeTokenRepo) GetActiveByTokenHash(_ context.Context, tokenHash string) (*auth.EmailVerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, tk := range r.tokens {
		if tk.TokenHash == tokenHash && tk.IsActive(now) {
			copied := *tk
			return &copied, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *fakeTokenRepo) Consume(_ context.Context, id ulid.ULID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tk, ok := r.tokens[id]
	if !ok || tk.ConsumedAt != nil {
		return auth.ErrNotFound
	}
	consumed := at
	tk.ConsumedAt = &consumed
	return nil
}

func (r *fakeTokenRepo) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, tk := range r.tokens {
		if tk.UserID == userID {
			delete(r.tokens, id)
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for id, tk := range r.tokens {
		if tk.IsExpiredAt(now) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

// Compile-time interface checks.
var (
	_ auth.UserRepository              = (*fakeUserRepo)(nil)
	_ auth.SessionRepository           = (*fakeSessionRepo)(nil)
	_ auth.VerificationTokenRepository = (*fakeTokenRepo)(nil)
)
