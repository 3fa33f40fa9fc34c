// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftmark/driftmark/internal/auth"
)

func TestRedirectCode(t *testing.T) {
	tests := []struct {
		reason auth.InvalidReason
		want   string
	}{
		{auth.ReasonSessionExpired, "session-expired"},
		{auth.ReasonUserPending, "account-pending"},
		{auth.ReasonUserSuspended, "account-suspended"},
		{auth.ReasonSessionInvalid, "session-invalid"},
		// Unknown reasons never leak into the URL.
		{auth.InvalidReason("something-internal"), "session-invalid"},
		{auth.InvalidReason(""), "session-invalid"},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			assert.Equal(t, tt.want, RedirectCode(tt.reason))
		})
	}
}
