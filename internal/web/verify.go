// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/driftmark/driftmark/pkg/errutil"
)

// handleVerifyEmail consumes an email verification token from the link
// in the verification mail. Attempts are throttled per client IP since
// the endpoint is unauthenticated and tokens are guessable in theory.
func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil {
		res := h.limiter.Check(VerifyBucket, clientIP(r), h.verifyPolicy, time.Now())
		if !res.Admitted {
			h.countThrottle(VerifyBucket)
			seconds := int64(res.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
			http.Error(w, "too many verification attempts", http.StatusTooManyRequests)
			return
		}
	}

	result, err := h.verifier.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		errutil.LogError(h.logger, "email verification failed", err)
		h.countVerification("error")
		redirectError(w, r, LoginPath, CodeServerError)
		return
	}

	if !result.Ok() {
		// Both rejection kinds read the same from outside; the
		// data-integrity case is already logged by the service.
		h.countVerification(string(result.Rejection))
		redirectError(w, r, LoginPath, CodeVerifyInvalid)
		return
	}

	h.countVerification("verified")
	redirect(w, r, LoginPath+"?verified=1")
}
