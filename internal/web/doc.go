// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

// Package web serves the session lifecycle HTTP surface.
//
// Every handler responds with a redirect: success and failure alike
// land the browser back on a page, with the outcome carried in a query
// parameter from the fixed code table in redirect.go. The session
// cookie is the only credential; handlers that end a session clear it
// before the redirect is written, so the browser never keeps a cookie
// for a session the server no longer honors.
package web
