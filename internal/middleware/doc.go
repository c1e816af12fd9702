// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

// Package middleware provides HTTP middleware for the API server:
// request ID assignment for log correlation and Prometheus request
// instrumentation. Cross-cutting concerns with off-the-shelf chi
// equivalents (RealIP, Recoverer, CORS, rate limiting) are taken from
// the chi ecosystem instead.
package middleware
