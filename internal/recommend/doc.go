// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

// Package recommend implements the hybrid book recommendation engine.
//
// The engine blends two signals per candidate book:
//
//   - a collaborative score: cosine similarity between the user's
//     rating-weighted centroid of ALS item factors and the candidate's
//     factor vector (factors are trained offline and loaded from a CSV
//     artifact once per process);
//   - a content score: cosine similarity between the user's
//     rating-weighted centroid of content features and the candidate's
//     features (normalized publication year, average rating and
//     log-scaled rating count, derived from the catalog once per
//     process).
//
// The blended score is a fixed affine combination (0.7 collaborative,
// 0.3 content by default). Users with too few ratings, or processes
// without a factor artifact, fall back to the popularity ranking; ranked
// lists that come up short are padded from the popularity ranking.
//
// Every failure mode degrades to popularity rather than surfacing an
// error: a missing artifact, malformed artifact rows, an empty catalog
// and zero-norm vectors are all non-fatal by design.
package recommend
