// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

// Package metrics exposes Prometheus instrumentation for the HTTP API,
// the recommendation engine, the vector caches and the catalog importer.
//
// Collectors are registered with the default registry via promauto at
// package load; the /metrics endpoint serves them with promhttp.
package metrics
