// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Recommendation Metrics
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Total number of recommendation lists served",
		},
		[]string{"source"}, // "personalized", "content_only", "cold_start", "popularity_fallback"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Duration of recommendation list generation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecommendationBackfillItems = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_backfill_items_total",
			Help: "Total number of list entries filled from the popularity ranking",
		},
	)

	// Vector Cache Metrics
	VectorCacheBooks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vector_cache_books",
			Help: "Current number of books in each vector cache",
		},
		[]string{"cache"}, // "collaborative", "content"
	)

	VectorArtifactRowsSkipped = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vector_artifact_rows_skipped",
			Help: "Number of malformed rows skipped in the factor artifact load",
		},
	)

	// Catalog Import Metrics
	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_import_duration_seconds",
			Help:    "Duration of catalog import runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	ImportBooksProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_import_books_processed_total",
			Help: "Total number of catalog rows imported",
		},
	)

	ImportRowsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_import_rows_skipped_total",
			Help: "Total number of malformed catalog rows skipped",
		},
	)

	// Rating Metrics
	RatingsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratings_upserted_total",
			Help: "Total number of rating submissions accepted",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendation records one served recommendation list.
func RecordRecommendation(source string, backfilled int, duration time.Duration) {
	RecommendationsServed.WithLabelValues(source).Inc()
	RecommendationDuration.Observe(duration.Seconds())
	if backfilled > 0 {
		RecommendationBackfillItems.Add(float64(backfilled))
	}
}

// UpdateVectorCaches publishes the current vector cache sizes.
func UpdateVectorCaches(collaborative, content, skippedRows int) {
	VectorCacheBooks.WithLabelValues("collaborative").Set(float64(collaborative))
	VectorCacheBooks.WithLabelValues("content").Set(float64(content))
	VectorArtifactRowsSkipped.Set(float64(skippedRows))
}

// RecordImport records one catalog import run.
func RecordImport(duration time.Duration, processed, skipped int) {
	ImportDuration.Observe(duration.Seconds())
	ImportBooksProcessed.Add(float64(processed))
	ImportRowsSkipped.Add(float64(skipped))
}

// RecordRatingUpsert records one accepted rating submission.
func RecordRatingUpsert() {
	RatingsUpserted.Inc()
}
