// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

// Package models defines the shared data types for the catalog, ratings
// and the HTTP API envelope.
package models

import "time"

// Book is a catalog record. Field names follow the goodbooks-10k dataset;
// BookID is the dataset's book_id and is the primary key, so imported
// ratings line up without remapping.
type Book struct {
	BookID        int     `json:"book_id"`
	Title         string  `json:"title"`
	Authors       string  `json:"authors,omitempty"`
	OriginalTitle string  `json:"original_title,omitempty"`
	LanguageCode  string  `json:"language_code,omitempty"`

	// Optional dataset fields; pointers distinguish absent from zero.
	OriginalPublicationYear *int     `json:"original_publication_year,omitempty"`
	AverageRating           *float64 `json:"average_rating,omitempty"`
	RatingsCount            *int     `json:"ratings_count,omitempty"`

	ImageURL      string `json:"image_url,omitempty"`
	SmallImageURL string `json:"small_image_url,omitempty"`
}

// Rating is one user's score for one book. At most one rating exists per
// (user, book) pair; writes are upserts.
type Rating struct {
	UserID    int       `json:"user_id"`
	BookID    int       `json:"book_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary aggregates a user's rating history.
type RatingSummary struct {
	TotalRated    int      `json:"total_rated"`
	AverageRating *float64 `json:"average_rating,omitempty"`
}

// APIResponse is the standard response envelope.
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata contains response timing information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a machine-readable error payload.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
