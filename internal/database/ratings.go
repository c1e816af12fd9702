// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package database

import (
	"context"
	"fmt"

	"github.com/bookworm-app/bookworm/internal/models"
)

// UserRatings returns all ratings for one user, most recent first.
func (db *DB) UserRatings(ctx context.Context, userID int) ([]models.Rating, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, book_id, rating, created_at
		FROM user_ratings
		WHERE user_id = ?
		ORDER BY created_at DESC, book_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user ratings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ratings []models.Rating
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.UserID, &r.BookID, &r.Rating, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// UpsertRating records or overwrites a user's rating for a book. The
// composite primary key guarantees at most one rating per (user, book);
// an existing rating has its score replaced in place.
func (db *DB) UpsertRating(ctx context.Context, userID, bookID, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be in [1, 5], got %d", rating)
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO user_ratings (user_id, book_id, rating)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, book_id) DO UPDATE SET
			rating = excluded.rating,
			created_at = now()`,
		userID, bookID, rating)
	if err != nil {
		return fmt.Errorf("upsert rating (user=%d book=%d): %w", userID, bookID, err)
	}
	return nil
}

// RatingSummary aggregates a user's rating history.
func (db *DB) RatingSummary(ctx context.Context, userID int) (models.RatingSummary, error) {
	var summary models.RatingSummary
	var avg *float64
	err := db.conn.QueryRowContext(ctx, `
		SELECT count(*), avg(rating)
		FROM user_ratings
		WHERE user_id = ?`, userID).Scan(&summary.TotalRated, &avg)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("rating summary: %w", err)
	}
	if summary.TotalRated > 0 {
		summary.AverageRating = avg
	}
	return summary, nil
}
