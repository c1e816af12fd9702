// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bookworm-app/bookworm/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

const bookColumns = `book_id, title, authors, original_title, language_code,
	original_publication_year, average_rating, ratings_count, image_url, small_image_url`

// scanBook scans one book row.
func scanBook(scanner interface{ Scan(...any) error }) (models.Book, error) {
	var b models.Book
	var authors, originalTitle, languageCode, imageURL, smallImageURL sql.NullString
	var year, ratingsCount sql.NullInt64
	var avgRating sql.NullFloat64

	err := scanner.Scan(&b.BookID, &b.Title, &authors, &originalTitle, &languageCode,
		&year, &avgRating, &ratingsCount, &imageURL, &smallImageURL)
	if err != nil {
		return models.Book{}, err
	}

	b.Authors = authors.String
	b.OriginalTitle = originalTitle.String
	b.LanguageCode = languageCode.String
	b.ImageURL = imageURL.String
	b.SmallImageURL = smallImageURL.String
	if year.Valid {
		y := int(year.Int64)
		b.OriginalPublicationYear = &y
	}
	if avgRating.Valid {
		r := avgRating.Float64
		b.AverageRating = &r
	}
	if ratingsCount.Valid {
		c := int(ratingsCount.Int64)
		b.RatingsCount = &c
	}
	return b, nil
}

// queryBooks runs a query returning book rows.
func (db *DB) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var books []models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// AllBooks returns the full catalog in a single pass.
func (db *DB) AllBooks(ctx context.Context) ([]models.Book, error) {
	return db.queryBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY book_id`)
}

// CountBooks returns the catalog size.
func (db *DB) CountBooks(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

// BookByID returns one book, or ErrNotFound.
func (db *DB) BookByID(ctx context.Context, bookID int) (models.Book, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE book_id = ?`, bookID)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Book{}, ErrNotFound
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("get book %d: %w", bookID, err)
	}
	return b, nil
}

// BooksByIDs returns the named books keyed by ID. IDs without a catalog
// record are simply absent from the result; callers that care about order
// resolve through the map so the rank order they established survives the
// batch lookup.
func (db *DB) BooksByIDs(ctx context.Context, ids []int) (map[int]models.Book, error) {
	if len(ids) == 0 {
		return map[int]models.Book{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	books, err := db.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books WHERE book_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]models.Book, len(books))
	for _, b := range books {
		byID[b.BookID] = b
	}
	return byID, nil
}

// PopularBooks returns up to limit books ordered by (average_rating desc,
// ratings_count desc). Books without a ratings_count are excluded. The
// trailing book_id key only breaks exact ties, keeping the order
// deterministic across runs.
func (db *DB) PopularBooks(ctx context.Context, limit int) ([]models.Book, error) {
	if limit <= 0 {
		return nil, nil
	}
	return db.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE ratings_count IS NOT NULL
		 ORDER BY average_rating DESC, ratings_count DESC, book_id ASC
		 LIMIT ?`, limit)
}

// SearchBooks returns one page of the catalog, optionally filtered by a
// case-insensitive title/author substring match, plus the total match count.
func (db *DB) SearchBooks(ctx context.Context, query string, page, perPage int) ([]models.Book, int, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage

	where := ""
	var args []any
	if query != "" {
		where = ` WHERE title ILIKE ? OR authors ILIKE ?`
		pattern := "%" + query + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM books`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search results: %w", err)
	}

	books, err := db.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books`+where+` ORDER BY book_id LIMIT ? OFFSET ?`,
		append(args, perPage, offset)...)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// UpsertBooks inserts or replaces catalog records in one transaction.
// Used by the importer.
func (db *DB) UpsertBooks(ctx context.Context, books []models.Book) error {
	if len(books) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO books (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (book_id) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			original_title = excluded.original_title,
			language_code = excluded.language_code,
			original_publication_year = excluded.original_publication_year,
			average_rating = excluded.average_rating,
			ratings_count = excluded.ratings_count,
			image_url = excluded.image_url,
			small_image_url = excluded.small_image_url`)
	if err != nil {
		return fmt.Errorf("prepare book upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range books {
		b := &books[i]
		_, err := stmt.ExecContext(ctx, b.BookID, b.Title,
			nullString(b.Authors), nullString(b.OriginalTitle), nullString(b.LanguageCode),
			nullIntPtr(b.OriginalPublicationYear), nullFloatPtr(b.AverageRating), nullIntPtr(b.RatingsCount),
			nullString(b.ImageURL), nullString(b.SmallImageURL))
		if err != nil {
			return fmt.Errorf("upsert book %d: %w", b.BookID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import tx: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIntPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloatPtr(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
