// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

// Package importer loads the book catalog CSV into the database.
//
// The expected file is the goodbooks-style catalog export: a header row
// naming at least a book_id column, then one row per book. Columns are
// resolved by header name so column order and extra columns do not
// matter. Rows without a parseable book ID are skipped and counted;
// numeric fields tolerate float-formatted integers such as "2008.0".
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookworm-app/bookworm/internal/config"
	"github.com/bookworm-app/bookworm/internal/metrics"
	"github.com/bookworm-app/bookworm/internal/models"
)

// Catalog is the storage the importer writes to. *database.DB satisfies it.
type Catalog interface {
	CountBooks(ctx context.Context) (int, error)
	UpsertBooks(ctx context.Context, books []models.Book) error
}

// Stats summarizes one import run.
type Stats struct {
	RowsRead int
	Imported int
	Skipped  int
	Duration time.Duration
}

// Importer loads a catalog CSV into the books table in batches.
type Importer struct {
	cfg     *config.ImportConfig
	catalog Catalog
	logger  zerolog.Logger
}

// New creates an importer writing to the given catalog.
func New(cfg *config.ImportConfig, catalog Catalog, logger zerolog.Logger) *Importer {
	return &Importer{
		cfg:     cfg,
		catalog: catalog,
		logger:  logger.With().Str("component", "importer").Logger(),
	}
}

// Run imports the configured CSV. A populated catalog is left untouched
// unless force is configured; the upsert makes a forced re-run
// idempotent rather than duplicating rows.
func (i *Importer) Run(ctx context.Context) (*Stats, error) {
	if !i.cfg.Force {
		count, err := i.catalog.CountBooks(ctx)
		if err != nil {
			return nil, fmt.Errorf("count books: %w", err)
		}
		if count > 0 {
			i.logger.Info().
				Int("books", count).
				Msg("catalog already populated, skipping import")
			return &Stats{}, nil
		}
	}

	f, err := os.Open(i.cfg.BooksCSV)
	if err != nil {
		return nil, fmt.Errorf("open catalog csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	start := time.Now()
	stats, err := i.importAll(ctx, csv.NewReader(f))
	if err != nil {
		return nil, err
	}
	stats.Duration = time.Since(start)

	metrics.RecordImport(stats.Duration, stats.Imported, stats.Skipped)
	i.logger.Info().
		Int("rows_read", stats.RowsRead).
		Int("imported", stats.Imported).
		Int("skipped", stats.Skipped).
		Dur("duration", stats.Duration).
		Msg("catalog import complete")
	return stats, nil
}

func (i *Importer) importAll(ctx context.Context, reader *csv.Reader) (*Stats, error) {
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	columns := indexColumns(header)
	if _, ok := columns["book_id"]; !ok {
		return nil, fmt.Errorf("catalog header missing book_id column")
	}

	stats := &Stats{}
	batch := make([]models.Book, 0, i.cfg.BatchSize)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.RowsRead++
			stats.Skipped++
			continue
		}
		stats.RowsRead++

		book, ok := parseBookRow(record, columns)
		if !ok {
			stats.Skipped++
			continue
		}

		batch = append(batch, book)
		if len(batch) == i.cfg.BatchSize {
			if err := i.flush(ctx, batch, stats); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := i.flush(ctx, batch, stats); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (i *Importer) flush(ctx context.Context, batch []models.Book, stats *Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := i.catalog.UpsertBooks(ctx, batch); err != nil {
		return fmt.Errorf("upsert batch of %d: %w", len(batch), err)
	}
	stats.Imported += len(batch)
	i.logger.Debug().Int("imported", stats.Imported).Msg("import progress")
	return nil
}

// indexColumns maps normalized header names to their positions. The
// first occurrence wins when a header repeats.
func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, exists := columns[name]; !exists {
			columns[name] = i
		}
	}
	return columns
}

// parseBookRow converts one catalog record into a Book. Only the book ID
// is mandatory; every other field is best-effort with malformed values
// degraded to absent rather than failing the row.
func parseBookRow(record []string, columns map[string]int) (models.Book, bool) {
	bookID, ok := intField(record, columns, "book_id")
	if !ok || bookID == nil {
		return models.Book{}, false
	}

	book := models.Book{
		BookID:        *bookID,
		Title:         stringField(record, columns, "title"),
		Authors:       stringField(record, columns, "authors"),
		OriginalTitle: stringField(record, columns, "original_title"),
		LanguageCode:  stringField(record, columns, "language_code"),
		ImageURL:      stringField(record, columns, "image_url"),
		SmallImageURL: stringField(record, columns, "small_image_url"),
	}
	book.OriginalPublicationYear, _ = intField(record, columns, "original_publication_year")
	book.RatingsCount, _ = intField(record, columns, "ratings_count")
	book.AverageRating = floatField(record, columns, "average_rating")
	return book, true
}

func rawField(record []string, columns map[string]int, name string) (string, bool) {
	idx, ok := columns[name]
	if !ok || idx >= len(record) {
		return "", false
	}
	return strings.TrimSpace(record[idx]), true
}

func stringField(record []string, columns map[string]int, name string) string {
	value, _ := rawField(record, columns, name)
	return value
}

// intField parses an integer field, accepting float-formatted integers
// such as "2008.0" as produced by pandas exports. The bool reports
// whether the field was syntactically valid; an empty field is valid
// and absent.
func intField(record []string, columns map[string]int, name string) (*int, bool) {
	raw, ok := rawField(record, columns, name)
	if !ok || raw == "" {
		return nil, true
	}

	if n, err := strconv.Atoi(raw); err == nil {
		return &n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) {
		return nil, false
	}
	n := int(f)
	return &n, true
}

func floatField(record []string, columns map[string]int, name string) *float64 {
	raw, ok := rawField(record, columns, name)
	if !ok || raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}
