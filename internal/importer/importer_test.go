// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bookworm-app/bookworm/internal/config"
	"github.com/bookworm-app/bookworm/internal/models"
)

// fakeCatalog records upserted batches in memory.
type fakeCatalog struct {
	count   int
	books   map[int]models.Book
	batches []int
}

func (f *fakeCatalog) CountBooks(_ context.Context) (int, error) {
	return f.count, nil
}

func (f *fakeCatalog) UpsertBooks(_ context.Context, books []models.Book) error {
	if f.books == nil {
		f.books = make(map[int]models.Book)
	}
	for _, b := range books {
		f.books[b.BookID] = b
	}
	f.batches = append(f.batches, len(books))
	return nil
}

func writeCatalogCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "books.csv")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func newTestImporter(t *testing.T, catalog *fakeCatalog, csvPath string, batchSize int, force bool) *Importer {
	t.Helper()
	cfg := &config.ImportConfig{
		BooksCSV:  csvPath,
		BatchSize: batchSize,
		Force:     force,
	}
	return New(cfg, catalog, zerolog.New(zerolog.NewTestWriter(t)))
}

const sampleCSV = "book_id,title,authors,original_publication_year,average_rating,ratings_count,language_code\n" +
	"1,The Hobbit,J.R.R. Tolkien,1937.0,4.25,4602479,eng\n" +
	"2,Dune,Frank Herbert,1965,4.17,6120,eng\n" +
	",Missing ID,Nobody,2000,3.0,5,eng\n" +
	"abc,Bad ID,Nobody,2000,3.0,5,eng\n" +
	"3,Sparse Row,Anon,,,,\n"

func TestRunImportsCatalog(t *testing.T) {
	catalog := &fakeCatalog{}
	imp := newTestImporter(t, catalog, writeCatalogCSV(t, sampleCSV), 100, false)

	stats, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stats.RowsRead != 5 {
		t.Errorf("RowsRead = %d, want 5", stats.RowsRead)
	}
	if stats.Imported != 3 {
		t.Errorf("Imported = %d, want 3", stats.Imported)
	}
	if stats.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", stats.Skipped)
	}

	hobbit, ok := catalog.books[1]
	if !ok {
		t.Fatal("book 1 not imported")
	}
	if hobbit.Title != "The Hobbit" {
		t.Errorf("Title = %q, want The Hobbit", hobbit.Title)
	}
	// "1937.0" is a float-formatted integer and must coerce cleanly.
	if hobbit.OriginalPublicationYear == nil || *hobbit.OriginalPublicationYear != 1937 {
		t.Errorf("OriginalPublicationYear = %v, want 1937", hobbit.OriginalPublicationYear)
	}
	if hobbit.RatingsCount == nil || *hobbit.RatingsCount != 4602479 {
		t.Errorf("RatingsCount = %v, want 4602479", hobbit.RatingsCount)
	}
	if hobbit.AverageRating == nil || *hobbit.AverageRating != 4.25 {
		t.Errorf("AverageRating = %v, want 4.25", hobbit.AverageRating)
	}

	sparse := catalog.books[3]
	if sparse.OriginalPublicationYear != nil || sparse.AverageRating != nil || sparse.RatingsCount != nil {
		t.Errorf("sparse row metadata = %+v, want all nil", sparse)
	}
}

func TestRunBatchesWrites(t *testing.T) {
	catalog := &fakeCatalog{}
	imp := newTestImporter(t, catalog, writeCatalogCSV(t, sampleCSV), 2, false)

	if _, err := imp.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Three valid rows with batch size two: a full batch then the rest.
	if len(catalog.batches) != 2 || catalog.batches[0] != 2 || catalog.batches[1] != 1 {
		t.Errorf("batches = %v, want [2 1]", catalog.batches)
	}
}

func TestRunSkipsPopulatedCatalog(t *testing.T) {
	catalog := &fakeCatalog{count: 10000}
	imp := newTestImporter(t, catalog, writeCatalogCSV(t, sampleCSV), 100, false)

	stats, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Imported != 0 || len(catalog.batches) != 0 {
		t.Errorf("import ran against a populated catalog: %+v", stats)
	}
}

func TestRunForceReimports(t *testing.T) {
	catalog := &fakeCatalog{count: 10000}
	imp := newTestImporter(t, catalog, writeCatalogCSV(t, sampleCSV), 100, true)

	stats, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Imported != 3 {
		t.Errorf("Imported = %d, want 3 with force enabled", stats.Imported)
	}
}

func TestRunMissingFile(t *testing.T) {
	imp := newTestImporter(t, &fakeCatalog{}, filepath.Join(t.TempDir(), "absent.csv"), 100, false)

	if _, err := imp.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil error, want open failure")
	}
}

func TestRunMissingBookIDColumn(t *testing.T) {
	path := writeCatalogCSV(t, "id,title\n1,No Book ID Here\n")
	imp := newTestImporter(t, &fakeCatalog{}, path, 100, false)

	if _, err := imp.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil error, want header failure")
	}
}

func TestIntFieldCoercion(t *testing.T) {
	columns := map[string]int{"v": 0}

	tests := []struct {
		name   string
		raw    string
		want   *int
		wantOK bool
	}{
		{name: "plain integer", raw: "42", want: intPtr(42), wantOK: true},
		{name: "float integer", raw: "42.0", want: intPtr(42), wantOK: true},
		{name: "empty is absent", raw: "", want: nil, wantOK: true},
		{name: "fractional rejected", raw: "42.5", want: nil, wantOK: false},
		{name: "text rejected", raw: "forty-two", want: nil, wantOK: false},
		{name: "negative year", raw: "-750.0", want: intPtr(-750), wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := intField([]string{tt.raw}, columns, "v")
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("value = %d, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("value = %v, want %d", got, *tt.want)
			}
		})
	}
}

func intPtr(n int) *int { return &n }
