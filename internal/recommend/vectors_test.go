// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package recommend

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bookworm-app/bookworm/internal/models"
)

func testLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t))
}

// writeArtifact writes a factor CSV into a temp dir and returns its path.
func writeArtifact(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "als_item_factors.csv")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

func TestEnsureItemFactorsLoadsArtifact(t *testing.T) {
	path := writeArtifact(t, "book_id,f0,f1\n1,0.5,-0.25\n2,1.0,2.0\n")
	store := NewVectorStore(path, testLogger(t))

	if err := store.EnsureItemFactors(); err != nil {
		t.Fatalf("EnsureItemFactors() error = %v", err)
	}

	if got := store.CollaborativeSize(); got != 2 {
		t.Fatalf("CollaborativeSize() = %d, want 2", got)
	}
	vec, ok := store.CollaborativeVector(1)
	if !ok {
		t.Fatal("CollaborativeVector(1) missing")
	}
	assertVector(t, vec, []float64{0.5, -0.25})
	if got := store.SkippedFactorRows(); got != 0 {
		t.Errorf("SkippedFactorRows() = %d, want 0", got)
	}
}

func TestEnsureItemFactorsSkipsMalformedRows(t *testing.T) {
	// One row with a non-numeric factor, one with a non-integer book ID
	// and one too narrow. Each is skipped individually.
	path := writeArtifact(t, "book_id,f0,f1\n"+
		"1,0.5,0.5\n"+
		"2,abc,0.5\n"+
		"xyz,0.1,0.2\n"+
		"3,0.9\n"+
		"4,1.0,1.0\n")
	store := NewVectorStore(path, testLogger(t))

	if err := store.EnsureItemFactors(); err != nil {
		t.Fatalf("EnsureItemFactors() error = %v", err)
	}

	if got := store.CollaborativeSize(); got != 2 {
		t.Errorf("CollaborativeSize() = %d, want 2", got)
	}
	if got := store.SkippedFactorRows(); got != 3 {
		t.Errorf("SkippedFactorRows() = %d, want 3", got)
	}
}

func TestEnsureItemFactorsMissingArtifact(t *testing.T) {
	store := NewVectorStore(filepath.Join(t.TempDir(), "absent.csv"), testLogger(t))

	if err := store.EnsureItemFactors(); err != nil {
		t.Fatalf("EnsureItemFactors() error = %v, want nil for a missing artifact", err)
	}
	if got := store.CollaborativeSize(); got != 0 {
		t.Errorf("CollaborativeSize() = %d, want 0", got)
	}
}

func TestEnsureItemFactorsIdempotent(t *testing.T) {
	path := writeArtifact(t, "book_id,f0\n1,0.5\n")
	store := NewVectorStore(path, testLogger(t))

	if err := store.EnsureItemFactors(); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// Rewriting the artifact must not change the loaded cache.
	if err := os.WriteFile(path, []byte("book_id,f0\n1,9.9\n2,9.9\n"), 0o600); err != nil {
		t.Fatalf("rewrite artifact: %v", err)
	}
	if err := store.EnsureItemFactors(); err != nil {
		t.Fatalf("second load: %v", err)
	}

	if got := store.CollaborativeSize(); got != 1 {
		t.Errorf("CollaborativeSize() = %d after reload, want 1", got)
	}
	vec, _ := store.CollaborativeVector(1)
	assertVector(t, vec, []float64{0.5})
}

func TestEnsureContentFeaturesZScores(t *testing.T) {
	year1, year2 := 2000, 2010
	avg1, avg2 := 3.0, 5.0
	cnt1, cnt2 := 0, 99

	store := NewVectorStore("unused", testLogger(t))
	err := store.EnsureContentFeatures(func() ([]models.Book, error) {
		return []models.Book{
			{BookID: 1, OriginalPublicationYear: &year1, AverageRating: &avg1, RatingsCount: &cnt1},
			{BookID: 2, OriginalPublicationYear: &year2, AverageRating: &avg2, RatingsCount: &cnt2},
		}, nil
	})
	if err != nil {
		t.Fatalf("EnsureContentFeatures() error = %v", err)
	}

	// With two points every dimension z-scores to -1 and +1 around the
	// midpoint, except the count dimension which is log-scaled first.
	v1, ok := store.ContentVector(1)
	if !ok {
		t.Fatal("ContentVector(1) missing")
	}
	v2, _ := store.ContentVector(2)

	assertVector(t, v1, []float64{-1, -1, -1})
	assertVector(t, v2, []float64{1, 1, 1})

	// log1p ordering sanity: the raw counts differ, so the scaled values
	// must sit on opposite sides of the mean.
	if !(v1[2] < 0 && v2[2] > 0) {
		t.Errorf("count z-scores = %v, %v, want opposite signs", v1[2], v2[2])
	}
}

func TestEnsureContentFeaturesDegenerateCatalog(t *testing.T) {
	tests := []struct {
		name  string
		books []models.Book
		want  map[int][]float64
	}{
		{
			name:  "empty catalog",
			books: nil,
			want:  map[int][]float64{},
		},
		{
			name: "zero variance",
			// Identical metadata: every deviation is zero, the std
			// denominators default to 1 and every vector is the origin.
			books: []models.Book{
				{BookID: 1},
				{BookID: 2},
			},
			want: map[int][]float64{
				1: {0, 0, 0},
				2: {0, 0, 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewVectorStore("unused", testLogger(t))
			err := store.EnsureContentFeatures(func() ([]models.Book, error) {
				return tt.books, nil
			})
			if err != nil {
				t.Fatalf("EnsureContentFeatures() error = %v", err)
			}

			if got := len(store.ContentIDs()); got != len(tt.want) {
				t.Fatalf("content store size = %d, want %d", got, len(tt.want))
			}
			for id, want := range tt.want {
				vec, ok := store.ContentVector(id)
				if !ok {
					t.Fatalf("ContentVector(%d) missing", id)
				}
				assertVector(t, vec, want)
			}
		})
	}
}

func TestCollaborativeIDsSorted(t *testing.T) {
	store := testVectorStore(t, map[int][]float64{
		42: {1}, 7: {1}, 1000: {1}, 3: {1},
	}, nil)

	got := store.CollaborativeIDs()
	want := []int{3, 7, 42, 1000}
	if len(got) != len(want) {
		t.Fatalf("CollaborativeIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CollaborativeIDs() = %v, want %v", got, want)
		}
	}
}

func TestInvalidateDropsBothCaches(t *testing.T) {
	path := writeArtifact(t, "book_id,f0\n1,0.5\n")
	store := NewVectorStore(path, testLogger(t))

	if err := store.EnsureItemFactors(); err != nil {
		t.Fatalf("load: %v", err)
	}
	err := store.EnsureContentFeatures(func() ([]models.Book, error) {
		return []models.Book{{BookID: 1}}, nil
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	store.Invalidate()

	if store.CollaborativeSize() != 0 || len(store.ContentIDs()) != 0 {
		t.Error("caches not empty after Invalidate")
	}

	// The next ensure rebuilds from the artifact.
	if err := store.EnsureItemFactors(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if store.CollaborativeSize() != 1 {
		t.Errorf("CollaborativeSize() = %d after reload, want 1", store.CollaborativeSize())
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(mean-5) > 1e-9 {
		t.Errorf("mean = %v, want 5", mean)
	}
	if math.Abs(std-2) > 1e-9 {
		t.Errorf("std = %v, want 2", std)
	}
}
