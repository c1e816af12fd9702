// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package recommend

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/bookworm-app/bookworm/internal/models"
)

// VectorStore holds the two decoupled per-book vector caches:
//
//   - collaborative factors, loaded once from the offline ALS artifact;
//   - content features, derived once from the catalog snapshot.
//
// Both caches are built lazily on first use and are immutable until
// Invalidate. The builds are guarded by singleflight so concurrent first
// callers share one build and observe either the pre-build empty state or
// the fully-built state, never a partially populated cache.
type VectorStore struct {
	factorsPath string
	logger      zerolog.Logger

	group singleflight.Group

	mu             sync.RWMutex
	factors        map[int][]float64
	content        map[int][]float64
	factorsLoaded  bool
	contentBuilt   bool
	factorsSkipped int
}

// NewVectorStore creates an empty vector store reading factors from the
// given artifact path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewVectorStore(factorsPath string, logger zerolog.Logger) *VectorStore {
	return &VectorStore{
		factorsPath: factorsPath,
		logger:      logger.With().Str("component", "vectors").Logger(),
		factors:     make(map[int][]float64),
		content:     make(map[int][]float64),
	}
}

// EnsureItemFactors loads the collaborative-factor artifact if it has not
// been loaded yet. The load is idempotent: after the first successful
// call (including a successful "file absent" outcome) subsequent calls
// are no-ops.
//
// A missing artifact is not an error: a warning is logged and the cache
// stays empty, which routes every request to the popularity fallback.
// Rows that fail to parse are skipped individually and counted.
func (s *VectorStore) EnsureItemFactors() error {
	s.mu.RLock()
	loaded := s.factorsLoaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	_, err, _ := s.group.Do("factors", func() (any, error) {
		s.mu.RLock()
		loaded := s.factorsLoaded
		s.mu.RUnlock()
		if loaded {
			return nil, nil
		}

		factors, skipped, err := loadItemFactors(s.factorsPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				s.logger.Warn().
					Str("path", s.factorsPath).
					Msg("item factor artifact not found, recommendations will fall back to popularity")
				factors = make(map[int][]float64)
			} else {
				return nil, err
			}
		}

		s.mu.Lock()
		s.factors = factors
		s.factorsSkipped = skipped
		s.factorsLoaded = true
		s.mu.Unlock()

		if len(factors) > 0 {
			s.logger.Info().
				Int("books", len(factors)).
				Int("skipped_rows", skipped).
				Msg("loaded collaborative item factors")
		}
		return nil, nil
	})
	return err
}

// loadItemFactors parses the ALS artifact: a header row, a book_id column
// and a uniform number of float factor columns. Unparseable rows are
// skipped and counted rather than aborting the load.
func loadItemFactors(path string) (map[int][]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // per-row width checks below

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read artifact header: %w", err)
	}
	if len(header) < 2 {
		return nil, 0, fmt.Errorf("artifact header has %d columns, want at least 2", len(header))
	}
	width := len(header)

	factors := make(map[int][]float64)
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		vec, ok := parseFactorRow(record, width)
		if !ok {
			skipped++
			continue
		}
		bookID, _ := strconv.Atoi(record[0])
		factors[bookID] = vec
	}

	return factors, skipped, nil
}

// parseFactorRow converts one artifact record to a factor vector.
func parseFactorRow(record []string, width int) ([]float64, bool) {
	if len(record) != width {
		return nil, false
	}
	if _, err := strconv.Atoi(record[0]); err != nil {
		return nil, false
	}

	vec := make([]float64, 0, width-1)
	for _, field := range record[1:] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, false
		}
		vec = append(vec, v)
	}
	return vec, true
}

// EnsureContentFeatures builds the content-feature cache from the catalog
// snapshot if it has not been built yet. fetch is only invoked by the one
// goroutine that performs the build.
//
// Each book gets a 3-dimensional vector of z-score normalized
// (publication year, average rating, log1p(rating count)). Normalization
// parameters come from the full catalog population; an empty catalog
// yields no vectors and zero-valued denominators default to 1.
//
// The normalization parameters are baked into the cached vectors, so a
// catalog change after the build leaves the cache stale until Invalidate
// is called. This is a documented limitation, not an accident.
func (s *VectorStore) EnsureContentFeatures(fetch func() ([]models.Book, error)) error {
	s.mu.RLock()
	built := s.contentBuilt
	s.mu.RUnlock()
	if built {
		return nil
	}

	_, err, _ := s.group.Do("content", func() (any, error) {
		s.mu.RLock()
		built := s.contentBuilt
		s.mu.RUnlock()
		if built {
			return nil, nil
		}

		books, err := fetch()
		if err != nil {
			return nil, fmt.Errorf("fetch catalog snapshot: %w", err)
		}

		content := buildContentFeatures(books)

		s.mu.Lock()
		s.content = content
		s.contentBuilt = true
		s.mu.Unlock()

		s.logger.Info().Int("books", len(content)).Msg("built content feature vectors")
		return nil, nil
	})
	return err
}

// buildContentFeatures computes z-score normalized 3-vectors for every
// catalog book. Missing metadata fields are treated as zero, matching the
// behavior of the offline pipeline that produced the historical scores.
func buildContentFeatures(books []models.Book) map[int][]float64 {
	if len(books) == 0 {
		return map[int][]float64{}
	}

	years := make([]float64, len(books))
	avgs := make([]float64, len(books))
	counts := make([]float64, len(books))
	for i := range books {
		b := &books[i]
		if b.OriginalPublicationYear != nil {
			years[i] = float64(*b.OriginalPublicationYear)
		}
		if b.AverageRating != nil {
			avgs[i] = *b.AverageRating
		}
		var cnt float64
		if b.RatingsCount != nil {
			cnt = float64(*b.RatingsCount)
		}
		counts[i] = math.Log1p(cnt)
	}

	yearMean, yearStd := meanStd(years)
	avgMean, avgStd := meanStd(avgs)
	cntMean, cntStd := meanStd(counts)

	content := make(map[int][]float64, len(books))
	for i := range books {
		content[books[i].BookID] = []float64{
			(years[i] - yearMean) / yearStd,
			(avgs[i] - avgMean) / avgStd,
			(counts[i] - cntMean) / cntStd,
		}
	}
	return content
}

// meanStd returns the population mean and standard deviation, with the
// deviation defaulting to 1 when it would otherwise be zero.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 1
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sqSum float64
	for _, v := range values {
		d := v - mean
		sqSum += d * d
	}
	std = math.Sqrt(sqSum / float64(len(values)))
	if std == 0 {
		std = 1
	}
	return mean, std
}

// CollaborativeVector returns the factor vector for a book, if present.
func (s *VectorStore) CollaborativeVector(bookID int) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.factors[bookID]
	return v, ok
}

// ContentVector returns the content feature vector for a book, if present.
func (s *VectorStore) ContentVector(bookID int) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.content[bookID]
	return v, ok
}

// CollaborativeSize returns the number of books with factor vectors.
func (s *VectorStore) CollaborativeSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.factors)
}

// SkippedFactorRows returns how many artifact rows failed to parse.
func (s *VectorStore) SkippedFactorRows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.factorsSkipped
}

// CollaborativeIDs returns the factor-store book IDs in ascending order.
// The ascending order gives the ranking a deterministic iteration base,
// which is what makes the hybrid sort's tie-break reproducible.
func (s *VectorStore) CollaborativeIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.factors)
}

// ContentIDs returns the content-store book IDs in ascending order.
func (s *VectorStore) ContentIDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.content)
}

func sortedKeys(m map[int][]float64) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Invalidate drops both caches so the next use rebuilds them. Intended
// for the importer after a bulk catalog change and for tests; nothing
// invalidates automatically on a rating upsert.
func (s *VectorStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factors = make(map[int][]float64)
	s.content = make(map[int][]float64)
	s.factorsLoaded = false
	s.contentBuilt = false
	s.factorsSkipped = 0
}
