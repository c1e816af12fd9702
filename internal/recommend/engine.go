// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/bookworm-app/bookworm/internal/models"
)

// Source identifies which path produced a recommendation list.
type Source string

const (
	// SourcePersonalized is the hybrid collaborative plus content ranking.
	SourcePersonalized Source = "personalized"

	// SourceContentOnly is the content-centroid ranking used when the
	// user's rated books carry no collaborative vectors.
	SourceContentOnly Source = "content_only"

	// SourceColdStart is the popularity ranking served to users below the
	// rating threshold or when no factor artifact is loaded.
	SourceColdStart Source = "cold_start"

	// SourcePopularityFallback is the popularity ranking served when a
	// personalized path produced nothing usable.
	SourcePopularityFallback Source = "popularity_fallback"
)

// Store is the catalog access the engine needs. *database.DB satisfies it.
type Store interface {
	AllBooks(ctx context.Context) ([]models.Book, error)
	BooksByIDs(ctx context.Context, ids []int) (map[int]models.Book, error)
	PopularBooks(ctx context.Context, limit int) ([]models.Book, error)
	UserRatings(ctx context.Context, userID int) ([]models.Rating, error)
}

// Result is a recommendation list plus how it was produced.
type Result struct {
	Books []models.Book `json:"books"`

	// Source names the path that produced the list.
	Source Source `json:"source"`

	// Backfilled is how many trailing entries came from the popularity
	// padding rather than the ranking itself.
	Backfilled int `json:"backfilled"`
}

// Engine produces popularity and personalized book rankings.
type Engine struct {
	cfg     *Config
	store   Store
	vectors *VectorStore
	logger  zerolog.Logger
}

// NewEngine creates an engine over the given store. Vector caches are
// built lazily on first request, not here.
func NewEngine(cfg *Config, store Store, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   store,
		vectors: NewVectorStore(cfg.ItemFactorsPath, logger),
		logger:  logger.With().Str("component", "recommend").Logger(),
	}
}

// Vectors exposes the engine's vector store, primarily so the importer
// can invalidate it after a bulk catalog change.
func (e *Engine) Vectors() *VectorStore {
	return e.vectors
}

// PopularBooks returns the global popularity ranking: average rating
// descending, then rating count descending. Books without a rating count
// never appear.
func (e *Engine) PopularBooks(ctx context.Context, limit int) ([]models.Book, error) {
	return e.store.PopularBooks(ctx, e.clampLimit(limit))
}

// Recommendations returns up to limit books for a user.
//
// Users below the cold-start threshold, and every user while no factor
// artifact is loaded, get the plain popularity ranking. Everyone else
// gets a personalized ranking over the collaborative store (or, when
// their history carries no collaborative signal, over the content store),
// with already-rated books excluded and short lists padded from the
// popularity ranking.
func (e *Engine) Recommendations(ctx context.Context, userID, limit int) (*Result, error) {
	limit = e.clampLimit(limit)

	if err := e.ensureVectors(ctx); err != nil {
		return nil, err
	}

	ratings, err := e.store.UserRatings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load rating history: %w", err)
	}

	if len(ratings) < e.cfg.ColdStartThreshold || e.vectors.CollaborativeSize() == 0 {
		books, err := e.store.PopularBooks(ctx, limit)
		if err != nil {
			return nil, err
		}
		e.logger.Debug().
			Int("user_id", userID).
			Int("ratings", len(ratings)).
			Msg("serving cold-start popularity ranking")
		return &Result{Books: books, Source: SourceColdStart}, nil
	}

	profile := BuildUserProfile(ratings, e.vectors)

	var (
		ranked []int
		source Source
	)
	switch {
	case profile.Collaborative != nil:
		ranked = e.rankHybrid(profile, limit)
		source = SourcePersonalized
	case profile.Content != nil:
		ranked = e.rankContentOnly(profile, limit)
		source = SourceContentOnly
	}

	if len(ranked) == 0 {
		books, err := e.popularityExcluding(ctx, limit, limit, profile.RatedIDs)
		if err != nil {
			return nil, err
		}
		e.logger.Debug().
			Int("user_id", userID).
			Msg("personalized ranking empty, serving popularity fallback")
		return &Result{Books: books, Source: SourcePopularityFallback}, nil
	}

	books, err := e.resolveBooks(ctx, ranked)
	if err != nil {
		return nil, err
	}

	backfilled := 0
	if len(books) < limit {
		books, backfilled, err = e.backfill(ctx, books, limit, profile.RatedIDs)
		if err != nil {
			return nil, err
		}
	}

	e.logger.Debug().
		Int("user_id", userID).
		Str("source", string(source)).
		Int("books", len(books)).
		Int("backfilled", backfilled).
		Msg("served personalized recommendations")
	return &Result{Books: books, Source: source, Backfilled: backfilled}, nil
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		return e.cfg.MaxLimit
	}
	return limit
}

func (e *Engine) ensureVectors(ctx context.Context) error {
	if err := e.vectors.EnsureItemFactors(); err != nil {
		return fmt.Errorf("load item factors: %w", err)
	}
	err := e.vectors.EnsureContentFeatures(func() ([]models.Book, error) {
		return e.store.AllBooks(ctx)
	})
	if err != nil {
		return fmt.Errorf("build content features: %w", err)
	}
	return nil
}

type scoredBook struct {
	bookID int
	score  float64
}

// rankHybrid scores every unrated book in the collaborative store with
// the blended similarity and returns the top IDs, best first. Candidates
// are walked in ascending book ID so equal scores rank the lower ID
// first via the stable sort.
func (e *Engine) rankHybrid(profile *UserProfile, limit int) []int {
	scored := make([]scoredBook, 0, e.vectors.CollaborativeSize())
	for _, bookID := range e.vectors.CollaborativeIDs() {
		if _, rated := profile.RatedIDs[bookID]; rated {
			continue
		}

		cfVec, _ := e.vectors.CollaborativeVector(bookID)
		score := e.cfg.CFWeight * cosineSimilarity(profile.Collaborative, cfVec)
		if profile.Content != nil {
			if cbVec, ok := e.vectors.ContentVector(bookID); ok {
				score += e.cfg.ContentWeight * cosineSimilarity(profile.Content, cbVec)
			}
		}

		if score > 0 {
			scored = append(scored, scoredBook{bookID: bookID, score: score})
		}
	}
	return topIDs(scored, limit)
}

// rankContentOnly scores every unrated book in the content store against
// the content centroid alone. The candidate universe is the content
// store, not the collaborative store, so a user whose history predates
// the factor artifact still gets a ranked list.
func (e *Engine) rankContentOnly(profile *UserProfile, limit int) []int {
	var scored []scoredBook
	for _, bookID := range e.vectors.ContentIDs() {
		if _, rated := profile.RatedIDs[bookID]; rated {
			continue
		}

		vec, _ := e.vectors.ContentVector(bookID)
		if score := cosineSimilarity(profile.Content, vec); score > 0 {
			scored = append(scored, scoredBook{bookID: bookID, score: score})
		}
	}
	return topIDs(scored, limit)
}

// topIDs sorts scored candidates best first and returns at most limit
// IDs. The sort is stable over an ascending-ID slice, so ties resolve to
// the lower book ID deterministically.
func topIDs(scored []scoredBook, limit int) []int {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	ids := make([]int, len(scored))
	for i, s := range scored {
		ids[i] = s.bookID
	}
	return ids
}

// resolveBooks fetches catalog rows for ranked IDs, preserving rank
// order. IDs absent from the catalog are dropped silently; the vector
// stores may know books the catalog import never delivered.
func (e *Engine) resolveBooks(ctx context.Context, ids []int) ([]models.Book, error) {
	byID, err := e.store.BooksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve ranked books: %w", err)
	}

	books := make([]models.Book, 0, len(ids))
	for _, id := range ids {
		if book, ok := byID[id]; ok {
			books = append(books, book)
		}
	}
	return books, nil
}

// backfill pads a short list from the popularity ranking, skipping books
// already in the list and books the user has rated. The window is
// BackfillMultiplier * limit; if the window cannot fill the list the
// list stays short.
func (e *Engine) backfill(ctx context.Context, books []models.Book, limit int, rated map[int]struct{}) ([]models.Book, int, error) {
	present := make(map[int]struct{}, len(books))
	for i := range books {
		present[books[i].BookID] = struct{}{}
	}

	padding, err := e.popularityExcluding(ctx, limit, limit-len(books), rated, present)
	if err != nil {
		return nil, 0, err
	}
	return append(books, padding...), len(padding), nil
}

// popularityExcluding returns up to count popular books excluding the
// given ID sets. The window it draws from is BackfillMultiplier * limit,
// sized by the original request rather than the remaining deficit.
func (e *Engine) popularityExcluding(ctx context.Context, limit, count int, exclude ...map[int]struct{}) ([]models.Book, error) {
	pool, err := e.store.PopularBooks(ctx, e.cfg.BackfillMultiplier*limit)
	if err != nil {
		return nil, fmt.Errorf("popularity window: %w", err)
	}

	books := make([]models.Book, 0, count)
	for i := range pool {
		if excluded(pool[i].BookID, exclude) {
			continue
		}
		books = append(books, pool[i])
		if len(books) == count {
			break
		}
	}
	return books, nil
}

func excluded(bookID int, sets []map[int]struct{}) bool {
	for _, set := range sets {
		if set == nil {
			continue
		}
		if _, ok := set[bookID]; ok {
			return true
		}
	}
	return false
}
