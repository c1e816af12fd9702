// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/bookworm-app/bookworm/internal/database"
	"github.com/bookworm-app/bookworm/internal/logging"
	"github.com/bookworm-app/bookworm/internal/metrics"
	"github.com/bookworm-app/bookworm/internal/models"
	"github.com/bookworm-app/bookworm/internal/recommend"
)

const queryTimeout = 10 * time.Second

// Handler serves the catalog, rating and recommendation endpoints.
type Handler struct {
	db     *database.DB
	engine *recommend.Engine
}

// NewHandler creates a handler over the database and recommendation engine.
func NewHandler(db *database.DB, engine *recommend.Engine) *Handler {
	return &Handler{db: db, engine: engine}
}

// Health handles GET /api/v1/health. It reports degraded rather than
// failing outright when the database ping fails, so load balancers can
// distinguish "slow" from "gone".
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r, 2*time.Second)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("health check database ping failed")
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respondJSON(w, httpStatus, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"status":   status,
			"database": status == "ok",
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// listBooksRequest carries the validated query parameters of ListBooks.
type listBooksRequest struct {
	Query   string `validate:"omitempty,max=200"`
	Page    int    `validate:"gte=1"`
	PerPage int    `validate:"gte=1,lte=100"`
}

// ListBooks handles GET /api/v1/books with optional search and pagination.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	req := listBooksRequest{
		Query:   r.URL.Query().Get("q"),
		Page:    getIntParam(r, "page", 1),
		PerPage: getIntParam(r, "per_page", 20),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	ctx, cancel := contextWithTimeout(r, queryTimeout)
	defer cancel()

	start := time.Now()
	books, total, err := h.db.SearchBooks(ctx, req.Query, req.Page, req.PerPage)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to list books", err)
		return
	}
	if books == nil {
		books = []models.Book{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"books":    books,
			"total":    total,
			"page":     req.Page,
			"per_page": req.PerPage,
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// GetBook handles GET /api/v1/books/{bookID}.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BOOK_ID", "Invalid book ID", err)
		return
	}

	ctx, cancel := contextWithTimeout(r, queryTimeout)
	defer cancel()

	book, err := h.db.BookByID(ctx, bookID)
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to load book", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     book,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// PopularBooks handles GET /api/v1/books/popular.
func (h *Handler) PopularBooks(w http.ResponseWriter, r *http.Request) {
	limit := getIntParam(r, "limit", 0)

	ctx, cancel := contextWithTimeout(r, queryTimeout)
	defer cancel()

	start := time.Now()
	books, err := h.engine.PopularBooks(ctx, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to load popular books", err)
		return
	}
	if books == nil {
		books = []models.Book{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"books": books,
			"count": len(books),
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// rateRequest is the body of POST /api/v1/books/{bookID}/rate.
type rateRequest struct {
	UserID int `json:"user_id" validate:"required,gt=0"`
	Rating int `json:"rating" validate:"required,gte=1,lte=5"`
}

// RateBook handles POST /api/v1/books/{bookID}/rate. Re-rating a book
// replaces the previous score.
func (h *Handler) RateBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.Atoi(chi.URLParam(r, "bookID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BOOK_ID", "Invalid book ID", err)
		return
	}

	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	ctx, cancel := contextWithTimeout(r, queryTimeout)
	defer cancel()

	if _, err := h.db.BookByID(ctx, bookID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to load book", err)
		return
	}

	if err := h.db.UpsertRating(ctx, req.UserID, bookID, req.Rating); err != nil {
		respondError(w, http.StatusInternalServerError, "RATING_ERROR", "Failed to save rating", err)
		return
	}
	metrics.RecordRatingUpsert()

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"user_id": req.UserID,
			"book_id": bookID,
			"rating":  req.Rating,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// UserRatings handles GET /api/v1/users/{userID}/ratings.
func (h *Handler) UserRatings(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID", err)
		return
	}

	ctx, cancel := contextWithTimeout(r, queryTimeout)
	defer cancel()

	ratings, err := h.db.UserRatings(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to load ratings", err)
		return
	}
	if ratings == nil {
		ratings = []models.Rating{}
	}

	summary, err := h.db.RatingSummary(ctx, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to summarize ratings", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"ratings": ratings,
			"summary": summary,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Recommendations handles GET /api/v1/users/{userID}/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID", err)
		return
	}
	limit := getIntParam(r, "limit", 0)

	ctx, cancel := contextWithTimeout(r, queryTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.engine.Recommendations(ctx, userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "Failed to generate recommendations", err)
		return
	}
	elapsed := time.Since(start)
	metrics.RecordRecommendation(string(result.Source), result.Backfilled, elapsed)

	if result.Books == nil {
		result.Books = []models.Book{}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"books":      result.Books,
			"count":      len(result.Books),
			"source":     result.Source,
			"backfilled": result.Backfilled,
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: elapsed.Milliseconds(),
		},
	})
}
