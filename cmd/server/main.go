// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

// Package main is the entry point for the Bookworm server.
//
// Bookworm is a self-hosted book catalog with hybrid personalized
// recommendations. It blends offline-trained collaborative filtering
// factors with catalog content features, falling back to a popularity
// ranking for new users or when the factor artifact is absent.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, YAML file and
//     environment variables (Koanf v2)
//  2. Logging: zerolog, JSON or console format
//  3. Database: DuckDB with the books and user_ratings schema
//  4. Catalog import: one-shot CSV import when configured and the
//     catalog is empty
//  5. Recommendation engine: lazy vector caches over the ALS artifact
//     and the catalog
//  6. HTTP server: chi REST API plus the Prometheus scrape endpoint,
//     supervised by a suture tree
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the server stops
// accepting connections, in-flight requests get the configured
// shutdown timeout, then the database is closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookworm-app/bookworm/internal/api"
	"github.com/bookworm-app/bookworm/internal/config"
	"github.com/bookworm-app/bookworm/internal/database"
	"github.com/bookworm-app/bookworm/internal/importer"
	"github.com/bookworm-app/bookworm/internal/logging"
	"github.com/bookworm-app/bookworm/internal/metrics"
	"github.com/bookworm-app/bookworm/internal/models"
	"github.com/bookworm-app/bookworm/internal/recommend"
	"github.com/bookworm-app/bookworm/internal/supervisor"
	"github.com/bookworm-app/bookworm/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("item_factors_path", cfg.Recommend.ItemFactorsPath).
		Int("port", cfg.Server.Port).
		Msg("starting bookworm")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("failed to close database")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Import.BooksCSV != "" {
		imp := importer.New(&cfg.Import, db, logger)
		if _, err := imp.Run(ctx); err != nil {
			logging.Fatal().Err(err).Msg("catalog import failed")
		}
	}

	engine := recommend.NewEngine(&recommend.Config{
		ItemFactorsPath:    cfg.Recommend.ItemFactorsPath,
		CFWeight:           cfg.Recommend.CFWeight,
		ContentWeight:      cfg.Recommend.ContentWeight,
		ColdStartThreshold: cfg.Recommend.ColdStartThreshold,
		BackfillMultiplier: cfg.Recommend.BackfillMultiplier,
		DefaultLimit:       cfg.Recommend.DefaultLimit,
		MaxLimit:           cfg.Recommend.MaxLimit,
	}, db, logger)

	// Warm the vector caches so the first request does not pay the
	// build cost. Failures here are non-fatal; the engine retries
	// lazily and degrades to popularity.
	warmVectorCaches(ctx, engine, db)

	handler := api.NewHandler(db, engine)
	router := api.NewRouter(handler, &cfg.API)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}

	logging.Info().Msg("stopped gracefully")
}

// warmVectorCaches builds both vector caches eagerly and publishes
// their sizes to the metrics gauges.
func warmVectorCaches(ctx context.Context, engine *recommend.Engine, db *database.DB) {
	vectors := engine.Vectors()
	if err := vectors.EnsureItemFactors(); err != nil {
		logging.Warn().Err(err).Msg("item factor preload failed")
	}
	err := vectors.EnsureContentFeatures(func() ([]models.Book, error) {
		return db.AllBooks(ctx)
	})
	if err != nil {
		logging.Warn().Err(err).Msg("content feature preload failed")
	}

	metrics.UpdateVectorCaches(
		vectors.CollaborativeSize(),
		len(vectors.ContentIDs()),
		vectors.SkippedFactorRows(),
	)
}
