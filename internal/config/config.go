// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

// Package config loads and validates service configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//
//  1. Environment variables (DB_PATH, HTTP_PORT, LOG_LEVEL, ...)
//  2. Optional YAML config file (config.yaml, or BOOKWORM_CONFIG)
//  3. Built-in defaults
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Bookworm server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   LoggingConfig   `koanf:"logging"`
	Recommend RecommendConfig `koanf:"recommend"`
	Import    ImportConfig    `koanf:"import"`
	API       APIConfig       `koanf:"api"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0
	Host string `koanf:"host"`

	// Port is the listen port. Default: 8475
	Port int `koanf:"port"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	// Default: 10s
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 15s
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	// Default: 30s
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// DatabaseConfig contains DuckDB settings.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Default: data/bookworm.db
	Path string `koanf:"path"`

	// Threads is the DuckDB thread count. Zero means NumCPU.
	Threads int `koanf:"threads"`

	// MaxMemory is the DuckDB memory limit. Default: 1GB
	MaxMemory string `koanf:"max_memory"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level. Default: info
	Level string `koanf:"level"`

	// Format is json or console. Default: json
	Format string `koanf:"format"`

	// Caller includes file:line in log output. Default: false
	Caller bool `koanf:"caller"`
}

// RecommendConfig contains recommendation engine settings.
//
// The weights and the cold-start threshold are deliberate design constants
// of the scoring scheme; they are surfaced here as named configuration so
// tests can probe them, but the defaults are the product behavior.
type RecommendConfig struct {
	// ItemFactorsPath is the ALS item-factor CSV artifact produced by the
	// offline training job. Absence is non-fatal; recommendations fall
	// back to popularity. Default: data/als_item_factors.csv
	ItemFactorsPath string `koanf:"item_factors_path"`

	// CFWeight is the collaborative score weight in the hybrid blend.
	// Default: 0.7
	CFWeight float64 `koanf:"cf_weight"`

	// ContentWeight is the content score weight in the hybrid blend.
	// Default: 0.3
	ContentWeight float64 `koanf:"content_weight"`

	// ColdStartThreshold is the minimum number of ratings a user needs
	// before personalized scoring is attempted. Default: 3
	ColdStartThreshold int `koanf:"cold_start_threshold"`

	// BackfillMultiplier sizes the popularity window used to pad an
	// under-filled result list (window = multiplier * limit). Default: 2
	BackfillMultiplier int `koanf:"backfill_multiplier"`

	// DefaultLimit is the number of recommendations returned when the
	// caller does not specify one. Default: 10
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit caps the requested recommendation count. Default: 100
	MaxLimit int `koanf:"max_limit"`
}

// ImportConfig contains catalog import settings.
type ImportConfig struct {
	// BooksCSV is the goodbooks-style catalog CSV to import at startup.
	// Empty disables the import.
	BooksCSV string `koanf:"books_csv"`

	// BatchSize is the number of rows per import transaction.
	// Default: 1000
	BatchSize int `koanf:"batch_size"`

	// Force re-imports the catalog even when books already exist.
	// Default: false
	Force bool `koanf:"force"`
}

// APIConfig contains HTTP API settings.
type APIConfig struct {
	// CORSOrigins lists allowed CORS origins. Default: ["*"]
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitRPM is the per-IP request budget per minute. Default: 300
	RateLimitRPM int `koanf:"rate_limit_rpm"`
}

// defaultConfig returns the built-in defaults (layer 1 of Load).
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8475,
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "data/bookworm.db",
			Threads:   0,
			MaxMemory: "1GB",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Recommend: RecommendConfig{
			ItemFactorsPath:    "data/als_item_factors.csv",
			CFWeight:           0.7,
			ContentWeight:      0.3,
			ColdStartThreshold: 3,
			BackfillMultiplier: 2,
			DefaultLimit:       10,
			MaxLimit:           100,
		},
		Import: ImportConfig{
			BatchSize: 1000,
		},
		API: APIConfig{
			CORSOrigins:  []string{"*"},
			RateLimitRPM: 300,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Recommend.CFWeight < 0 || c.Recommend.ContentWeight < 0 {
		return fmt.Errorf("recommend weights must be non-negative, got cf=%f content=%f",
			c.Recommend.CFWeight, c.Recommend.ContentWeight)
	}
	if c.Recommend.CFWeight+c.Recommend.ContentWeight == 0 {
		return fmt.Errorf("recommend weights must not both be zero")
	}
	if c.Recommend.ColdStartThreshold < 1 {
		return fmt.Errorf("recommend.cold_start_threshold must be positive, got %d", c.Recommend.ColdStartThreshold)
	}
	if c.Recommend.BackfillMultiplier < 1 {
		return fmt.Errorf("recommend.backfill_multiplier must be positive, got %d", c.Recommend.BackfillMultiplier)
	}
	if c.Recommend.DefaultLimit < 1 {
		return fmt.Errorf("recommend.default_limit must be positive, got %d", c.Recommend.DefaultLimit)
	}
	if c.Recommend.MaxLimit < c.Recommend.DefaultLimit {
		return fmt.Errorf("recommend.max_limit must be >= recommend.default_limit, got %d < %d",
			c.Recommend.MaxLimit, c.Recommend.DefaultLimit)
	}
	if c.Import.BatchSize < 1 {
		return fmt.Errorf("import.batch_size must be positive, got %d", c.Import.BatchSize)
	}
	if c.API.RateLimitRPM < 1 {
		return fmt.Errorf("api.rate_limit_rpm must be positive, got %d", c.API.RateLimitRPM)
	}
	return nil
}
