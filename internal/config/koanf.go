// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "BOOKWORM_CONFIG"

// DefaultConfigPaths are searched in order for a YAML config file.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/bookworm/config.yaml",
}

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if found)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Environment variables use a flat naming scheme mapped onto koanf
	// paths (HTTP_PORT -> server.port). Unknown variables are ignored.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// CORS origins arrive from the environment as a comma-separated string.
	if v, ok := k.Get("api.cors_origins").(string); ok {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		if err := k.Set("api.cors_origins", origins); err != nil {
			return nil, fmt.Errorf("failed to normalize cors origins: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps flat environment variable names to koanf config paths.
var envMappings = map[string]string{
	"http_host":            "server.host",
	"http_port":            "server.port",
	"shutdown_timeout":     "server.shutdown_timeout",
	"db_path":              "database.path",
	"db_threads":           "database.threads",
	"db_max_memory":        "database.max_memory",
	"log_level":            "logging.level",
	"log_format":           "logging.format",
	"log_caller":           "logging.caller",
	"item_factors_path":    "recommend.item_factors_path",
	"cf_weight":            "recommend.cf_weight",
	"content_weight":       "recommend.content_weight",
	"cold_start_threshold": "recommend.cold_start_threshold",
	"backfill_multiplier":  "recommend.backfill_multiplier",
	"default_limit":        "recommend.default_limit",
	"max_limit":            "recommend.max_limit",
	"books_csv":            "import.books_csv",
	"import_batch_size":    "import.batch_size",
	"import_force":         "import.force",
	"cors_origins":         "api.cors_origins",
	"rate_limit_rpm":       "api.rate_limit_rpm",
}

// envTransformFunc maps environment variable names to koanf config paths.
// Variables without a mapping are dropped so unrelated environment noise
// never lands in the configuration tree.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
