// Bookworm - Book Catalog and Hybrid Recommendation Service
// Copyright 2026 Bookworm Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookworm-app/bookworm

package recommend

import "fmt"

// Config contains the recommendation engine parameters.
//
// The defaults are the product behavior: the 0.7/0.3 blend and the
// cold-start threshold of 3 are fixed design constants surfaced as named
// configuration so tests can probe sensitivity without editing literals.
type Config struct {
	// ItemFactorsPath is the ALS item-factor CSV artifact. Absence is
	// non-fatal: the collaborative store stays empty and every request
	// falls back to popularity.
	ItemFactorsPath string `json:"item_factors_path"`

	// CFWeight is the collaborative similarity weight in the hybrid blend.
	// Default: 0.7.
	CFWeight float64 `json:"cf_weight"`

	// ContentWeight is the content similarity weight in the hybrid blend.
	// Default: 0.3.
	ContentWeight float64 `json:"content_weight"`

	// ColdStartThreshold is the minimum rating count for personalized
	// scoring. Users below it get the popularity ranking. Default: 3.
	ColdStartThreshold int `json:"cold_start_threshold"`

	// BackfillMultiplier sizes the popularity window used to pad an
	// under-filled list (window = multiplier * limit). If fewer
	// qualifying books exist in that window the final list stays short,
	// which is acceptable rather than an error. Default: 2.
	BackfillMultiplier int `json:"backfill_multiplier"`

	// DefaultLimit applies when the caller requests zero items.
	// Default: 10.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit caps the requested item count. Default: 100.
	MaxLimit int `json:"max_limit"`
}

// DefaultConfig returns a Config with the product defaults.
func DefaultConfig() *Config {
	return &Config{
		ItemFactorsPath:    "data/als_item_factors.csv",
		CFWeight:           0.7,
		ContentWeight:      0.3,
		ColdStartThreshold: 3,
		BackfillMultiplier: 2,
		DefaultLimit:       10,
		MaxLimit:           100,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.CFWeight < 0 {
		return fmt.Errorf("cf_weight must be non-negative, got %f", c.CFWeight)
	}
	if c.ContentWeight < 0 {
		return fmt.Errorf("content_weight must be non-negative, got %f", c.ContentWeight)
	}
	if c.CFWeight+c.ContentWeight == 0 {
		return fmt.Errorf("cf_weight and content_weight must not both be zero")
	}
	if c.ColdStartThreshold < 1 {
		return fmt.Errorf("cold_start_threshold must be positive, got %d", c.ColdStartThreshold)
	}
	if c.BackfillMultiplier < 1 {
		return fmt.Errorf("backfill_multiplier must be positive, got %d", c.BackfillMultiplier)
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit must be >= default_limit, got %d < %d", c.MaxLimit, c.DefaultLimit)
	}
	return nil
}
