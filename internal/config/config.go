// Package config centralizes the ingestion thresholds that would otherwise
// be scattered magic numbers across the indexing pipeline. They are fields
// on a plain struct rather than package-level state, so a writer never
// reaches for ambient globals mid-ingest.
package config

import (
	"os"
	"strconv"
)

// Config holds every tunable threshold the ingestion pipeline consults.
// Zero value is not valid; use Default().
type Config struct {
	// MaxTokens bounds the number of real tokens the tokenizer produces per
	// line before folding the remainder into a single CatchAll token.
	MaxTokens int

	// IDLikeTriggerDocs is the num_docs at which a Variable column is
	// evaluated for id-like promotion.
	IDLikeTriggerDocs int

	// IDLikeUniqueRatio is the unique-value ratio a column must meet or
	// exceed to be flagged id-like.
	IDLikeUniqueRatio float64

	// MergeConstantMinDocs is the num_docs floor below which a Constant
	// slot's mergeable signature becomes Variable.
	MergeConstantMinDocs int

	// MergeWhitespaceMinDocs is the num_docs floor below which a
	// Whitespace slot's mergeable signature becomes Variable.
	MergeWhitespaceMinDocs int

	// SplitEnabled gates the optional template-split pass. Mirrors env
	// var ST.
	SplitEnabled bool

	// SplitThreshold is the per-term-id row count above which a value is
	// split out of its column into its own template. Mirrors env var
	// SPLIT_TEMPLATE_THRESHOLD.
	SplitThreshold uint32

	// LargeColumnRows is the row-count threshold above which term→template
	// assignment switches from run-length dedupe to the bitset path.
	LargeColumnRows int

	// PrintStats enables the STATS=1 ingestion summary.
	PrintStats bool
}

// Default returns the thresholds the pipeline runs with unless overridden.
func Default() Config {
	return Config{
		MaxTokens:              100,
		IDLikeTriggerDocs:      10_000,
		IDLikeUniqueRatio:      0.98,
		MergeConstantMinDocs:   1_000,
		MergeWhitespaceMinDocs: 100,
		SplitEnabled:           false,
		SplitThreshold:         400_000,
		LargeColumnRows:        500_000,
		PrintStats:             false,
	}
}

// FromEnv starts from Default and applies STATS, ST and
// SPLIT_TEMPLATE_THRESHOLD when present.
func FromEnv() Config {
	cfg := Default()

	if v, ok := os.LookupEnv("STATS"); ok {
		cfg.PrintStats = v == "1"
	}
	if v, ok := os.LookupEnv("ST"); ok {
		cfg.SplitEnabled = v == "1"
	}
	if v, ok := os.LookupEnv("SPLIT_TEMPLATE_THRESHOLD"); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.SplitThreshold = uint32(n)
		}
	}

	return cfg
}
