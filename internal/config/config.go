// Package config holds the typed configuration structs shared by the
// scanner, extractor, and coordinator. It carries no flag-parsing or file
// I/O of its own — that belongs to an external CLI collaborator.
package config

import "time"

// Guardrails bounds what the scanner and extractor are willing to touch.
type Guardrails struct {
	// MaxFileSizeBytes is the size cap above which a candidate file is
	// skipped with a FileTooLarge diagnostic.
	MaxFileSizeBytes int64

	// MaxCodeTextBytes caps the size of a function/type CodeText snippet
	// stored for display; excess is truncated.
	MaxCodeTextBytes int64

	// EmbeddingTextCapBytes caps the body preview in an embedding chunk's
	// canonical text (spec §4.6: 200-300 characters; see SPEC_FULL.md
	// Open Question Decision 2).
	EmbeddingTextCapBytes int

	// IncludeGlobs and ExcludeGlobs are doublestar glob patterns applied
	// relative to the project root.
	IncludeGlobs []string
	ExcludeGlobs []string
}

// DefaultGuardrails mirrors the teacher's own defaults (100KB code text cap,
// 1MB file size cap) while adding the embedding-text cap spec §4.6 requires.
func DefaultGuardrails() Guardrails {
	return Guardrails{
		MaxFileSizeBytes:      1048576,
		MaxCodeTextBytes:      102400,
		EmbeddingTextCapBytes: 240,
		IncludeGlobs:          []string{"**/*"},
		ExcludeGlobs: []string{
			".git/**", "node_modules/**", "vendor/**",
			"dist/**", "build/**", "bin/**", "out/**",
			".idea/**", ".vscode/**", "*.swp", "*.swo",
			".cache/**", "coverage/**", "tmp/**", ".tmp/**",
			"*.min.js", "*.min.css",
		},
	}
}

// Concurrency controls worker pool sizes for the coordinator.
type Concurrency struct {
	ExtractWorkers int
	LinkWorkers    int
}

// DefaultConcurrency matches CPU count for extraction, capped for linking
// since the linker fans out per-file but serializes per shared import.
func DefaultConcurrency(cpu int) Concurrency {
	if cpu < 1 {
		cpu = 1
	}
	link := cpu
	if link > 8 {
		link = 8
	}
	return Concurrency{ExtractWorkers: cpu, LinkWorkers: link}
}

// WatchConfig controls the filesystem watcher's debounce and backpressure.
type WatchConfig struct {
	Debounce       time.Duration
	BackpressureCap int
	IgnoreDirs     map[string]bool
}

// DefaultWatchConfig matches spec §4.9's 250ms default debounce window.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Debounce:        250 * time.Millisecond,
		BackpressureCap: 1000,
		IgnoreDirs: map[string]bool{
			".git": true, "node_modules": true, "vendor": true,
			"dist": true, "build": true, "bin": true, ".cache": true,
		},
	}
}

// FeedbackConfig parameterizes the feedback loop's recalculation policy.
type FeedbackConfig struct {
	WindowDuration          time.Duration
	RecalculateInterval     time.Duration
	DecayRate               float64
	MinAdjustmentMagnitude  float64
	MinSamplesForAdjustment int
	SuccessRateThreshold    float64
	P90LatencyThresholdMs   float64
	DisableThresholdSamples int
	DisableDuration         time.Duration
}

// DefaultFeedbackConfig matches the defaults enumerated in spec §4.11.
func DefaultFeedbackConfig() FeedbackConfig {
	return FeedbackConfig{
		WindowDuration:          time.Hour,
		RecalculateInterval:     5 * time.Minute,
		DecayRate:               0.10,
		MinAdjustmentMagnitude:  1.0,
		MinSamplesForAdjustment: 10,
		SuccessRateThreshold:    0.8,
		P90LatencyThresholdMs:   2000,
		DisableThresholdSamples: 20,
		DisableDuration:         time.Hour,
	}
}

// AnalyzerOptions configures the data-flow analyzer (spec §4.10).
type AnalyzerOptions struct {
	MaxCallDepth      int
	TrackTaint        bool
	IncludeLiterals   bool
	AnalyzeProperties bool
	Timeout           time.Duration
}

// DefaultAnalyzerOptions matches the spec's stated per-field defaults.
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		MaxCallDepth:      5,
		TrackTaint:        true,
		IncludeLiterals:   false,
		AnalyzeProperties: true,
		Timeout:           5 * time.Second,
	}
}
