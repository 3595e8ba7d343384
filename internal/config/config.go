// Package config holds the typed, read-only settings of the context digest.
//
// Values come from Default, then an optional YAML file, then a .env file and
// CONTEXT_* environment variables. The resulting Config is built once at
// startup and shared by pointer; nothing mutates it afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned (wrapped) by Validate.
var ErrInvalid = errors.New("invalid config")

// Freshness configures recency ranking.
type Freshness struct {
	PeriodDays       int     `yaml:"period_days"`
	Limit            int     `yaml:"limit"`
	MaxAgeDays       int     `yaml:"max_age_days"`
	DecayFactor      float64 `yaml:"decay_factor"`
	TimeWeight       float64 `yaml:"time_weight"`
	PriorityWeight   float64 `yaml:"priority_weight"`
	SimilarityWeight float64 `yaml:"similarity_weight"`
	MaxProcessing    int     `yaml:"max_processing"`
}

// Emotions configures emotion detection and retrieval.
type Emotions struct {
	Enabled             bool    `yaml:"enabled"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxResults          int     `yaml:"max_results"`
}

// Patterns configures thematic clustering and temporal mining.
type Patterns struct {
	Enabled                bool    `yaml:"enabled"`
	MinFrequency           int     `yaml:"min_frequency"`
	MaxResults             int     `yaml:"max_results"`
	ClusteringThreshold    float64 `yaml:"clustering_threshold"`
	FrequencyWeight        float64 `yaml:"frequency_weight"`
	TimeDistributionWeight float64 `yaml:"time_distribution_weight"`
	PriorityWeight         float64 `yaml:"priority_weight"`
	EmotionalWeight        float64 `yaml:"emotional_weight"`
	TemporalEnabled        bool    `yaml:"temporal_enabled"`
	SeasonalityEnabled     bool    `yaml:"seasonality_enabled"`
	MinCyclicIntervalDays  int     `yaml:"min_cyclic_interval_days"`
}

// Karma configures long-horizon theme scoring.
type Karma struct {
	Enabled             bool          `yaml:"enabled"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	MaxThemes           int           `yaml:"max_themes"`
	FrequencyWeight     float64       `yaml:"frequency_weight"`
	PriorityWeight      float64       `yaml:"priority_weight"`
	RepetitionWeight    float64       `yaml:"repetition_weight"`
	AspectWeight        float64       `yaml:"aspect_weight"`
	ManifestationFloor  float64       `yaml:"manifestation_floor"`
	CacheEnabled        bool          `yaml:"cache_enabled"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	CacheMaxCharts      int64         `yaml:"cache_max_charts"`
}

// Integrator configures the merge, render and budget stages.
type Integrator struct {
	MaxTokens     int           `yaml:"max_tokens"`
	MaxTime       time.Duration `yaml:"max_time"`
	MaxHistory    int           `yaml:"max_history"`
	CharsPerToken int           `yaml:"chars_per_token"`
	Parallelism   int           `yaml:"parallelism"`
}

// Search configures the shared similarity search.
type Search struct {
	Enabled        bool    `yaml:"enabled"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	Limit          int     `yaml:"limit"`
	// Backend is "embedding", "text" or "none".
	Backend string `yaml:"backend"`
}

// Embedding selects the embedding provider used by the embedding backend.
type Embedding struct {
	Provider string `yaml:"provider"` // ollama | openai | ""
	Model    string `yaml:"model"`
	URL      string `yaml:"url"`
	APIKey   string `yaml:"-"`
}

// Config is the full set of digest settings.
type Config struct {
	HistoryYears int        `yaml:"history_years"`
	DBPath       string     `yaml:"db_path"`
	LogLevel     string     `yaml:"log_level"`
	Freshness    Freshness  `yaml:"freshness"`
	Emotions     Emotions   `yaml:"emotions"`
	Patterns     Patterns   `yaml:"patterns"`
	Karma        Karma      `yaml:"karma"`
	Integrator   Integrator `yaml:"integrator"`
	Search       Search     `yaml:"search"`
	Embedding    Embedding  `yaml:"embedding"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		HistoryYears: 3,
		LogLevel:     "info",
		Freshness: Freshness{
			PeriodDays:       30,
			Limit:            7,
			MaxAgeDays:       90,
			DecayFactor:      0.1,
			TimeWeight:       0.5,
			PriorityWeight:   0.3,
			SimilarityWeight: 0.2,
			MaxProcessing:    1000,
		},
		Emotions: Emotions{
			Enabled:             true,
			SimilarityThreshold: 0.6,
			MaxResults:          5,
		},
		Patterns: Patterns{
			Enabled:                true,
			MinFrequency:           3,
			MaxResults:             5,
			ClusteringThreshold:    0.7,
			FrequencyWeight:        0.4,
			TimeDistributionWeight: 0.2,
			PriorityWeight:         0.2,
			EmotionalWeight:        0.2,
			TemporalEnabled:        true,
			SeasonalityEnabled:     true,
			MinCyclicIntervalDays:  7,
		},
		Karma: Karma{
			Enabled:             true,
			SimilarityThreshold: 0.65,
			MaxThemes:           5,
			FrequencyWeight:     0.3,
			PriorityWeight:      0.25,
			RepetitionWeight:    0.2,
			AspectWeight:        0.25,
			ManifestationFloor:  0.3,
			CacheEnabled:        true,
			CacheTTL:            time.Hour,
			CacheMaxCharts:      10000,
		},
		Integrator: Integrator{
			MaxTokens:     1500,
			MaxTime:       5 * time.Second,
			MaxHistory:    7,
			CharsPerToken: 4,
			Parallelism:   4,
		},
		Search: Search{
			Enabled:        true,
			ScoreThreshold: 0.6,
			Limit:          50,
			Backend:        "embedding",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when path
// is empty), a .env file in the working directory, and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every knob is in range.
func (c *Config) Validate() error {
	var errs []error
	nonNeg := func(name string, v float64) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0,1], got %v", name, v))
		}
	}

	nonNeg("history_years", float64(c.HistoryYears))
	nonNeg("freshness.period_days", float64(c.Freshness.PeriodDays))
	nonNeg("freshness.limit", float64(c.Freshness.Limit))
	nonNeg("freshness.max_age_days", float64(c.Freshness.MaxAgeDays))
	nonNeg("freshness.decay_factor", c.Freshness.DecayFactor)
	nonNeg("freshness.time_weight", c.Freshness.TimeWeight)
	nonNeg("freshness.priority_weight", c.Freshness.PriorityWeight)
	nonNeg("freshness.similarity_weight", c.Freshness.SimilarityWeight)
	nonNeg("freshness.max_processing", float64(c.Freshness.MaxProcessing))

	unit("emotions.similarity_threshold", c.Emotions.SimilarityThreshold)
	nonNeg("emotions.max_results", float64(c.Emotions.MaxResults))

	nonNeg("patterns.min_frequency", float64(c.Patterns.MinFrequency))
	nonNeg("patterns.max_results", float64(c.Patterns.MaxResults))
	unit("patterns.clustering_threshold", c.Patterns.ClusteringThreshold)
	nonNeg("patterns.frequency_weight", c.Patterns.FrequencyWeight)
	nonNeg("patterns.time_distribution_weight", c.Patterns.TimeDistributionWeight)
	nonNeg("patterns.priority_weight", c.Patterns.PriorityWeight)
	nonNeg("patterns.emotional_weight", c.Patterns.EmotionalWeight)
	nonNeg("patterns.min_cyclic_interval_days", float64(c.Patterns.MinCyclicIntervalDays))

	unit("karma.similarity_threshold", c.Karma.SimilarityThreshold)
	nonNeg("karma.max_themes", float64(c.Karma.MaxThemes))
	nonNeg("karma.frequency_weight", c.Karma.FrequencyWeight)
	nonNeg("karma.priority_weight", c.Karma.PriorityWeight)
	nonNeg("karma.repetition_weight", c.Karma.RepetitionWeight)
	nonNeg("karma.aspect_weight", c.Karma.AspectWeight)
	unit("karma.manifestation_floor", c.Karma.ManifestationFloor)
	nonNeg("karma.cache_ttl", float64(c.Karma.CacheTTL))

	nonNeg("integrator.max_tokens", float64(c.Integrator.MaxTokens))
	nonNeg("integrator.max_time", float64(c.Integrator.MaxTime))
	if c.Integrator.MaxHistory < 0 || c.Integrator.MaxHistory > 7 {
		errs = append(errs, fmt.Errorf("integrator.max_history must be in [0,7], got %d", c.Integrator.MaxHistory))
	}
	if c.Integrator.CharsPerToken <= 0 {
		errs = append(errs, fmt.Errorf("integrator.chars_per_token must be > 0, got %d", c.Integrator.CharsPerToken))
	}

	unit("search.score_threshold", c.Search.ScoreThreshold)
	nonNeg("search.limit", float64(c.Search.Limit))
	switch c.Search.Backend {
	case "embedding", "text", "none", "":
	default:
		errs = append(errs, fmt.Errorf("search.backend %q (valid: embedding, text, none)", c.Search.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
