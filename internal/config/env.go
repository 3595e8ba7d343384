package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type lookupFunc func(key string) (string, bool)

// envBinding ties one CONTEXT_* variable to a field.
type envBinding struct {
	key string
	set func(v string) error
}

func intVar(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func int64Var(dst *int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func floatVar(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

// boolVar treats only "true" (any case) as true.
func boolVar(dst *bool) func(string) error {
	return func(v string) error {
		*dst = strings.EqualFold(strings.TrimSpace(v), "true")
		return nil
	}
}

func stringVar(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

// secondsVar reads a whole number of seconds.
func secondsVar(dst *time.Duration) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = time.Duration(n) * time.Second
		return nil
	}
}

func (c *Config) envBindings() []envBinding {
	return []envBinding{
		{"CONTEXT_MAX_HISTORY_YEARS", intVar(&c.HistoryYears)},
		{"CONTEXT_DB", stringVar(&c.DBPath)},
		{"CONTEXT_LOG_LEVEL", stringVar(&c.LogLevel)},

		{"CONTEXT_FRESHNESS_PERIOD_DAYS", intVar(&c.Freshness.PeriodDays)},
		{"CONTEXT_FRESHNESS_LIMIT", intVar(&c.Freshness.Limit)},
		{"CONTEXT_FRESHNESS_MAX_AGE_DAYS", intVar(&c.Freshness.MaxAgeDays)},
		{"CONTEXT_FRESHNESS_DECAY_FACTOR", floatVar(&c.Freshness.DecayFactor)},
		{"CONTEXT_FRESHNESS_TIME_WEIGHT", floatVar(&c.Freshness.TimeWeight)},
		{"CONTEXT_FRESHNESS_PRIORITY_WEIGHT", floatVar(&c.Freshness.PriorityWeight)},
		{"CONTEXT_FRESHNESS_SIMILARITY_WEIGHT", floatVar(&c.Freshness.SimilarityWeight)},
		{"CONTEXT_FRESHNESS_MAX_PROCESSING_LIMIT", intVar(&c.Freshness.MaxProcessing)},

		{"CONTEXT_EMOTIONS_ENABLED", boolVar(&c.Emotions.Enabled)},
		{"CONTEXT_EMOTIONS_SIMILARITY_THRESHOLD", floatVar(&c.Emotions.SimilarityThreshold)},
		{"CONTEXT_EMOTIONS_MAX_RESULTS", intVar(&c.Emotions.MaxResults)},

		{"CONTEXT_PATTERNS_ENABLED", boolVar(&c.Patterns.Enabled)},
		{"CONTEXT_PATTERNS_MIN_FREQUENCY", intVar(&c.Patterns.MinFrequency)},
		{"CONTEXT_PATTERNS_MAX_RESULTS", intVar(&c.Patterns.MaxResults)},
		{"CONTEXT_PATTERNS_CLUSTERING_THRESHOLD", floatVar(&c.Patterns.ClusteringThreshold)},
		{"CONTEXT_PATTERNS_FREQUENCY_WEIGHT", floatVar(&c.Patterns.FrequencyWeight)},
		{"CONTEXT_PATTERNS_TIME_DISTRIBUTION_WEIGHT", floatVar(&c.Patterns.TimeDistributionWeight)},
		{"CONTEXT_PATTERNS_PRIORITY_WEIGHT", floatVar(&c.Patterns.PriorityWeight)},
		{"CONTEXT_PATTERNS_EMOTIONAL_WEIGHT", floatVar(&c.Patterns.EmotionalWeight)},
		{"CONTEXT_PATTERNS_TEMPORAL_ENABLED", boolVar(&c.Patterns.TemporalEnabled)},
		{"CONTEXT_PATTERNS_MIN_CYCLIC_INTERVAL", intVar(&c.Patterns.MinCyclicIntervalDays)},
		{"CONTEXT_PATTERNS_SEASONALITY_ENABLED", boolVar(&c.Patterns.SeasonalityEnabled)},

		{"CONTEXT_KARMA_ENABLED", boolVar(&c.Karma.Enabled)},
		{"CONTEXT_KARMA_SIMILARITY_THRESHOLD", floatVar(&c.Karma.SimilarityThreshold)},
		{"CONTEXT_KARMA_MAX_THEMES", intVar(&c.Karma.MaxThemes)},
		{"CONTEXT_KARMA_FREQUENCY_WEIGHT", floatVar(&c.Karma.FrequencyWeight)},
		{"CONTEXT_KARMA_PRIORITY_WEIGHT", floatVar(&c.Karma.PriorityWeight)},
		{"CONTEXT_KARMA_REPETITION_WEIGHT", floatVar(&c.Karma.RepetitionWeight)},
		{"CONTEXT_KARMA_ASPECT_WEIGHT", floatVar(&c.Karma.AspectWeight)},
		{"CONTEXT_KARMA_MANIFESTATION_FLOOR", floatVar(&c.Karma.ManifestationFloor)},
		{"CONTEXT_KARMA_CACHE_ENABLED", boolVar(&c.Karma.CacheEnabled)},
		{"CONTEXT_KARMA_CACHE_TTL", secondsVar(&c.Karma.CacheTTL)},
		{"CONTEXT_KARMA_CACHE_MAX_CHARTS", int64Var(&c.Karma.CacheMaxCharts)},

		{"CONTEXT_INTEGRATOR_MAX_TOKENS", intVar(&c.Integrator.MaxTokens)},
		{"CONTEXT_INTEGRATOR_MAX_TIME_SECONDS", secondsVar(&c.Integrator.MaxTime)},
		{"CONTEXT_INTEGRATOR_MAX_HISTORY", intVar(&c.Integrator.MaxHistory)},
		{"CONTEXT_INTEGRATOR_CHARS_PER_TOKEN", intVar(&c.Integrator.CharsPerToken)},
		{"CONTEXT_INTEGRATOR_PARALLELISM", intVar(&c.Integrator.Parallelism)},

		{"CONTEXT_VECTOR_SEARCH_ENABLED", boolVar(&c.Search.Enabled)},
		{"CONTEXT_VECTOR_SEARCH_THRESHOLD", floatVar(&c.Search.ScoreThreshold)},
		{"CONTEXT_VECTOR_SEARCH_LIMIT", intVar(&c.Search.Limit)},
		{"CONTEXT_SEARCH_BACKEND", stringVar(&c.Search.Backend)},

		{"CONTEXT_EMBED_PROVIDER", stringVar(&c.Embedding.Provider)},
		{"CONTEXT_EMBED_MODEL", stringVar(&c.Embedding.Model)},
		{"CONTEXT_EMBED_URL", stringVar(&c.Embedding.URL)},
		{"OPENAI_API_KEY", stringVar(&c.Embedding.APIKey)},
	}
}

func applyEnv(c *Config, lookup lookupFunc) error {
	for _, b := range c.envBindings() {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		if err := b.set(v); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, b.key, v, err)
		}
	}
	return nil
}
