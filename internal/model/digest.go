package model

import "time"

// Request asks for a digest for one user and one query.
type Request struct {
	UserID          string    `json:"user_id"`
	Query           string    `json:"query"`
	Now             time.Time `json:"now,omitzero"`
	PeriodDays      int       `json:"period_days,omitempty"`
	Limit           int       `json:"limit,omitempty"`
	MaxTokens       int       `json:"max_tokens,omitempty"`
	IncludeEmotions bool      `json:"include_emotions"`
	IncludePatterns bool      `json:"include_patterns"`
	IncludeKarma    bool      `json:"include_karma"`
	Profile         *Profile  `json:"profile,omitempty"`
}

// Input is what every scoring module receives. It is built once per request by
// the integrator and never mutated by the modules.
type Input struct {
	UserID     string
	Query      string
	Now        time.Time
	PeriodDays int
	Limit      int
	Profile    *Profile
	Similar    *Snapshot
	// Selected holds ids already chosen by an earlier module.
	Selected map[string]bool
}

// FreshnessResult is the freshness module output.
type FreshnessResult struct {
	Events         []SelectedEvent `json:"events"`
	TotalProcessed int             `json:"total_processed"`
	PeriodDays     int             `json:"period_days"`
	Elapsed        time.Duration   `json:"elapsed"`
}

// EmotionsResult is the emotions module output.
type EmotionsResult struct {
	Dominant EmotionalState  `json:"dominant_emotion,omitempty"`
	Events   []SelectedEvent `json:"events"`
	Pattern  string          `json:"emotional_pattern,omitempty"`
	Elapsed  time.Duration   `json:"elapsed"`
}

// PatternsResult is the patterns module output.
type PatternsResult struct {
	Patterns   []Pattern     `json:"patterns"`
	TotalFound int           `json:"total_found"`
	Elapsed    time.Duration `json:"elapsed"`
}

// KarmaResult is the karma module output.
type KarmaResult struct {
	Themes       []KarmicTheme `json:"themes"`
	ActiveThemes int           `json:"active_themes"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Timings records how long each pipeline stage took.
type Timings struct {
	Search     time.Duration `json:"search"`
	Freshness  time.Duration `json:"freshness"`
	Emotions   time.Duration `json:"emotions"`
	Patterns   time.Duration `json:"patterns"`
	Karma      time.Duration `json:"karma"`
	Prioritize time.Duration `json:"prioritize"`
	Format     time.Duration `json:"format"`
	Budget     time.Duration `json:"budget"`
	Total      time.Duration `json:"total"`
}

// Result is the assembled digest.
type Result struct {
	Profile          *Profile        `json:"profile,omitempty"`
	Situation        string          `json:"situation"`
	History          []SelectedEvent `json:"history"`
	Patterns         []Pattern       `json:"patterns"`
	EmotionalContext EmotionsResult  `json:"emotional_context"`
	KarmicContext    KarmaResult     `json:"karmic_context"`
	Digest           string          `json:"digest"`
	TokenEstimate    int             `json:"token_estimate"`
	Truncated        bool            `json:"truncated,omitempty"`
	Skipped          []string        `json:"skipped,omitempty"`
	Timings          Timings         `json:"timings"`
}

// NewRequest returns a request with every optional module enabled.
func NewRequest(userID, query string) Request {
	return Request{
		UserID:          userID,
		Query:           query,
		IncludeEmotions: true,
		IncludePatterns: true,
		IncludeKarma:    true,
	}
}
