// Package model defines the core event and digest data types.
package model

import (
	"strings"
	"time"
)

// Event is a single entry of a user's interaction log. Events are owned by the
// store and treated as read-only during a request.
type Event struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
	Message        string    `json:"message,omitempty"`
	Response       string    `json:"response,omitempty"`
	Description    string    `json:"description,omitempty"`
	Insight        string    `json:"insight,omitempty"`
	EmotionalState string    `json:"emotional_state,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	Priority       int       `json:"priority,omitempty"` // 1-5, 0 when unset
	Category       string    `json:"category,omitempty"`
}

// SearchText is the free text of the event that keyword scans look at.
func (e Event) SearchText() string {
	return strings.ToLower(e.Description + " " + e.Message)
}

// LowerTags returns the event tags lowercased.
func (e Event) LowerTags() []string {
	out := make([]string, len(e.Tags))
	for i, t := range e.Tags {
		out[i] = strings.ToLower(t)
	}
	return out
}

// Category groups events by subject matter.
type Category string

const (
	CategoryConflict     Category = "conflict"
	CategoryDecision     Category = "decision"
	CategoryAchievement  Category = "achievement"
	CategoryRelationship Category = "relationship"
	CategoryHealth       Category = "health"
	CategoryFinance      Category = "finance"
	CategorySpiritual    Category = "spiritual"
	CategoryAstrology    Category = "astrology"
	CategoryGeneral      Category = "general"
)

// EmotionalState is one of the known emotion classes.
type EmotionalState string

const (
	Joy            EmotionalState = "joy"
	Sadness        EmotionalState = "sadness"
	Anger          EmotionalState = "anger"
	Fear           EmotionalState = "fear"
	Surprise       EmotionalState = "surprise"
	Calm           EmotionalState = "calm"
	Anxiety        EmotionalState = "anxiety"
	Tension        EmotionalState = "tension"
	Excitement     EmotionalState = "excitement"
	Confusion      EmotionalState = "confusion"
	Hope           EmotionalState = "hope"
	Disappointment EmotionalState = "disappointment"
)

// EmotionalStates lists every known class in declaration order.
var EmotionalStates = []EmotionalState{
	Joy, Sadness, Anger, Fear, Surprise, Calm,
	Anxiety, Tension, Excitement, Confusion, Hope, Disappointment,
}

// ParseEmotionalState maps a stored label onto a known class. Unknown labels
// yield "" and false.
func ParseEmotionalState(s string) (EmotionalState, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, e := range EmotionalStates {
		if string(e) == s {
			return e, true
		}
	}
	return "", false
}

// Module names used as source tags on selected events.
const (
	SourceFreshness = "freshness"
	SourceEmotions  = "emotions"
	SourcePatterns  = "patterns"
	SourceKarma     = "karma"
)

// SelectedEvent is an event picked by one of the scoring modules, rendered for
// the digest. It lives for a single request.
type SelectedEvent struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	Date           time.Time      `json:"date"`
	Significance   float64        `json:"significance"`
	Category       Category       `json:"category"`
	EmotionalState EmotionalState `json:"emotional_state,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	Similarity     *float64       `json:"similarity,omitempty"`
	Source         string         `json:"source"`
}

// Pattern is a recurring theme found in the user's history.
type Pattern struct {
	Theme        string          `json:"theme"`
	Frequency    int             `json:"frequency"`
	Events       []SelectedEvent `json:"events"`
	Description  string          `json:"description"`
	Significance float64         `json:"significance"`
}

// Karmic theme sources.
const (
	ThemeFromNatalChart = "natal_chart"
	ThemeDetected       = "detected"
	ThemeFromProfile    = "user_profile"
	ThemeDefault        = "default"
)

// KarmicTheme is a long-horizon theme and the events confirming it.
type KarmicTheme struct {
	Theme              string          `json:"theme"`
	ManifestationLevel float64         `json:"manifestation_level"`
	ConfirmedEvents    []SelectedEvent `json:"confirmed_events"`
	Description        string          `json:"description"`
	Source             string          `json:"source"`
}
