package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/rcliao/context-digest/internal/model"
)

const (
	// EventTextMax bounds the primary text of a rendered event.
	EventTextMax = 200
	insightMax   = 150
	noText       = "Event without description"
)

// TruncateRunes cuts s to at most n runes, appending "..." when it cut.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func prefixRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// FormatEventText renders an event for the digest: the description (or the
// user message) followed by the insight, falling back to message and response.
func FormatEventText(e model.Event) string {
	var parts []string
	switch {
	case e.Description != "":
		parts = append(parts, TruncateRunes(e.Description, EventTextMax))
	case e.Message != "":
		parts = append(parts, TruncateRunes(e.Message, EventTextMax))
	}
	if e.Insight != "" {
		parts = append(parts, "Insight: "+TruncateRunes(e.Insight, insightMax))
	}
	if len(parts) == 0 {
		if e.Message != "" {
			parts = append(parts, prefixRunes(e.Message, EventTextMax))
		}
		if e.Response != "" {
			parts = append(parts, prefixRunes(e.Response, EventTextMax))
		}
	}
	if len(parts) == 0 {
		return noText
	}
	return TruncateRunes(strings.Join(parts, " | "), 2*EventTextMax)
}

// categoryTags lists, in match order, the tags that imply each category.
var categoryTags = []struct {
	cat  model.Category
	tags []string
}{
	{model.CategoryConflict, []string{"конфликт", "конфликтный", "conflict"}},
	{model.CategoryDecision, []string{"решение", "выбор", "decision"}},
	{model.CategoryAchievement, []string{"достижение", "успех", "achievement"}},
	{model.CategoryRelationship, []string{"отношения", "relationship"}},
	{model.CategoryHealth, []string{"здоровье", "health"}},
	{model.CategoryFinance, []string{"финансы", "finance"}},
	{model.CategorySpiritual, []string{"духовность", "spiritual"}},
	{model.CategoryAstrology, []string{"астрология", "astrology"}},
}

// DetermineCategory derives an event category from its tags.
func DetermineCategory(tags []string) model.Category {
	lower := make(map[string]bool, len(tags))
	for _, t := range tags {
		lower[strings.ToLower(t)] = true
	}
	for _, c := range categoryTags {
		for _, t := range c.tags {
			if lower[t] {
				return c.cat
			}
		}
	}
	return model.CategoryGeneral
}

// Select renders e as a SelectedEvent attributed to source.
func Select(e model.Event, significance float64, source string) model.SelectedEvent {
	se := model.SelectedEvent{
		ID:           e.ID,
		Text:         FormatEventText(e),
		Date:         e.CreatedAt,
		Significance: Clamp(significance),
		Category:     DetermineCategory(e.Tags),
		Tags:         append([]string(nil), e.Tags...),
		Source:       source,
	}
	if st, ok := model.ParseEmotionalState(e.EmotionalState); ok {
		se.EmotionalState = st
	}
	return se
}
