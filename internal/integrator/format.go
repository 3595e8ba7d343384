package integrator

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/rcliao/context-digest/internal/model"
)

// Section headers of the rendered digest, in order.
const (
	SectionProfile   = "USER_PROFILE"
	SectionSituation = "CURRENT_SITUATION"
	SectionHistory   = "RELEVANT_HISTORY"
	SectionPatterns  = "PATTERN_INSIGHTS"
	SectionEmotional = "EMOTIONAL_CONTEXT"
	SectionKarmic    = "KARMIC_CONTEXT"
)

// NoneFound is the body of a section that has no data.
const NoneFound = "none found"

const maxRenderedTags = 3

func situation(query string, dominant model.EmotionalState) string {
	parts := []string{"Current query: " + query}
	if dominant != "" {
		parts = append(parts, "Dominant emotion: "+string(dominant))
	}
	return strings.Join(parts, ". ")
}

// render writes every section in fixed order. Empty sections keep their
// header and get NoneFound.
func render(profile *model.Profile, query string, history []model.SelectedEvent, pats []model.Pattern,
	emo model.EmotionsResult, km model.KarmaResult) string {
	var b strings.Builder
	section := func(name string, lines []string) {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(name + ":\n")
		if len(lines) == 0 {
			lines = []string{NoneFound}
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	section(SectionProfile, profileLines(profile))
	section(SectionSituation, situationLines(query, emo))
	section(SectionHistory, historyLines(history))

	var lines []string
	for i, p := range pats {
		lines = append(lines, fmt.Sprintf("%d. %s: %s (occurs %d times)", i+1, p.Theme, p.Description, p.Frequency))
	}
	section(SectionPatterns, lines)

	lines = nil
	if emo.Dominant != "" {
		lines = append(lines, "Dominant emotion: "+string(emo.Dominant))
	}
	if n := len(emo.Events); n > 0 {
		lines = append(lines, fmt.Sprintf("Found %d emotionally relevant events", n))
	}
	section(SectionEmotional, lines)

	lines = nil
	for i, th := range km.Themes {
		lines = append(lines, fmt.Sprintf("%d. %s: %s (manifestation %.2f)", i+1, th.Theme, th.Description, th.ManifestationLevel))
	}
	section(SectionKarmic, lines)

	return b.String()
}

func profileLines(p *model.Profile) []string {
	if p.Empty() {
		return nil
	}
	var lines []string
	add := func(label, v string) {
		if v != "" {
			lines = append(lines, label+": "+v)
		}
	}
	add("Name", p.Name)
	add("Sun sign", p.SunSign)
	add("Moon sign", p.MoonSign)
	add("Ascendant", p.AscendantSign)
	return lines
}

func situationLines(query string, emo model.EmotionsResult) []string {
	if query == "" {
		return nil
	}
	parts := []string{"Query: " + query}
	if emo.Dominant != "" {
		parts = append(parts, "Emotion: "+string(emo.Dominant))
	}
	if emo.Pattern != "" {
		parts = append(parts, "Emotional pattern: "+emo.Pattern)
	}
	return []string{strings.Join(parts, ". ")}
}

func historyLines(history []model.SelectedEvent) []string {
	lines := make([]string, 0, len(history))
	for i, e := range history {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s", i+1, e.Text)
		if !e.Date.IsZero() {
			fmt.Fprintf(&b, " (%s)", e.Date.Format("2006-01-02"))
		}
		if e.EmotionalState != "" {
			fmt.Fprintf(&b, " [emotion: %s]", e.EmotionalState)
		}
		if len(e.Tags) > 0 {
			fmt.Fprintf(&b, " [tags: %s]", strings.Join(lo.Slice(e.Tags, 0, maxRenderedTags), ", "))
		}
		lines = append(lines, b.String())
	}
	return lines
}
