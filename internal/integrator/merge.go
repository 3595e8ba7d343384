package integrator

import (
	"sort"

	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/scoring"
)

// maxHistory is the hard cap on ranked history entries.
const maxHistory = 7

// Module boosts applied while merging.
const (
	freshnessBoost = 1.2
	emotionsBoost  = 1.1
	patternsBoost  = 1.05
)

// prioritize merges the module candidates in the fixed order freshness,
// emotions, patterns, karma. The first occurrence of an id wins, so the
// outcome does not depend on which module finished first. Candidates are
// ranked on the boosted value; only the stored significance is clamped.
func prioritize(c collected, limit int) []model.SelectedEvent {
	type candidate struct {
		event model.SelectedEvent
		rank  float64
	}
	var cands []candidate
	seen := map[string]bool{}
	add := func(e model.SelectedEvent, factor float64) {
		if seen[e.ID] {
			return
		}
		seen[e.ID] = true
		r := e.Significance * factor
		e.Significance = scoring.Clamp(r)
		cands = append(cands, candidate{event: e, rank: r})
	}

	for _, e := range c.freshness.Events {
		add(e, freshnessBoost)
	}
	for _, e := range c.emotions.Events {
		add(e, emotionsBoost)
	}
	for _, p := range c.patterns.Patterns {
		for _, e := range p.Events {
			add(e, patternsBoost)
		}
	}
	for _, th := range c.karma.Themes {
		for _, e := range th.ConfirmedEvents {
			add(e, th.ManifestationLevel)
		}
	}

	sort.SliceStable(cands, func(i, j int) bool { return cands[i].rank > cands[j].rank })
	if limit < 0 {
		limit = 0
	}
	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]model.SelectedEvent, len(cands))
	for i, cd := range cands {
		out[i] = cd.event
	}
	return out
}
