// Package emotions detects the emotion of the current query and retrieves
// past events that resonate with it.
package emotions

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/rcliao/context-digest/internal/config"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/scoring"
	"github.com/rcliao/context-digest/internal/search"
	"github.com/rcliao/context-digest/internal/store"
)

// Module is the emotions scorer. It is safe for concurrent use.
type Module struct {
	cfg      config.Emotions
	events   store.EventStore
	searcher search.Searcher
	logger   *log.Logger
}

func New(cfg *config.Config, events store.EventStore, searcher search.Searcher, logger *log.Logger) *Module {
	if searcher == nil {
		searcher = search.Null{}
	}
	return &Module{cfg: cfg.Emotions, events: events, searcher: searcher, logger: logger}
}

// Run detects the dominant emotion of in.Query and, when the module is
// enabled, collects emotionally similar events not already in in.Selected.
func (m *Module) Run(ctx context.Context, in model.Input) (model.EmotionsResult, error) {
	start := time.Now()
	var res model.EmotionsResult

	dominant, ok := Detect(in.Query)
	if !ok || !m.cfg.Enabled {
		return res, nil
	}
	res.Dominant = dominant

	hits, err := m.hits(ctx, in, dominant)
	if err != nil {
		return res, err
	}
	hits = lo.Filter(hits, func(h model.Hit, _ int) bool { return !in.Selected[h.EventID] })
	if len(hits) > 0 {
		scores := map[string]float64{}
		for _, h := range hits {
			if _, seen := scores[h.EventID]; !seen {
				scores[h.EventID] = h.Score
			}
		}
		events, err := m.events.GetByIDs(ctx, in.UserID, lo.Keys(scores))
		if err != nil {
			return res, fmt.Errorf("load events: %w", err)
		}
		for _, ev := range events {
			sim := scores[ev.ID]
			se := scoring.Select(ev, sim, model.SourceEmotions)
			se.Similarity = &sim
			res.Events = append(res.Events, se)
		}
		sort.SliceStable(res.Events, func(i, j int) bool {
			a, b := res.Events[i], res.Events[j]
			if *a.Similarity != *b.Similarity {
				return *a.Similarity > *b.Similarity
			}
			return a.ID < b.ID
		})
		if len(res.Events) > m.cfg.MaxResults {
			res.Events = res.Events[:m.cfg.MaxResults]
		}
	}

	res.Pattern = pattern(res.Events)
	res.Elapsed = time.Since(start)
	m.logger.Info("emotions selected", "dominant", dominant, "events", len(res.Events), "elapsed", res.Elapsed)
	return res, nil
}

// hits reuses the shared snapshot when there is one and otherwise searches
// with the query augmented by the emotion's keywords.
func (m *Module) hits(ctx context.Context, in model.Input, dominant model.EmotionalState) ([]model.Hit, error) {
	if !in.Similar.Empty() {
		m.logger.Debug("reusing shared search results")
		return in.Similar.Above(m.cfg.SimilarityThreshold), nil
	}
	hits, err := m.searcher.Search(ctx, augment(in.Query, dominant), in.UserID, 2*m.cfg.MaxResults, m.cfg.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return hits, nil
}

// pattern describes the most frequent emotional state among events when it
// occurs at least twice. Ties go to the state seen first.
func pattern(events []model.SelectedEvent) string {
	counts := map[model.EmotionalState]int{}
	var order []model.EmotionalState
	for _, e := range events {
		if e.EmotionalState == "" {
			continue
		}
		if counts[e.EmotionalState] == 0 {
			order = append(order, e.EmotionalState)
		}
		counts[e.EmotionalState]++
	}
	var top model.EmotionalState
	for _, st := range order {
		if counts[st] > counts[top] {
			top = st
		}
	}
	if counts[top] < 2 {
		return ""
	}
	return fmt.Sprintf("repeating emotion %s, seen %d times", top, counts[top])
}
