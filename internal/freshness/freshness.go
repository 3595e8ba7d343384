// Package freshness ranks a user's recent events by time decay, priority and
// query similarity.
package freshness

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/rcliao/context-digest/internal/config"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/scoring"
	"github.com/rcliao/context-digest/internal/store"
)

// Module is the freshness scorer. It is safe for concurrent use.
type Module struct {
	cfg    config.Freshness
	events store.EventStore
	logger *log.Logger
}

func New(cfg *config.Config, events store.EventStore, logger *log.Logger) *Module {
	return &Module{cfg: cfg.Freshness, events: events, logger: logger}
}

type scored struct {
	ev         model.Event
	weight     float64
	similarity float64
}

// Run selects the top events of the lookback window ending at in.Now.
func (m *Module) Run(ctx context.Context, in model.Input) (model.FreshnessResult, error) {
	start := time.Now()

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	period := m.cfg.PeriodDays
	if in.PeriodDays > 0 {
		period = in.PeriodDays
	}
	if m.cfg.MaxAgeDays > 0 && period > m.cfg.MaxAgeDays {
		period = m.cfg.MaxAgeDays
	}
	limit := m.cfg.Limit
	if in.Limit > 0 {
		limit = in.Limit
	}
	res := model.FreshnessResult{PeriodDays: period}

	q := store.FetchQuery{
		UserID: in.UserID,
		From:   now.AddDate(0, 0, -period),
		To:     now,
		Order:  store.NewestFirst,
	}
	total, err := m.events.Count(ctx, q)
	if err != nil {
		return res, fmt.Errorf("count events: %w", err)
	}
	q.Limit = m.cfg.MaxProcessing
	if q.Limit > 0 && total > q.Limit {
		m.logger.Warn("processing only part of the window",
			"processed", q.Limit, "total", total, "period_days", period)
	}
	events, err := m.events.Fetch(ctx, q)
	if err != nil {
		return res, fmt.Errorf("fetch events: %w", err)
	}
	res.TotalProcessed = total

	sims := in.Similar.Scores()
	weights := []float64{m.cfg.TimeWeight, m.cfg.PriorityWeight, m.cfg.SimilarityWeight}

	items := make([]scored, 0, len(events))
	for _, ev := range events {
		sim, ok := sims[ev.ID]
		if !ok {
			sim = 1
		}
		tw := scoring.TimeWeight(ev.CreatedAt, now, period, m.cfg.DecayFactor)
		pw := scoring.NormalizePriority(ev.Priority)
		items = append(items, scored{
			ev:         ev,
			weight:     scoring.CombineScores([]float64{tw, pw, sim}, weights),
			similarity: sim,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].weight > items[j].weight })
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}

	res.Events = make([]model.SelectedEvent, 0, len(items))
	for _, it := range items {
		se := scoring.Select(it.ev, it.weight, model.SourceFreshness)
		if it.similarity < 1 {
			sim := it.similarity
			se.Similarity = &sim
		}
		res.Events = append(res.Events, se)
	}
	res.Elapsed = time.Since(start)

	m.logger.Info("freshness selected", "events", len(res.Events), "window", total, "elapsed", res.Elapsed)
	return res, nil
}
