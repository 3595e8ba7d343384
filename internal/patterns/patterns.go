// Package patterns clusters a user's long-term history into themes and scores
// how significant each recurring theme is.
package patterns

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/rcliao/context-digest/internal/config"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/scoring"
	"github.com/rcliao/context-digest/internal/search"
	"github.com/rcliao/context-digest/internal/store"
)

// QueryRelevant is the bucket of events semantically close to the query.
const QueryRelevant = "current_query_relevant"

const (
	maxMembers     = 10
	relevantLimit  = 50
	temporalStep   = 0.1
	temporalBonus  = 0.2
	matchThreshold = 0.5

	// memberSignificance is the score of every event inside a pattern,
	// whatever the pattern's own significance.
	memberSignificance = 1.0
)

// Module is the patterns scorer. It is safe for concurrent use.
type Module struct {
	cfg      config.Patterns
	years    int
	events   store.EventStore
	searcher search.Searcher
	logger   *log.Logger
}

func New(cfg *config.Config, events store.EventStore, searcher search.Searcher, logger *log.Logger) *Module {
	if searcher == nil {
		searcher = search.Null{}
	}
	return &Module{cfg: cfg.Patterns, years: cfg.HistoryYears, events: events, searcher: searcher, logger: logger}
}

// bucket is one theme cluster with its histograms.
type bucket struct {
	key      string
	events   []model.Event
	months   map[string]int
	tags     []counted
	emotions []counted
}

type counted struct {
	name string
	n    int
}

// Run finds the most significant recurring themes in the user's history.
func (m *Module) Run(ctx context.Context, in model.Input) (model.PatternsResult, error) {
	start := time.Now()
	var res model.PatternsResult
	if !m.cfg.Enabled {
		return res, nil
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	events, err := m.events.Fetch(ctx, store.FetchQuery{
		UserID: in.UserID,
		From:   now.AddDate(0, 0, -365*m.years),
		To:     now,
		Order:  store.NewestFirst,
	})
	if err != nil {
		return res, fmt.Errorf("fetch history: %w", err)
	}
	if len(events) == 0 {
		return res, nil
	}

	buckets := m.cluster(ctx, events, in)

	var signals []Signal
	if m.cfg.TemporalEnabled {
		signals = temporalSignals(events, m.cfg.MinFrequency, m.cfg.MinCyclicIntervalDays, m.cfg.SeasonalityEnabled)
	}

	for _, b := range buckets {
		if len(b.events) < m.cfg.MinFrequency {
			continue
		}
		b.histograms()
		matched := lo.Filter(signals, func(s Signal, _ int) bool {
			return float64(s.Frequency) >= float64(len(b.events))*matchThreshold
		})
		sig := m.significance(b, len(matched))

		p := model.Pattern{
			Theme:        b.key,
			Frequency:    len(b.events),
			Description:  describe(b, matched),
			Significance: sig,
		}
		for _, e := range lo.Slice(b.events, 0, maxMembers) {
			p.Events = append(p.Events, scoring.Select(e, memberSignificance, model.SourcePatterns))
		}
		res.Patterns = append(res.Patterns, p)
	}

	sort.SliceStable(res.Patterns, func(i, j int) bool {
		return res.Patterns[i].Significance > res.Patterns[j].Significance
	})
	if len(res.Patterns) > m.cfg.MaxResults {
		res.Patterns = res.Patterns[:m.cfg.MaxResults]
	}
	res.TotalFound = len(res.Patterns)
	res.Elapsed = time.Since(start)

	m.logger.Info("patterns found", "events", len(events), "patterns", res.TotalFound, "signals", len(signals), "elapsed", res.Elapsed)
	return res, nil
}

// cluster assigns every event to one theme bucket and adds the query bucket.
// Buckets keep the order in which their first event was seen.
func (m *Module) cluster(ctx context.Context, events []model.Event, in model.Input) []*bucket {
	var order []*bucket
	byKey := map[string]*bucket{}
	add := func(key string, e model.Event) {
		b, ok := byKey[key]
		if !ok {
			b = &bucket{key: key}
			byKey[key] = b
			order = append(order, b)
		}
		b.events = append(b.events, e)
	}

	for _, e := range events {
		add(ClusterKey(e), e)
	}

	if in.Query != "" {
		relevant := lo.SliceToMap(m.relevantHits(ctx, in), func(h model.Hit) (string, bool) { return h.EventID, true })
		for _, e := range events {
			if relevant[e.ID] {
				add(QueryRelevant, e)
			}
		}
	}
	return order
}

func (m *Module) relevantHits(ctx context.Context, in model.Input) []model.Hit {
	if !in.Similar.Empty() {
		return in.Similar.Above(m.cfg.ClusteringThreshold)
	}
	hits, err := m.searcher.Search(ctx, in.Query, in.UserID, relevantLimit, m.cfg.ClusteringThreshold)
	if err != nil {
		m.logger.Warn("query clustering search failed", "err", err)
		return nil
	}
	return hits
}

func (b *bucket) histograms() {
	b.months = map[string]int{}
	tags := newCounter()
	emotions := newCounter()
	for _, e := range b.events {
		b.months[e.CreatedAt.UTC().Format("2006-01")]++
		for _, t := range e.Tags {
			tags.add(t)
		}
		if st := strings.ToLower(strings.TrimSpace(e.EmotionalState)); st != "" {
			emotions.add(st)
		}
	}
	b.tags = tags.sorted()
	b.emotions = emotions.sorted()
}

func (m *Module) significance(b *bucket, matchedSignals int) float64 {
	n := len(b.events)
	emotional := 0.5
	if len(b.emotions) > 0 {
		total := lo.SumBy(b.emotions, func(c counted) int { return c.n })
		emotional = float64(b.emotions[0].n) / float64(total)
	}
	scores := []float64{
		min(1, float64(n)/10),
		min(1, float64(len(b.months))/12),
		scoring.MeanPriority(b.events),
		emotional,
	}
	weights := []float64{m.cfg.FrequencyWeight, m.cfg.TimeDistributionWeight, m.cfg.PriorityWeight, m.cfg.EmotionalWeight}
	bonus := min(temporalBonus, temporalStep*float64(matchedSignals))
	return scoring.Clamp(scoring.CombineScores(scores, weights) + bonus)
}

func describe(b *bucket, matched []Signal) string {
	parts := []string{fmt.Sprintf("theme '%s' occurs %d times", b.key, len(b.events))}
	if len(matched) > 0 {
		parts = append(parts, matched[0].String())
	}
	if len(b.months) > 1 {
		parts = append(parts, fmt.Sprintf("distributed over %d periods", len(b.months)))
	}
	if len(b.tags) > 0 {
		names := lo.Map(lo.Slice(b.tags, 0, 3), func(c counted, _ int) string { return c.name })
		parts = append(parts, "main tags: "+strings.Join(names, ", "))
	}
	if len(b.emotions) > 0 {
		names := lo.Map(lo.Slice(b.emotions, 0, 2), func(c counted, _ int) string { return c.name })
		parts = append(parts, "dominant emotions: "+strings.Join(names, ", "))
	}
	return strings.Join(parts, ". ")
}

// counter counts names, remembering first-seen order for ties.
type counter struct {
	order []string
	n     map[string]int
}

func newCounter() *counter { return &counter{n: map[string]int{}} }

func (c *counter) add(name string) {
	if c.n[name] == 0 {
		c.order = append(c.order, name)
	}
	c.n[name]++
}

func (c *counter) sorted() []counted {
	out := lo.Map(c.order, func(name string, _ int) counted { return counted{name: name, n: c.n[name]} })
	sort.SliceStable(out, func(i, j int) bool { return out[i].n > out[j].n })
	return out
}
