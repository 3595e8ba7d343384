package patterns

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/context-digest/internal/config"
	"github.com/rcliao/context-digest/internal/logging"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/search/searchtest"
	"github.com/rcliao/context-digest/internal/store"
)

var now = time.Date(2025, 6, 28, 12, 0, 0, 0, time.UTC)

func newModule(cfg *config.Config, f *searchtest.Fake, events ...model.Event) *Module {
	if cfg == nil {
		cfg = config.Default()
	}
	if f == nil {
		f = &searchtest.Fake{}
	}
	return New(cfg, store.NewMemStore(events...), f, logging.Discard())
}

func ev(id string, at time.Time, tags ...string) model.Event {
	return model.Event{ID: id, UserID: "u1", CreatedAt: at, Tags: tags, Description: "event " + id}
}

func TestScenarioC(t *testing.T) {
	m := newModule(nil, nil,
		ev("1", now.AddDate(0, 0, -1), "работа"),
		ev("2", now.AddDate(0, 0, -5), "работа"),
		ev("3", now.AddDate(0, 0, -12), "работа"),
		ev("4", now.AddDate(0, 0, -20), "работа"),
	)
	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Now: now})
	require.NoError(t, err)
	require.Len(t, res.Patterns, 1)
	p := res.Patterns[0]
	assert.Equal(t, "work", p.Theme)
	assert.Equal(t, 4, p.Frequency)
	assert.Len(t, p.Events, 4)
	assert.Equal(t, 1, res.TotalFound)
	assert.Contains(t, p.Description, "theme 'work' occurs 4 times")
	assert.Contains(t, p.Description, "main tags: работа")
	for _, e := range p.Events {
		assert.Equal(t, model.SourcePatterns, e.Source)
		assert.Equal(t, 1.0, e.Significance)
	}
}

func TestDropsSmallBuckets(t *testing.T) {
	m := newModule(nil, nil,
		ev("1", now.AddDate(0, 0, -1), "health"),
		ev("2", now.AddDate(0, 0, -2), "health"),
		ev("3", now.AddDate(0, 0, -3), "money"),
	)
	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Now: now})
	require.NoError(t, err)
	assert.Empty(t, res.Patterns)
}

func TestQueryRelevantBucket(t *testing.T) {
	f := &searchtest.Fake{Default: []model.Hit{
		{EventID: "1", Score: 0.9}, {EventID: "2", Score: 0.8}, {EventID: "3", Score: 0.75}, {EventID: "4", Score: 0.3},
	}}
	m := newModule(nil, f,
		ev("1", now.AddDate(0, 0, -1), "health"),
		ev("2", now.AddDate(0, 0, -2), "family"),
		ev("3", now.AddDate(0, 0, -3), "money"),
		ev("4", now.AddDate(0, 0, -4), "work"),
	)
	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Query: "как мне быть", Now: now})
	require.NoError(t, err)
	require.Len(t, res.Patterns, 1)
	assert.Equal(t, QueryRelevant, res.Patterns[0].Theme)
	assert.Equal(t, 3, res.Patterns[0].Frequency)

	require.Len(t, f.Calls(), 1)
	assert.Equal(t, 50, f.Calls()[0].Limit)
	assert.Equal(t, 0.7, f.Calls()[0].Threshold)
}

func TestQueryRelevantFromSnapshot(t *testing.T) {
	f := &searchtest.Fake{}
	m := newModule(nil, f,
		ev("1", now.AddDate(0, 0, -1)),
		ev("2", now.AddDate(0, 0, -2)),
		ev("3", now.AddDate(0, 0, -3)),
	)
	snap := &model.Snapshot{Hits: []model.Hit{{EventID: "1", Score: 0.9}, {EventID: "2", Score: 0.8}, {EventID: "3", Score: 0.65}}}
	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Query: "q", Now: now, Similar: snap})
	require.NoError(t, err)
	assert.Empty(t, f.Calls())

	themes := map[string]int{}
	for _, p := range res.Patterns {
		themes[p.Theme] = p.Frequency
	}
	// Only two hits clear the clustering threshold; the three events still
	// form the general bucket.
	assert.Equal(t, map[string]int{"general": 3}, themes)
}

func TestRankingAndCap(t *testing.T) {
	cfg := config.Default()
	cfg.Patterns.MaxResults = 2
	var evs []model.Event
	for i := 0; i < 3; i++ {
		evs = append(evs, ev(fmt.Sprintf("h%d", i), now.AddDate(0, 0, -i), "health"))
	}
	for i := 0; i < 8; i++ {
		evs = append(evs, ev(fmt.Sprintf("w%d", i), now.AddDate(0, -i, 0), "work"))
	}
	for i := 0; i < 5; i++ {
		evs = append(evs, ev(fmt.Sprintf("f%d", i), now.AddDate(0, 0, -40-i), "finance"))
	}
	res, err := newModule(cfg, nil, evs...).Run(context.Background(), model.Input{UserID: "u1", Now: now})
	require.NoError(t, err)
	require.Len(t, res.Patterns, 2)
	assert.Equal(t, "work", res.Patterns[0].Theme)
	assert.GreaterOrEqual(t, res.Patterns[0].Significance, res.Patterns[1].Significance)
	assert.Contains(t, res.Patterns[0].Description, "distributed over 8 periods")
}

func TestDisabledAndEmpty(t *testing.T) {
	cfg := config.Default()
	cfg.Patterns.Enabled = false
	res, err := newModule(cfg, nil, ev("1", now, "work")).Run(context.Background(), model.Input{UserID: "u1", Now: now})
	require.NoError(t, err)
	assert.Empty(t, res.Patterns)

	res, err = newModule(nil, nil).Run(context.Background(), model.Input{UserID: "u1", Now: now})
	require.NoError(t, err)
	assert.Empty(t, res.Patterns)
}

func TestSignificanceBounds(t *testing.T) {
	cfg := config.Default()
	cfg.Patterns.FrequencyWeight = 1e9
	cfg.Patterns.PriorityWeight = 0
	cfg.Patterns.TimeDistributionWeight = 0
	cfg.Patterns.EmotionalWeight = 0
	m := newModule(cfg, nil)
	var evs []model.Event
	for i := 0; i < 30; i++ {
		evs = append(evs, ev(fmt.Sprint(i), now.AddDate(0, 0, -i)))
	}
	b := &bucket{key: "general", events: evs}
	b.histograms()
	assert.Equal(t, 1.0, m.significance(b, 5))

	cfg.Patterns.FrequencyWeight = 0
	m = newModule(cfg, nil)
	assert.Equal(t, 0.0, m.significance(b, 0))
}

func TestClusterKey(t *testing.T) {
	cases := []struct {
		ev   model.Event
		want string
	}{
		{model.Event{Tags: []string{"Работа", "здоровье"}}, "work"},
		{model.Event{Tags: []string{"x", "Family"}}, "relationship"},
		{model.Event{Tags: []string{"выбор"}}, "decision"},
		{model.Event{Tags: []string{"конфликтный"}}, "conflict"},
		{model.Event{Description: "Опять нужны деньги"}, "finance"},
		{model.Event{Description: "Новая любовь"}, "relationship"},
		{model.Event{Message: "работа", Description: "прогулка"}, "general"},
		{model.Event{}, "general"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClusterKey(c.ev), "%+v", c.ev)
	}
}

func TestTemporalSignals(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) // Monday
	var evs []model.Event
	// Five events 14 days apart, all on Mondays, three of them in January.
	for i := 0; i < 5; i++ {
		evs = append(evs, ev(fmt.Sprint(i), base.AddDate(0, 0, 14*i)))
	}
	// Two scattered events on other weekdays and months.
	evs = append(evs, ev("x", time.Date(2024, 5, 8, 10, 0, 0, 0, time.UTC)))
	evs = append(evs, ev("y", time.Date(2024, 7, 12, 10, 0, 0, 0, time.UTC)))

	signals := temporalSignals(evs, 3, 7, true)

	var kinds []SignalKind
	for _, s := range signals {
		kinds = append(kinds, s.Kind)
	}
	require.Contains(t, signals, Signal{Kind: Seasonal, Month: time.January, Frequency: 3})
	require.Contains(t, signals, Signal{Kind: Cyclic, Interval: 14, Frequency: 4})
	require.Contains(t, signals, Signal{Kind: Weekday, Weekday: time.Monday, Frequency: 5})
	assert.Equal(t, []SignalKind{Seasonal, Cyclic, Weekday}, kinds)

	assert.Equal(t, "cyclic pattern: events repeat every 14 days", signals[1].String())
	assert.Equal(t, "weekday pattern: increased activity on Mondays", signals[2].String())

	assert.Empty(t, temporalSignals(evs[:2], 3, 7, true))
	for _, s := range temporalSignals(evs, 3, 7, false) {
		assert.NotEqual(t, Seasonal, s.Kind)
	}
}

func TestDescribeUsesFirstMatchedSignal(t *testing.T) {
	b := &bucket{key: "work", events: []model.Event{
		{CreatedAt: now, Tags: []string{"work", "deadline"}, EmotionalState: "tension"},
		{CreatedAt: now.AddDate(0, -1, 0), Tags: []string{"work"}, EmotionalState: "Tension"},
		{CreatedAt: now.AddDate(0, -2, 0), Tags: []string{"work", "boss"}, EmotionalState: "anger"},
	}}
	b.histograms()
	got := describe(b, []Signal{{Kind: Cyclic, Interval: 30, Frequency: 2}, {Kind: Weekday, Weekday: time.Friday}})
	assert.Equal(t, "theme 'work' occurs 3 times. cyclic pattern: events repeat every 30 days. "+
		"distributed over 3 periods. main tags: work, deadline, boss. dominant emotions: tension, anger", got)
}
