package freshness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/context-digest/internal/config"
	"github.com/rcliao/context-digest/internal/logging"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/store"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newModule(t *testing.T, cfg *config.Config, events ...model.Event) *Module {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	return New(cfg, store.NewMemStore(events...), logging.Discard())
}

func ids(evs []model.SelectedEvent) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.ID
	}
	return out
}

func TestScenarioA(t *testing.T) {
	m := newModule(t, nil,
		model.Event{ID: "1", UserID: "u1", CreatedAt: now, Priority: 5, Description: "today"},
		model.Event{ID: "2", UserID: "u1", CreatedAt: now.AddDate(0, 0, -40), Priority: 1, Description: "old"},
	)

	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Now: now, PeriodDays: 30})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(res.Events))
	assert.Equal(t, 1, res.TotalProcessed)
	assert.Equal(t, 30, res.PeriodDays)
	assert.Equal(t, model.SourceFreshness, res.Events[0].Source)
}

func TestWindowBoundaryIncluded(t *testing.T) {
	m := newModule(t, nil,
		model.Event{ID: "edge", UserID: "u1", CreatedAt: now.AddDate(0, 0, -30)},
	)
	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Now: now})
	require.NoError(t, err)
	assert.Equal(t, []string{"edge"}, ids(res.Events))
}

func TestRanksByCombinedWeight(t *testing.T) {
	m := newModule(t, nil,
		model.Event{ID: "old-high", UserID: "u1", CreatedAt: now.AddDate(0, 0, -20), Priority: 5},
		model.Event{ID: "new-low", UserID: "u1", CreatedAt: now.Add(-time.Hour), Priority: 1},
		model.Event{ID: "new-high", UserID: "u1", CreatedAt: now.Add(-2 * time.Hour), Priority: 5},
	)
	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Now: now})
	require.NoError(t, err)
	assert.Equal(t, "new-high", res.Events[0].ID)
	for i := 1; i < len(res.Events); i++ {
		assert.GreaterOrEqual(t, res.Events[i-1].Significance, res.Events[i].Significance)
	}
}

func TestUsesSimilarity(t *testing.T) {
	m := newModule(t, nil,
		model.Event{ID: "a", UserID: "u1", CreatedAt: now.Add(-time.Hour), Priority: 3},
		model.Event{ID: "b", UserID: "u1", CreatedAt: now.Add(-time.Hour), Priority: 3},
	)
	snap := &model.Snapshot{Hits: []model.Hit{{EventID: "a", Score: 0.2}}}

	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Now: now, Similar: snap})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, ids(res.Events))
	assert.Nil(t, res.Events[0].Similarity)
	require.NotNil(t, res.Events[1].Similarity)
	assert.InDelta(t, 0.2, *res.Events[1].Similarity, 1e-9)
}

func TestLimitAndMaxAge(t *testing.T) {
	cfg := config.Default()
	cfg.Freshness.MaxAgeDays = 60
	var evs []model.Event
	for i := 0; i < 10; i++ {
		evs = append(evs, model.Event{ID: string(rune('a' + i)), UserID: "u1", CreatedAt: now.AddDate(0, 0, -i*10)})
	}
	m := newModule(t, cfg, evs...)

	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Now: now, PeriodDays: 365, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 60, res.PeriodDays)
	assert.Equal(t, 7, res.TotalProcessed)
	assert.Len(t, res.Events, 3)
}

func TestProcessingCap(t *testing.T) {
	cfg := config.Default()
	cfg.Freshness.MaxProcessing = 2
	m := newModule(t, cfg,
		model.Event{ID: "a", UserID: "u1", CreatedAt: now.Add(-1 * time.Hour)},
		model.Event{ID: "b", UserID: "u1", CreatedAt: now.Add(-2 * time.Hour)},
		model.Event{ID: "c", UserID: "u1", CreatedAt: now.Add(-3 * time.Hour)},
	)
	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Now: now})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalProcessed)
	assert.ElementsMatch(t, []string{"a", "b"}, ids(res.Events))
}

func TestEmptyHistory(t *testing.T) {
	res, err := newModule(t, nil).Run(context.Background(), model.Input{UserID: "u1", Now: now})
	require.NoError(t, err)
	assert.Empty(t, res.Events)
}

type brokenStore struct{ store.EventStore }

func (brokenStore) Count(context.Context, store.FetchQuery) (int, error) {
	return 0, errors.New("db down")
}

func TestStoreError(t *testing.T) {
	m := New(config.Default(), brokenStore{}, logging.Discard())
	res, err := m.Run(context.Background(), model.Input{UserID: "u1", Now: now})
	assert.Error(t, err)
	assert.Empty(t, res.Events)
}
