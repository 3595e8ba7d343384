package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"github.com/rcliao/context-digest/internal/model"
)

// MemStore is an in-memory Store. It is safe for concurrent use and is meant
// for tests and embedding callers that already hold the log in memory.
type MemStore struct {
	mu     sync.RWMutex
	events map[string]model.Event
	charts map[string]model.NatalChart
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns a store seeded with events.
func NewMemStore(events ...model.Event) *MemStore {
	m := &MemStore{
		events: map[string]model.Event{},
		charts: map[string]model.NatalChart{},
	}
	for _, e := range events {
		e.CreatedAt = e.CreatedAt.UTC()
		m.events[e.ID] = e
	}
	return m
}

func (m *MemStore) Put(_ context.Context, p PutParams) (*model.Event, error) {
	if p.UserID == "" {
		return nil, errors.New("user id is required")
	}
	id := p.ID
	if id == "" {
		id = ulid.Make().String()
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	ev := p.event(id, createdAt.UTC())

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; ok {
		return nil, fmt.Errorf("event %s already exists", id)
	}
	m.events[id] = ev
	return &ev, nil
}

func (m *MemStore) Get(_ context.Context, id string) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return &ev, nil
}

func (m *MemStore) List(ctx context.Context, p ListParams) ([]model.Event, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	evs, _ := m.Fetch(ctx, FetchQuery{UserID: p.UserID})
	evs = lo.Filter(evs, func(e model.Event, _ int) bool {
		return lo.Every(e.Tags, p.Tags)
	})
	if len(evs) > limit {
		evs = evs[:limit]
	}
	return evs, nil
}

func (m *MemStore) Rm(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	delete(m.events, id)
	return nil
}

func (m *MemStore) match(q FetchQuery) []model.Event {
	var out []model.Event
	for _, e := range m.events {
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		if !q.From.IsZero() && e.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && e.CreatedAt.After(q.To) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *MemStore) Fetch(_ context.Context, q FetchQuery) ([]model.Event, error) {
	m.mu.RLock()
	out := m.match(q)
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if q.Order == OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if q.Order == OldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MemStore) Count(_ context.Context, q FetchQuery) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.match(q)), nil
}

func (m *MemStore) GetByIDs(_ context.Context, userID string, ids []string) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Event
	for _, id := range lo.Uniq(ids) {
		if e, ok := m.events[id]; ok && e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemStore) PutChart(_ context.Context, c model.NatalChart) (*model.NatalChart, error) {
	if c.UserID == "" {
		return nil, errors.New("user id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c.Version = m.charts[c.UserID].Version + 1
	if c.CalculatedAt.IsZero() {
		c.CalculatedAt = time.Now().UTC()
	}
	c.Planets = slices.Clone(c.Planets)
	m.charts[c.UserID] = c
	return &c, nil
}

func (m *MemStore) ChartVersion(_ context.Context, userID string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.charts[userID]
	return c.Version, ok, nil
}

func (m *MemStore) Chart(_ context.Context, userID string) (*model.NatalChart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.charts[userID]
	if !ok {
		return nil, fmt.Errorf("chart for %s: %w", userID, ErrNotFound)
	}
	c.Planets = slices.Clone(c.Planets)
	return &c, nil
}

func (m *MemStore) Close() error { return nil }
