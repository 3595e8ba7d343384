// Package searchtest provides a scripted searcher for tests.
package searchtest

import (
	"context"
	"sync"

	"github.com/rcliao/context-digest/internal/model"
)

// Call records one Search invocation.
type Call struct {
	Query     string
	UserID    string
	Limit     int
	Threshold float64
}

// Fake answers from a fixed table. Queries not in ByQuery get Default. Hits
// below the threshold are dropped and the result is cut to the limit, like a
// real backend.
type Fake struct {
	ByQuery map[string][]model.Hit
	Default []model.Hit
	Err     error

	mu    sync.Mutex
	calls []Call
}

func (f *Fake) Search(_ context.Context, query, userID string, limit int, threshold float64) ([]model.Hit, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Query: query, UserID: userID, Limit: limit, Threshold: threshold})
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	hits, ok := f.ByQuery[query]
	if !ok {
		hits = f.Default
	}
	var out []model.Hit
	for _, h := range hits {
		if h.Score < threshold {
			continue
		}
		out = append(out, h)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Calls returns the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
