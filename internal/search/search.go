// Package search implements the similarity search capability the scoring
// modules query.
package search

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/rcliao/context-digest/internal/config"
	"github.com/rcliao/context-digest/internal/embedding"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/store"
)

// Searcher ranks a user's events against free text. Hits are ordered best
// first and all score at least threshold.
type Searcher interface {
	Search(ctx context.Context, query, userID string, limit int, threshold float64) ([]model.Hit, error)
}

// Null is the searcher used when no backend is configured or reachable.
type Null struct{}

func (Null) Search(context.Context, string, string, int, float64) ([]model.Hit, error) {
	return nil, nil
}

// Backend is the storage a searcher can be built on.
type Backend interface {
	ChunkStore
	TextMatcher
}

// New picks the searcher described by cfg. The embedding backend needs a
// non-nil embedder; without one it degrades to keyword search.
func New(cfg config.Search, b Backend, e embedding.Embedder, logger *log.Logger) (Searcher, error) {
	if !cfg.Enabled {
		return Null{}, nil
	}
	switch cfg.Backend {
	case "none":
		return Null{}, nil
	case "text":
		return NewTextSearcher(b), nil
	default:
		if e == nil {
			logger.Warn("no embedding provider configured, using keyword search")
			return NewTextSearcher(b), nil
		}
		return NewEmbeddingIndex(b, e, 256)
	}
}

// Snapshot runs one search and wraps the result for sharing between modules.
// Errors are logged and yield an empty snapshot.
func Snapshot(ctx context.Context, s Searcher, query, userID string, limit int, threshold float64, logger *log.Logger) *model.Snapshot {
	snap := &model.Snapshot{Query: query}
	if s == nil || query == "" {
		return snap
	}
	hits, err := s.Search(ctx, query, userID, limit, threshold)
	if err != nil {
		logger.Warn("shared search failed", "err", err)
		return snap
	}
	snap.Hits = hits
	return snap
}

// rank sorts hits by score descending (ties by id), keeps those at or above
// threshold and cuts to limit. A non-positive limit keeps everything.
func rank(hits []model.Hit, limit int, threshold float64) []model.Hit {
	out := hits[:0]
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].EventID < out[j].EventID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

var _ Backend = (*store.SQLiteStore)(nil)
