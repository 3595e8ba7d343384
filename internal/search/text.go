package search

import (
	"context"
	"fmt"

	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/store"
)

// TextMatcher is a keyword index over event chunks.
type TextMatcher interface {
	MatchText(ctx context.Context, userID, query string, limit int) ([]store.TextMatch, error)
}

// TextSearcher answers searches from the keyword index. Scores are bm25 ranks
// normalised against the best match, so the top hit always scores 1.
type TextSearcher struct {
	m TextMatcher
}

func NewTextSearcher(m TextMatcher) *TextSearcher {
	return &TextSearcher{m: m}
}

func (t *TextSearcher) Search(ctx context.Context, query, userID string, limit int, threshold float64) ([]model.Hit, error) {
	matches, err := t.m.MatchText(ctx, userID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("match text: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	bestRank := matches[0].Rank
	for _, m := range matches {
		if m.Rank < bestRank {
			bestRank = m.Rank
		}
	}

	hits := make([]model.Hit, 0, len(matches))
	for _, m := range matches {
		score := 1.0
		if bestRank < 0 {
			score = m.Rank / bestRank
		}
		hits = append(hits, model.Hit{EventID: m.EventID, Score: score})
	}
	return rank(hits, limit, threshold), nil
}
