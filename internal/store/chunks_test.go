package store

import (
	"context"
	"testing"
)

func TestMatchText(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, _ := s.Put(ctx, PutParams{UserID: "u1", Description: "Я боюсь экзамена по математике"})
	s.Put(ctx, PutParams{UserID: "u1", Description: "Прогулка в парке"})
	s.Put(ctx, PutParams{UserID: "u2", Description: "экзамена тоже боюсь"})

	hits, err := s.MatchText(ctx, "u1", "экзамена", 10)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(hits) != 1 || hits[0].EventID != a.ID {
		t.Fatalf("expected only %s, got %+v", a.ID, hits)
	}
}

func TestMatchTextIgnoresQuerySyntax(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.Put(ctx, PutParams{UserID: "u1", Description: "deploy failed"})

	hits, err := s.MatchText(ctx, "u1", `deploy" OR NEAR(`, 10)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("expected 1 hit, got %d", len(hits))
	}

	hits, err = s.MatchText(ctx, "u1", "!!!", 10)
	if err != nil || len(hits) != 0 {
		t.Errorf("expected no hits for empty expression, got %v, %v", hits, err)
	}
}

func TestChunkEmbeddings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.Put(ctx, PutParams{UserID: "u1", Description: "first"})
	s.Put(ctx, PutParams{UserID: "u1", Description: "second"})

	pending, err := s.PendingChunks(ctx, "u1", 0)
	if err != nil || len(pending) != 2 {
		t.Fatalf("pending: %d, %v", len(pending), err)
	}
	if err := s.SetChunkEmbedding(ctx, pending[0].ID, []float32{0.5, -1, 2}); err != nil {
		t.Fatalf("set embedding: %v", err)
	}

	embedded, _ := s.EmbeddedChunks(ctx, "u1")
	if len(embedded) != 1 {
		t.Fatalf("expected 1 embedded chunk, got %d", len(embedded))
	}
	v := embedded[0].Embedding
	if len(v) != 3 || v[0] != 0.5 || v[1] != -1 || v[2] != 2 {
		t.Errorf("vector round trip failed: %v", v)
	}

	pending, _ = s.PendingChunks(ctx, "u1", 0)
	if len(pending) != 1 {
		t.Errorf("expected 1 pending chunk, got %d", len(pending))
	}
	if err := s.SetChunkEmbedding(ctx, "missing", []float32{1}); err == nil {
		t.Error("expected error for unknown chunk")
	}
}
