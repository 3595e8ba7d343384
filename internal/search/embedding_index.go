package search

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/lo"

	"github.com/rcliao/context-digest/internal/embedding"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/store"
)

// ChunkStore holds event chunks and their vectors.
type ChunkStore interface {
	PendingChunks(ctx context.Context, userID string, limit int) ([]store.Chunk, error)
	SetChunkEmbedding(ctx context.Context, chunkID string, v []float32) error
	EmbeddedChunks(ctx context.Context, userID string) ([]store.Chunk, error)
}

const indexBatch = 100

// EmbeddingIndex scores events by the cosine similarity of their best chunk.
// Query vectors are kept in an LRU cache.
type EmbeddingIndex struct {
	chunks   ChunkStore
	embedder embedding.Embedder
	queries  *lru.Cache[string, embedding.Vector]
}

// NewEmbeddingIndex creates an index caching up to cacheSize query vectors.
func NewEmbeddingIndex(chunks ChunkStore, e embedding.Embedder, cacheSize int) (*EmbeddingIndex, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, embedding.Vector](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	return &EmbeddingIndex{chunks: chunks, embedder: e, queries: cache}, nil
}

// Index embeds every chunk of the user that has no vector yet and returns
// how many were embedded. An empty userID covers every user.
func (x *EmbeddingIndex) Index(ctx context.Context, userID string) (int, error) {
	n := 0
	for {
		pending, err := x.chunks.PendingChunks(ctx, userID, indexBatch)
		if err != nil {
			return n, fmt.Errorf("pending chunks: %w", err)
		}
		if len(pending) == 0 {
			return n, nil
		}
		vectors, err := x.embed(ctx, pending)
		if err != nil {
			return n, err
		}
		for i, c := range pending {
			if err := x.chunks.SetChunkEmbedding(ctx, c.ID, vectors[i]); err != nil {
				return n, err
			}
			n++
		}
	}
}

// embed uses one batch request when the provider supports it.
func (x *EmbeddingIndex) embed(ctx context.Context, chunks []store.Chunk) ([]embedding.Vector, error) {
	if b, ok := x.embedder.(embedding.BatchEmbedder); ok {
		texts := lo.Map(chunks, func(c store.Chunk, _ int) string { return c.Text })
		vs, err := b.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
		}
		if len(vs) != len(chunks) {
			return nil, fmt.Errorf("embed %d chunks: got %d vectors", len(chunks), len(vs))
		}
		return vs, nil
	}
	vs := make([]embedding.Vector, len(chunks))
	for i, c := range chunks {
		v, err := x.embedder.Embed(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %s: %w", c.ID, err)
		}
		vs[i] = v
	}
	return vs, nil
}

func (x *EmbeddingIndex) queryVector(ctx context.Context, query string) (embedding.Vector, error) {
	if v, ok := x.queries.Get(query); ok {
		return v, nil
	}
	v, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	x.queries.Add(query, v)
	return v, nil
}

func (x *EmbeddingIndex) Search(ctx context.Context, query, userID string, limit int, threshold float64) ([]model.Hit, error) {
	qv, err := x.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}
	chunks, err := x.chunks.EmbeddedChunks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	best := map[string]float64{}
	var order []string
	for _, c := range chunks {
		sim := embedding.CosineSimilarity(qv, c.Embedding)
		prev, seen := best[c.EventID]
		if !seen {
			order = append(order, c.EventID)
		}
		if !seen || sim > prev {
			best[c.EventID] = sim
		}
	}

	hits := make([]model.Hit, 0, len(order))
	for _, id := range order {
		hits = append(hits, model.Hit{EventID: id, Score: best[id]})
	}
	return rank(hits, limit, threshold), nil
}
