// Package embedding turns event text into vectors through a remote provider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rcliao/context-digest/internal/config"
)

// ErrNoEmbedding is returned when a provider answers without vectors.
var ErrNoEmbedding = errors.New("no embedding returned")

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// BatchEmbedder embeds several texts in one request. The result has one
// vector per input, in input order.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the lengths differ or either vector is zero.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}

// New creates the embedder selected by cfg.Provider. It returns nil when no
// provider is configured and an error for an unknown one.
func New(cfg config.Embedding) (BatchEmbedder, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "ollama":
		return NewOllamaEmbedder(cfg.URL, cfg.Model), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.URL, cfg.APIKey, cfg.Model, 0), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (valid: ollama, openai)", cfg.Provider)
	}
}

func single(vs []Vector, err error) (Vector, error) {
	if err != nil {
		return nil, err
	}
	if len(vs) == 0 || len(vs[0]) == 0 {
		return nil, ErrNoEmbedding
	}
	return vs[0], nil
}
