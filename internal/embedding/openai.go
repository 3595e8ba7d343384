package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIEmbedder calls any OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
	dims   int
}

// NewOpenAIEmbedder defaults to the OpenAI API and text-embedding-3-small.
// A zero dims means 1536. opts are appended to the client options.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dims int, opts ...option.RequestOption) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dims == 0 {
		dims = 1536
	}
	var base []option.RequestOption
	if baseURL != "" {
		base = append(base, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		base = append(base, option.WithAPIKey(apiKey))
	}
	base = append(base, option.WithRequestTimeout(requestTimeout))
	return &OpenAIEmbedder{
		client: openai.NewClient(append(base, opts...)...),
		model:  model,
		dims:   dims,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	return single(e.EmbedBatch(ctx, []string{text}))
}

// EmbedBatch orders the vectors by the index the API reports, which need not
// match the response order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	vs := make([]Vector, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vs) {
			return nil, fmt.Errorf("openai: vector index %d out of range", d.Index)
		}
		v := make(Vector, len(d.Embedding))
		for i, f := range d.Embedding {
			v[i] = float32(f)
		}
		vs[d.Index] = v
	}
	for i, v := range vs {
		if len(v) == 0 {
			return nil, fmt.Errorf("openai: input %d: %w", i, ErrNoEmbedding)
		}
	}
	return vs, nil
}

func (e *OpenAIEmbedder) Dims() int { return e.dims }
