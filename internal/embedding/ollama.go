package embedding

import (
	"context"
	"fmt"
	"strings"
)

// OllamaEmbedder calls the /api/embed endpoint of an Ollama server.
type OllamaEmbedder struct {
	url   string
	model string
	dims  int
	c     client
}

type ollamaRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// knownDims lists the output size of common local models.
var knownDims = map[string]int{
	"nomic-embed-text":  768,
	"all-minilm":        384,
	"mxbai-embed-large": 1024,
	"bge-m3":            1024,
}

// NewOllamaEmbedder defaults to http://localhost:11434 and nomic-embed-text.
func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	dims, ok := knownDims[strings.SplitN(model, ":", 2)[0]]
	if !ok {
		dims = 768
	}
	return &OllamaEmbedder{
		url:   strings.TrimRight(baseURL, "/") + "/api/embed",
		model: model,
		dims:  dims,
		c:     newClient("ollama", nil),
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	return single(e.EmbedBatch(ctx, []string{text}))
}

func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var out ollamaResponse
	if err := e.c.post(ctx, e.url, ollamaRequest{Model: e.model, Input: texts}, &out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: %d vectors for %d inputs: %w", len(out.Embeddings), len(texts), ErrNoEmbedding)
	}
	return out.Embeddings, nil
}

func (e *OllamaEmbedder) Dims() int { return e.dims }
