package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"

	"github.com/rcliao/context-digest/internal/config"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
		delta    float64
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}, 1.0, 0.001},
		{"orthogonal", Vector{1, 0, 0}, Vector{0, 1, 0}, 0.0, 0.001},
		{"opposite", Vector{1, 0, 0}, Vector{-1, 0, 0}, -1.0, 0.001},
		{"similar", Vector{1, 1, 0}, Vector{1, 0, 0}, 0.707, 0.01},
		{"empty", Vector{}, Vector{}, 0.0, 0.001},
		{"different lengths", Vector{1, 0}, Vector{1, 0, 0}, 0.0, 0.001},
		{"zero vector", Vector{0, 0, 0}, Vector{1, 0, 0}, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("CosineSimilarity(%v, %v) = %f, want %f (±%f)", tt.a, tt.b, got, tt.expected, tt.delta)
			}
		})
	}
}

func TestNew(t *testing.T) {
	e, err := New(config.Embedding{})
	if err != nil || e != nil {
		t.Errorf("expected nil embedder when no provider configured, got %v, %v", e, err)
	}

	e, err = New(config.Embedding{Provider: "ollama", Model: "all-minilm"})
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if e.Dims() != 384 {
		t.Errorf("expected 384 dims, got %d", e.Dims())
	}

	e, _ = New(config.Embedding{Provider: "openai"})
	if e.Dims() != 1536 {
		t.Errorf("expected 1536 dims, got %d", e.Dims())
	}

	if _, err := New(config.Embedding{Provider: "word2vec"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) != 1 || req.Input[0] != "тревога" {
			t.Errorf("unexpected input %q", req.Input)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Embeddings: [][]float32{{0.1, 0.2}}})
	}))
	defer srv.Close()

	v, err := NewOllamaEmbedder(srv.URL+"/", "").Embed(context.Background(), "тревога")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(v) != 2 || v[1] != 0.2 {
		t.Errorf("unexpected vector %v", v)
	}
}

func TestOllamaDims(t *testing.T) {
	if d := NewOllamaEmbedder("", "mxbai-embed-large:latest").Dims(); d != 1024 {
		t.Errorf("expected 1024 dims, got %d", d)
	}
	if d := NewOllamaEmbedder("", "something-new").Dims(); d != 768 {
		t.Errorf("expected 768 dims for an unknown model, got %d", d)
	}
}

func TestOllamaShortBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{})
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder(srv.URL, "").Embed(context.Background(), "x")
	if !errors.Is(err, ErrNoEmbedding) {
		t.Errorf("expected ErrNoEmbedding, got %v", err)
	}
}

func TestOpenAIBatchOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"m","data":[{"object":"embedding","index":1,"embedding":[2]},{"object":"embedding","index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	vs, err := NewOpenAIEmbedder(srv.URL+"/v1/", "k", "", 0).EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embed batch: %v", err)
	}
	if len(vs) != 2 || vs[0][0] != 1 || vs[1][0] != 2 {
		t.Errorf("unexpected vectors %v", vs)
	}
}

func TestOpenAIEmbedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("unexpected auth header %q", got)
		}
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(srv.URL+"/", "k", "", 0, option.WithMaxRetries(0)).Embed(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("expected 429 error, got %v", err)
	}
}
