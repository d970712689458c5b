// Package embed provides the embedding seam consumed by the indexing and
// retrieval pipelines. A dimension of 0 means lexical-only mode: the engine
// skips vector indexing and vector search entirely.
package embed

import (
	"context"
	"time"
)

// Provider names accepted by the factory.
const (
	ProviderNoop         = "noop"
	ProviderOllama       = "ollama"
	ProviderTransformers = "transformers"
)

const (
	// DefaultOllamaHost is the local Ollama endpoint.
	DefaultOllamaHost = "http://localhost:11434"
	// DefaultOllamaModel is the default embedding model.
	DefaultOllamaModel = "nomic-embed-text"
	// DefaultTransformersHost is the local transformers-server endpoint.
	DefaultTransformersHost = "http://localhost:8765"

	// DefaultTimeout bounds one embedding request.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRetries is the total number of attempts per embedding
	// request, the first one included.
	DefaultMaxRetries = 3
)

// Embedder generates a dense vector for a text.
type Embedder interface {
	// Embed returns the embedding for one text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding width. 0 disables vector search.
	Dimensions() int

	// Available reports whether the backend is reachable.
	Available(ctx context.Context) bool

	// Close releases transport resources.
	Close() error
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	BaseURL  string
	Model    string
	// Dimensions, when nonzero, is reported as the embedding width and is not
	// checked against returned vectors. When zero, HTTP providers report the
	// width of the first vector they return.
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
}
