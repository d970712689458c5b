package embed

import "fmt"

// NewEmbedder selects a provider from config. Unknown providers are an
// error rather than a silent fallback.
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", ProviderNoop:
		return NewNoopEmbedder(), nil
	case ProviderOllama:
		return NewOllamaEmbedder(cfg), nil
	case ProviderTransformers:
		return NewTransformersEmbedder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (supported: noop, ollama, transformers)", cfg.Provider)
	}
}
