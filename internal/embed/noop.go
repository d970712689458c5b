package embed

import "context"

// NoopEmbedder reports dimension 0, putting the engine in lexical-only mode.
type NoopEmbedder struct{}

var _ Embedder = (*NoopEmbedder)(nil)

// NewNoopEmbedder creates the lexical-only embedder.
func NewNoopEmbedder() *NoopEmbedder {
	return &NoopEmbedder{}
}

func (e *NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

func (e *NoopEmbedder) Dimensions() int { return 0 }

func (e *NoopEmbedder) Available(ctx context.Context) bool { return true }

func (e *NoopEmbedder) Close() error { return nil }
