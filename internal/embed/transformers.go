package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// TransformersEmbedder talks to a local transformers embedding server over a
// minimal JSON protocol: POST /embed {"text": "..."} -> {"embedding": [...]}.
type TransformersEmbedder struct {
	client *http.Client
	host   string
	model  string

	mu     sync.RWMutex
	dims   int
	closed bool

	timeout time.Duration
}

var _ Embedder = (*TransformersEmbedder)(nil)

type transformersRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type transformersResponse struct {
	Embedding []float32 `json:"embedding"`
}

// NewTransformersEmbedder creates an embedder against a transformers server.
func NewTransformersEmbedder(cfg Config) *TransformersEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTransformersHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &TransformersEmbedder{
		client:  &http.Client{},
		host:    cfg.BaseURL,
		model:   cfg.Model,
		dims:    cfg.Dimensions,
		timeout: cfg.Timeout,
	}
}

func (e *TransformersEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	body, err := json.Marshal(transformersRequest{Text: text, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.host+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding request returned %d: %s", resp.StatusCode, payload)
	}

	var parsed transformersResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}

	e.mu.Lock()
	if e.dims == 0 {
		e.dims = len(parsed.Embedding)
	}
	e.mu.Unlock()

	return parsed.Embedding, nil
}

func (e *TransformersEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

func (e *TransformersEmbedder) Available(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, e.host+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (e *TransformersEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}
