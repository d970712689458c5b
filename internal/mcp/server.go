// Package mcp exposes the engine to AI clients over the Model Context
// Protocol. Tools: search_code, enhance_prompt, index_codebase, and
// index_status.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/holocron-dev/holocron/internal/engine"
	"github.com/holocron-dev/holocron/internal/format"
	"github.com/holocron-dev/holocron/internal/search"
	"github.com/holocron-dev/holocron/pkg/version"
)

// Server bridges MCP clients with the retrieval engine.
type Server struct {
	mcp      *mcp.Server
	engine   *engine.Engine
	rootPath string
	logger   *slog.Logger
}

// SearchInput is the input schema for search_code.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"the search query to execute"`
	MaxResults int      `json:"max_results,omitempty" jsonschema:"maximum number of results, default 10"`
	Languages  []string `json:"languages,omitempty" jsonschema:"restrict results to these languages"`
	Directory  string   `json:"directory,omitempty" jsonschema:"restrict results to this path prefix"`
	MinScore   float64  `json:"min_score,omitempty" jsonschema:"drop results scoring below this value"`
}

// SearchResultOutput is one ranked hit.
type SearchResultOutput struct {
	FilePath  string  `json:"file_path" jsonschema:"file containing the chunk"`
	Content   string  `json:"content" jsonschema:"chunk content"`
	StartLine int     `json:"start_line" jsonschema:"0-based start line"`
	EndLine   int     `json:"end_line" jsonschema:"0-based end line (exclusive)"`
	Language  string  `json:"language,omitempty" jsonschema:"language of the file"`
	Symbol    string  `json:"symbol,omitempty" jsonschema:"declared symbol, when known"`
	Score     float64 `json:"score" jsonschema:"relevance score"`
}

// SearchOutput is the output schema for search_code.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"ranked search results"`
}

// EnhanceInput is the input schema for enhance_prompt.
type EnhanceInput struct {
	Prompt string `json:"prompt" jsonschema:"the prompt to enrich with codebase context"`
}

// EnhanceOutput is the output schema for enhance_prompt.
type EnhanceOutput struct {
	Prompt string `json:"prompt" jsonschema:"the prompt with a codebase_context block prepended"`
}

// IndexInput is the input schema for index_codebase.
type IndexInput struct {
	Path string `json:"path,omitempty" jsonschema:"directory to index, defaults to the project root"`
}

// IndexOutput is the output schema for index_codebase.
type IndexOutput struct {
	IndexedFiles int `json:"indexed_files" jsonschema:"number of files walked"`
	Chunks       int `json:"chunks" jsonschema:"number of chunks written"`
}

// StatusInput is the (empty) input schema for index_status.
type StatusInput struct{}

// StatusOutput is the output schema for index_status.
type StatusOutput struct {
	Chunks     int64 `json:"chunks" jsonschema:"chunks in the index"`
	HasVectors bool  `json:"has_vectors" jsonschema:"whether dense vectors are stored"`
	Dimensions int   `json:"dimensions" jsonschema:"embedding dimension, 0 in lexical-only mode"`
}

// NewServer creates an MCP server over an engine.
func NewServer(eng *engine.Engine, rootPath string) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}

	s := &Server{
		engine:   eng,
		rootPath: rootPath,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "Holocron",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// registerTools registers every tool with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_code",
		Description: "Hybrid code search over the indexed codebase. Combines keyword and semantic retrieval, so it finds code by meaning as well as by name. Use this instead of grep for questions about how something is implemented.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "enhance_prompt",
		Description: "Wrap a prompt with a codebase_context block of relevant code chunks. Use when an upstream agent should see supporting code alongside the user's request.",
	}, s.handleEnhance)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_codebase",
		Description: "Index or re-index a directory tree. Run once per project before searching; subsequent searches pick up committed changes automatically.",
	}, s.handleIndex)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report index size and embedding mode. Use to verify the index exists before searching.",
	}, s.handleStatus)

	s.logger.Debug("MCP tools registered", slog.Int("count", 4))
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, fmt.Errorf("query parameter is required")
	}

	results, err := s.engine.Search(ctx, input.Query, search.Options{
		MaxResults: input.MaxResults,
		MinScore:   input.MinScore,
		Languages:  input.Languages,
		Directory:  input.Directory,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{
			FilePath:  r.Chunk.FilePath,
			Content:   r.Chunk.Content,
			StartLine: r.Chunk.StartLine,
			EndLine:   r.Chunk.EndLine,
			Language:  r.Chunk.Language,
			Symbol:    r.Chunk.SymbolName,
			Score:     r.Score,
		})
	}
	return nil, out, nil
}

func (s *Server) handleEnhance(ctx context.Context, req *mcp.CallToolRequest, input EnhanceInput) (
	*mcp.CallToolResult, EnhanceOutput, error,
) {
	if input.Prompt == "" {
		return nil, EnhanceOutput{}, fmt.Errorf("prompt parameter is required")
	}

	// Enhancement fails open: a search error returns the prompt unchanged.
	results, err := s.engine.Search(ctx, input.Prompt, search.Options{})
	if err != nil {
		s.logger.Warn("enhance search failed, returning prompt unchanged",
			slog.String("error", err.Error()))
		return nil, EnhanceOutput{Prompt: input.Prompt}, nil
	}

	block := s.engine.FormatContext(results, input.Prompt, format.Options{})
	if block == "" {
		return nil, EnhanceOutput{Prompt: input.Prompt}, nil
	}
	return nil, EnhanceOutput{Prompt: block + "\n\n" + input.Prompt}, nil
}

func (s *Server) handleIndex(ctx context.Context, req *mcp.CallToolRequest, input IndexInput) (
	*mcp.CallToolResult, IndexOutput, error,
) {
	path := input.Path
	if path == "" {
		path = s.rootPath
	}
	res, err := s.engine.IndexDirectory(ctx, path)
	if err != nil {
		return nil, IndexOutput{}, err
	}
	return nil, IndexOutput{IndexedFiles: res.IndexedFiles, Chunks: res.Chunks}, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
	*mcp.CallToolResult, StatusOutput, error,
) {
	stats, err := s.engine.Stats()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		Chunks:     stats.Chunks,
		HasVectors: stats.HasVectors,
		Dimensions: stats.Dimensions,
	}, nil
}

// Serve runs the server over stdio until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("MCP server stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}
