package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/s950329/qmd-bridge/internal/errors"
	"github.com/s950329/qmd-bridge/internal/gateway"
	"github.com/s950329/qmd-bridge/internal/indexer"
	"github.com/s950329/qmd-bridge/internal/tenant"
	"github.com/s950329/qmd-bridge/pkg/version"
)

// Server serves one tenant's collection over MCP stdio.
type Server struct {
	mcp       *mcp.Server
	gw        *gateway.Gateway
	scheduler *indexer.Scheduler
	bound     tenant.Tenant
	logger    *slog.Logger
}

// SearchInput is the input schema shared by the search tools.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to execute"`
}

// SearchOutput is the output schema shared by the search tools.
type SearchOutput struct {
	Output    string `json:"output" jsonschema:"raw tool output"`
	ElapsedMs int64  `json:"elapsed_ms" jsonschema:"execution time in milliseconds"`
}

// IndexProjectInput is the (empty) input schema for index_project.
type IndexProjectInput struct{}

// IndexProjectOutput reports whether a build was started.
type IndexProjectOutput struct {
	Started bool `json:"started" jsonschema:"true if a new index build was started"`
}

// IndexStatusInput is the (empty) input schema for index_status.
type IndexStatusInput struct{}

// IndexStatusOutput reports the bound tenant's index state.
type IndexStatusOutput struct {
	Label      string `json:"label" jsonschema:"tenant label"`
	Collection string `json:"collection" jsonschema:"collection the server is bound to"`
	InProgress bool   `json:"in_progress" jsonschema:"true while an index build is running"`
}

// NewServer creates an MCP server bound to one tenant.
func NewServer(gw *gateway.Gateway, sched *indexer.Scheduler, bound tenant.Tenant, logger *slog.Logger) (*Server, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if sched == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		gw:        gw,
		scheduler: sched,
		bound:     bound,
		logger:    logger,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "qmd-bridge",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Keyword search over the project's indexed documents. Fast and literal; use for exact terms and identifiers.",
	}, s.searchHandler("search"))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "vsearch",
		Description: "Semantic vector search over the project's indexed documents. Use when the phrasing of the answer may differ from the query.",
	}, s.searchHandler("vsearch"))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query",
		Description: "Hybrid search combining keyword and semantic ranking. The default choice when unsure.",
	}, s.searchHandler("query"))
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_project",
		Description: "Rebuild the project's search index. Returns immediately; use index_status to track completion.",
	}, s.indexProjectHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Check whether an index build is currently running for this project.",
	}, s.indexStatusHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 5))
}

// searchHandler builds the handler for one search command. The command and
// collection are fixed at registration; the client only supplies the query.
func (s *Server) searchHandler(command string) func(context.Context, *mcp.CallToolRequest, SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
		}
		if len(input.Query) > gateway.MaxQueryLen {
			return nil, SearchOutput{}, NewInvalidParamsError("query is too long")
		}

		resp, err := s.gw.Execute(ctx, gateway.Request{
			Command:    command,
			Query:      input.Query,
			Collection: s.bound.Collection,
		})
		if err != nil {
			return nil, SearchOutput{}, MapError(err)
		}
		return nil, SearchOutput{Output: resp.Output, ElapsedMs: resp.ElapsedMs}, nil
	}
}

func (s *Server) indexProjectHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexProjectInput) (*mcp.CallToolResult, IndexProjectOutput, error) {
	if s.scheduler.IsInProgress(s.bound.Label) {
		return nil, IndexProjectOutput{}, MapError(errors.New(errors.CodeIndexInProgress))
	}
	s.scheduler.TriggerIndex(s.bound)
	return nil, IndexProjectOutput{Started: true}, nil
}

func (s *Server) indexStatusHandler(_ context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (*mcp.CallToolResult, IndexStatusOutput, error) {
	return nil, IndexStatusOutput{
		Label:      s.bound.Label,
		Collection: s.bound.Collection,
		InProgress: s.scheduler.IsInProgress(s.bound.Label),
	}, nil
}

// Serve runs the server over stdio until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server",
		slog.String("tenant", s.bound.Label),
		slog.String("collection", s.bound.Collection),
	)
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}
