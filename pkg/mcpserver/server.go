// Package mcpserver exposes the norms engine to coding agents as MCP tools
// over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/simonhull/norms/pkg/engine"
	"github.com/simonhull/norms/pkg/logger"
	"github.com/simonhull/norms/pkg/project"
	"github.com/simonhull/norms/pkg/report"
	"github.com/simonhull/norms/pkg/todos"
)

// Tool names
const (
	CheckTool   = "check_conventions"
	PatternTool = "find_pattern"
	TodosTool   = "list_todos"
)

// Server answers convention queries for one repository root
type Server struct {
	engine  *engine.Engine
	root    string
	version string
	logger  logger.Logger
}

// New creates a Server checking files under root
func New(eng *engine.Engine, root, version string) *Server {
	return &Server{
		engine:  eng,
		root:    root,
		version: version,
		logger:  logger.Default(),
	}
}

// WithLogger sets the logger used for request tracing
func (s *Server) WithLogger(log logger.Logger) *Server {
	s.logger = log
	return s
}

// CheckInput defines the input parameters for the check_conventions tool
type CheckInput struct {
	Files  []string `json:"files,omitempty" jsonschema:"files to check, relative to the repository root; defaults to the files changed since base"`
	Base   string   `json:"base,omitempty" jsonschema:"revision to diff against, default HEAD"`
	Head   string   `json:"head,omitempty" jsonschema:"revision to diff to; empty compares against the working tree"`
	Format string   `json:"format,omitempty" jsonschema:"report format: json (default), markdown or text"`
}

// PatternInput defines the input parameters for the find_pattern tool
type PatternInput struct {
	Role    string `json:"role" jsonschema:"role or tag to learn, e.g. Controller, Security/Voter or Voter"`
	Feature string `json:"feature,omitempty" jsonschema:"keyword that reference paths should fuzzily match"`
	Count   int    `json:"count,omitempty" jsonschema:"number of references, 3 to 5"`
	Format  string `json:"format,omitempty" jsonschema:"report format: json (default), markdown or text"`
}

// TodosInput defines the input parameters for the list_todos tool
type TodosInput struct {
	Scope  string `json:"scope,omitempty" jsonschema:"only list TODOs of this scope"`
	Format string `json:"format,omitempty" jsonschema:"output format: json (default), markdown or text"`
}

// MCP builds the protocol server with every tool registered
func (s *Server) MCP() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "norms",
		Version: s.version,
	}, &mcp.ServerOptions{})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        CheckTool,
		Description: "Compare changed files with the conventions of similar files in the repository and report violations",
	}, s.checkConventions)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        PatternTool,
		Description: "Learn the naming, import, dependency and error handling conventions of a role from reference files",
	}, s.findPattern)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        TodosTool,
		Description: "List inline TODO(scope): comments in the repository, grouped by scope",
	}, s.listTodos)

	return srv
}

// Run serves over stdio until the client disconnects or ctx is done
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting", logger.F("root", s.root))
	return s.MCP().Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) checkConventions(ctx context.Context, req *mcp.CallToolRequest, input CheckInput) (*mcp.CallToolResult, any, error) {
	format, err := parseFormat(input.Format)
	if err != nil {
		return toolError(err), nil, nil
	}

	rep, err := s.engine.Check(ctx, engine.CheckRequest{
		Root:  s.root,
		Files: input.Files,
		Base:  input.Base,
		Head:  input.Head,
	})
	if err != nil {
		return s.failure(CheckTool, err)
	}
	return render(rep, format)
}

func (s *Server) findPattern(ctx context.Context, req *mcp.CallToolRequest, input PatternInput) (*mcp.CallToolResult, any, error) {
	if input.Role == "" {
		return toolError(errors.New("role required")), nil, nil
	}
	format, err := parseFormat(input.Format)
	if err != nil {
		return toolError(err), nil, nil
	}

	rep, err := s.engine.Pattern(ctx, engine.PatternRequest{
		Root:    s.root,
		Role:    input.Role,
		Feature: input.Feature,
		Count:   input.Count,
	})
	if err != nil {
		return s.failure(PatternTool, err)
	}
	return render(rep, format)
}

func (s *Server) listTodos(ctx context.Context, req *mcp.CallToolRequest, input TodosInput) (*mcp.CallToolResult, any, error) {
	format, err := parseFormat(input.Format)
	if err != nil {
		return toolError(err), nil, nil
	}

	res, err := s.engine.Todos(ctx, s.root, input.Scope)
	if err != nil {
		return s.failure(TodosTool, err)
	}
	var buf bytes.Buffer
	if err := todos.Render(&buf, res, format); err != nil {
		return nil, nil, fmt.Errorf("rendering todos: %w", err)
	}
	return textResult(buf.String()), nil, nil
}

// failure turns request and detection errors into tool errors the agent
// can read. Anything else, such as cancellation, fails the call.
func (s *Server) failure(tool string, err error) (*mcp.CallToolResult, any, error) {
	var reqErr *engine.RequestError
	var detErr *project.DetectionError
	if errors.As(err, &reqErr) || errors.As(err, &detErr) {
		s.logger.Warn("Tool request rejected", logger.F("tool", tool), logger.F("error", err))
		return toolError(err), nil, nil
	}
	s.logger.Error("Tool failed", logger.F("tool", tool), logger.F("error", err))
	return nil, nil, fmt.Errorf("%s: %w", tool, err)
}

func parseFormat(s string) (report.Format, error) {
	if s == "" {
		return report.FormatJSON, nil
	}
	return report.ParseFormat(s)
}

func render(rep report.Report, format report.Format) (*mcp.CallToolResult, any, error) {
	var buf bytes.Buffer
	if err := report.Render(&buf, rep, format, report.RenderOptions{}); err != nil {
		return nil, nil, fmt.Errorf("rendering report: %w", err)
	}
	return textResult(buf.String()), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
