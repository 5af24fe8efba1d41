// Package mcpserver exposes the control surface to MCP clients. Tools read
// and patch the same store the HTTP API serves, so an agent and a browser
// see one state.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cjrt007/Tornado.Ai/pkg/catalog"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
	"github.com/cjrt007/Tornado.Ai/pkg/metrics"
	"github.com/cjrt007/Tornado.Ai/pkg/tracing"
)

// Server wraps the MCP server around a control store.
type Server struct {
	mcp     *mcp.Server
	store   *control.Store
	catalog *catalog.Catalog
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for tool calls.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records tool calls on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithTracer wraps each tool call in a span.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) { s.tracer = t }
}

// WithCatalog replaces the built-in tool catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// New creates a server with all tools, resources and prompts registered.
func New(store *control.Store, opts ...Option) *Server {
	s := &Server{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	s.tracer = tracing.OrNoop(s.tracer)

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    defaults.ToolName,
			Title:   defaults.ToolNameDisplay + " Control Surface",
			Version: defaults.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
		},
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// MCPServer returns the underlying MCP server (used by tests and custom transports).
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// RunStdio serves a single client over stdin/stdout until ctx is done.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.InfoContext(ctx, "mcp server listening on stdio", slog.String("version", defaults.Version))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns the streamable HTTP transport. The API mounts it at
// defaults.PathMCP behind its own middleware.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return s.mcp },
		&mcp.StreamableHTTPOptions{},
	)
}

const serverInstructions = `Tornado.Ai control surface.

The control surface holds feature toggles, role controls and scan profiles.
Read it with get_control_surface or the tornado://control resource.

Updates are partial: every record needs its key (feature "id", role "role",
scan profile "id") and only the fields you send change. A batch is applied
all-or-nothing; if any record fails validation nothing is written and the
result lists every issue with its path.

Tools:
  get_control_surface    current surface, optionally one section
  update_features        patch feature toggles
  update_roles           patch role controls
  update_scan_profiles   patch or create scan profiles
  reset_control_surface  restore the seed surface
  list_tools             simulated tool catalog, optionally by category
  check_permission       expand a role's permissions or test one

Scan profiles reference catalog tools by id (for example nmap_scan.sim).
Unknown ids are accepted and reported back as warnings.`

// instrument logs, counts and traces every call of a tool handler.
func (s *Server) instrument(name string, h mcp.ToolHandler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := s.tracer.Start(ctx, "mcp "+name,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", name)),
		)
		defer span.End()

		start := time.Now()
		res, err := h(ctx, req)
		failed := err != nil || (res != nil && res.IsError)

		tracing.RecordError(span, err)
		span.SetAttributes(attribute.Bool("mcp.tool.failed", failed))
		if s.metrics != nil {
			s.metrics.ObserveToolCall(name, failed)
		}

		level := slog.LevelInfo
		if failed {
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{
			slog.String("tool", name),
			slog.Bool("failed", failed),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		s.logger.LogAttrs(ctx, level, "mcp tool call", attrs...)
		return res, err
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// jsonResult marshals v to indented JSON and wraps it in a CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports a tool-level failure the client can read and correct.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// toolError is the JSON body of a failed update.
type toolError struct {
	Error   string          `json:"error"`
	Details []control.Issue `json:"details,omitempty"`
}

// storeErrorResult turns a rejected batch into an IsError result carrying
// every validation issue.
func storeErrorResult(err error) *mcp.CallToolResult {
	body := toolError{Error: err.Error()}
	if ve, ok := control.AsValidationError(err); ok {
		body = toolError{Error: "validation failed", Details: ve.Issues}
	}
	data, mErr := jsonutil.MarshalIndent(body, "  ")
	if mErr != nil {
		return errorResult(err.Error())
	}
	return errorResult(string(data))
}

func boolPtr(b bool) *bool { return &b }

// parseArgs unmarshals the raw JSON arguments from a tool call into dst.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}
