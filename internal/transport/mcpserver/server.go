package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/domain/market"
	"yfmcp/internal/errs"
	"yfmcp/internal/usecase/dispatch"
)

const (
	DefaultName    = "mcp-yfinance"
	DefaultVersion = "dev"
)

var errDispatcherRequired = errors.New("dispatcher is required")

type Options struct {
	Name    string
	Version string
}

// ToolInfo describes one registered tool.
type ToolInfo struct {
	Name        string         `json:"name" yaml:"name" toml:"name"`
	Description string         `json:"description" yaml:"description" toml:"description"`
	CacheClass  string         `json:"cache_class" yaml:"cache_class" toml:"cache_class"`
	Cacheable   bool           `json:"cacheable" yaml:"cacheable" toml:"cacheable"`
	InputSchema map[string]any `json:"input_schema" yaml:"input_schema" toml:"input_schema"`
}

type registeredTool struct {
	tool   dispatch.Tool
	schema *inputSchema
}

// Server exposes dispatcher-backed tools over MCP.
type Server struct {
	dispatcher *dispatch.Dispatcher
	tools      map[string]registeredTool
	names      []string
	mcp        *mcp.Server
}

// New registers one MCP tool per entry of tools. Schemas are generated once
// here.
func New(dispatcher *dispatch.Dispatcher, tools []dispatch.Tool, opts Options) (*Server, error) {
	if dispatcher == nil {
		return nil, errDispatcherRequired
	}
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}

	s := &Server{
		dispatcher: dispatcher,
		tools:      make(map[string]registeredTool, len(tools)),
		mcp:        mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil),
	}

	for _, tool := range tools {
		name := tool.Operation.Name
		if _, dup := s.tools[name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		schema, err := newInputSchema(tool.Input)
		if err != nil {
			return nil, errs.Wrapf(err, "tool %q", name)
		}

		s.tools[name] = registeredTool{tool: tool, schema: schema}
		s.names = append(s.names, name)
		s.mcp.AddTool(&mcp.Tool{
			Name:        name,
			Description: tool.Operation.Description,
			InputSchema: schema.doc,
		}, s.handler(name))
	}
	sort.Strings(s.names)

	return s, nil
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

func (s *Server) Tools() []ToolInfo {
	out := make([]ToolInfo, 0, len(s.names))
	for _, name := range s.names {
		rt := s.tools[name]
		out = append(out, ToolInfo{
			Name:        name,
			Description: rt.tool.Operation.Description,
			CacheClass:  s.dispatcher.Policy().CacheClass(name),
			Cacheable:   s.dispatcher.Policy().IsCacheable(name),
			InputSchema: rt.schema.doc,
		})
	}
	return out
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		text, failed := s.Call(ctx, name, args)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
			IsError: failed,
		}, nil
	}
}

// Call runs one tool and renders its outcome as the text returned to the
// client. failed reports whether text is an error message.
func (s *Server) Call(ctx context.Context, name string, args json.RawMessage) (text string, failed bool) {
	invocationID := uuid.NewString()
	ctx = logging.WithInvocation(ctx, name, invocationID)
	ctx = logging.WithAttrs(ctx, slog.String("component", "transport.mcpserver"))

	value, err := s.call(ctx, name, args)
	if err != nil {
		return renderError(ctx, name, err), true
	}

	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return renderError(ctx, name, market.Serialization(err)), true
	}
	return string(payload), false
}

func (s *Server) call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	rt, ok := s.tools[name]
	if !ok {
		return nil, errs.Wrapf(market.ErrUnknownOperation, "%s", name)
	}
	if err := rt.schema.validate(args); err != nil {
		return nil, err
	}

	params, err := decodeArguments(args)
	if err != nil {
		return nil, err
	}

	result, err := s.dispatcher.ExecuteResult(ctx, name, params, rt.tool.Fetch)
	if err != nil {
		return nil, err
	}
	logging.Debug(ctx, "tool call finished", slog.Bool("cached", result.Cached))
	return result.Value, nil
}

func decodeArguments(args json.RawMessage) (map[string]any, error) {
	params := map[string]any{}
	if len(args) == 0 || string(args) == "null" {
		return params, nil
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, market.InvalidParameter("arguments", string(args), "a JSON object")
	}
	return params, nil
}

// Run serves MCP over stdin/stdout until ctx is done or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	logging.Info(ctx, "serving mcp over stdio", slog.Int("tools", len(s.names)))
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}
