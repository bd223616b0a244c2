// Package mcp exposes function resolution, call graphs and method search to
// MCP clients over stdio.
package mcp

import (
	"bslnav/internal/backend"
	"bslnav/internal/models"
	"bslnav/internal/selection"
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// CallGraphSource fetches dependency analysis for a function.
type CallGraphSource interface {
	AnalyzeDependencies(ctx context.Context, moduleName, functionName string) (*backend.Response, error)
}

// MethodIndex searches indexed methods.
type MethodIndex interface {
	Search(ctx context.Context, collection, query string, topK int, filter models.QueryFilter) ([]models.SearchResult, error)
	FindSimilar(ctx context.Context, collection string, d *selection.Descriptor, topK int, filter models.QueryFilter) ([]models.SearchResult, error)
}

// Config contains configuration for the MCP server.
type Config struct {
	Name    string
	Version string

	// Dir is the directory relative file paths are resolved against.
	Dir string

	// Collection is the method index collection for Dir.
	Collection string
}

type Server struct {
	mcpServer *server.MCPServer
	resolver  *selection.Resolver
	calls     CallGraphSource
	index     MethodIndex
	config    Config
	logger    zerolog.Logger
	tools     []string
}

// New builds a server with every tool registered. calls and index may be nil;
// the tools depending on them then report that they are not configured.
func New(cfg Config, resolver *selection.Resolver, calls CallGraphSource, index MethodIndex, logger zerolog.Logger) (*Server, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if cfg.Name == "" {
		cfg.Name = "bslnav"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		mcpServer: server.NewMCPServer(cfg.Name, cfg.Version, server.WithToolCapabilities(true)),
		resolver:  resolver,
		calls:     calls,
		index:     index,
		config:    cfg,
		logger:    logger,
	}
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	logger.Debug().
		Strs("tools", s.tools).
		Str("dir", cfg.Dir).
		Msg("MCP server initialized")
	return s, nil
}

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
// Nothing else may write to stdout while it runs.
func (s *Server) ServeStdio() error {
	s.logger.Info().Msg("Starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ToolNames lists the registered tools in registration order.
func (s *Server) ToolNames() []string {
	return append([]string(nil), s.tools...)
}

func (s *Server) registerTools() error {
	tools := []struct {
		name        string
		description string
		input       any
		handler     server.ToolHandlerFunc
	}{
		{
			"locate_function",
			"Find the procedure or function enclosing a cursor position in a 1C:Enterprise (BSL) module. Returns the function name, its dotted module name and its text.",
			LocateFunctionInput{},
			s.handleLocateFunction,
		},
		{
			"resolve_element",
			"Resolve a model element (method property map with optional owner/container chain) to a function descriptor.",
			ResolveElementInput{},
			s.handleResolveElement,
		},
		{
			"call_graph",
			"Show callers and callees of a BSL function from the dependency analysis backend. Give either a cursor location or module and function.",
			CallGraphInput{},
			s.handleCallGraph,
		},
		{
			"search_methods",
			"Semantic search over indexed BSL procedures and functions.",
			SearchMethodsInput{},
			s.handleSearchMethods,
		},
		{
			"find_similar",
			"Find indexed methods similar to the function enclosing a cursor position.",
			FindSimilarInput{},
			s.handleFindSimilar,
		},
	}

	for _, t := range tools {
		if err := s.registerToolWithSchema(t.name, t.description, t.input, t.handler); err != nil {
			return err
		}
	}
	return nil
}

// generateInputSchema generates an inline JSON schema from a Go type.
func generateInputSchema(inputType any) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(inputType)

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaBytes, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	// MCP clients expect type/properties/required only.
	delete(schemaMap, "$schema")
	delete(schemaMap, "$id")
	return schemaMap, nil
}

func (s *Server) registerToolWithSchema(name, description string, inputType any, handler server.ToolHandlerFunc) error {
	inputSchema, err := generateInputSchema(inputType)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	schemaBytes, err := json.Marshal(inputSchema)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal schema: %w", name, err)
	}

	tool := mcp.NewToolWithRawSchema(name, description, schemaBytes)
	s.mcpServer.AddTool(tool, s.logged(name, handler))
	s.tools = append(s.tools, name)
	return nil
}

func (s *Server) logged(name string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.logger.Debug().Str("tool", name).Msg("tool call")
		res, err := handler(ctx, request)
		if res != nil && res.IsError {
			s.logger.Debug().Str("tool", name).Msg("tool call failed")
		}
		return res, err
	}
}

func parseArguments(request mcp.CallToolRequest, input any) error {
	if request.Params.Arguments == nil {
		return nil
	}
	argBytes, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(argBytes, input); err != nil {
		return fmt.Errorf("failed to parse arguments: %w", err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
