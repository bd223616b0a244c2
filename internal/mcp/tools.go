package mcp

import (
	"bslnav/internal/analyzer"
	"bslnav/internal/render"
	"bslnav/internal/selection"
	"bslnav/internal/workspace"
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// locate resolves the function enclosing a cursor. A descriptor without a
// module comes back together with selection.ErrIncompleteDescriptor.
func (s *Server) locate(in LocationInput) (*selection.Descriptor, error) {
	loc := workspace.Location{
		File:    in.File,
		BaseDir: s.config.Dir,
		Offset:  in.Offset,
	}
	if in.Content != nil {
		loc.Content = *in.Content
	}
	if in.ModulePath != nil {
		loc.ModulePath = *in.ModulePath
	}
	if in.Project != nil {
		loc.Root = *in.Project
	}
	if in.Line != nil {
		loc.Line = *in.Line
	}
	if in.Column != nil {
		loc.Column = *in.Column
	}

	editor, offset, err := loc.Open()
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(selection.TextCursor{Offset: offset}, editor)
}

// locateOutput maps a resolution outcome to a tool result. Incomplete
// descriptors are still returned with a warning.
func locateOutput(d *selection.Descriptor, err error) (LocateFunctionOutput, error) {
	switch {
	case err == nil:
		return LocateFunctionOutput{Descriptor: d, Complete: true}, nil
	case errors.Is(err, selection.ErrIncompleteDescriptor) && d != nil:
		return LocateFunctionOutput{Descriptor: d, Warning: err.Error()}, nil
	default:
		return LocateFunctionOutput{}, fmt.Errorf("could not determine function info: %w", err)
	}
}

func (s *Server) handleLocateFunction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input LocateFunctionInput
	if err := parseArguments(request, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := locateOutput(s.locate(input.LocationInput))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if input.IncludeBody != nil && !*input.IncludeBody {
		d := *out.Descriptor
		d.FunctionBody = ""
		out.Descriptor = &d
	}
	return jsonResult(out)
}

func (s *Server) handleResolveElement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ResolveElementInput
	if err := parseArguments(request, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(input.Element) == 0 {
		return mcp.NewToolResultError("element is required"), nil
	}

	d, err := s.resolver.Resolve(selection.Structured{Elements: []any{input.Element}}, nil)
	out, err := locateOutput(d, err)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

func (s *Server) handleCallGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CallGraphInput
	if err := parseArguments(request, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.calls == nil {
		return mcp.NewToolResultError("dependency analysis backend is not configured"), nil
	}

	var module, function string
	if input.Module != nil && input.Function != nil && *input.Module != "" && *input.Function != "" {
		module, function = *input.Module, *input.Function
	} else {
		d, err := s.locate(input.LocationInput)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("could not determine function info: %v", err)), nil
		}
		module, function = d.ModuleName, d.FunctionName
	}

	resp, err := s.calls.AnalyzeDependencies(ctx, module, function)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("dependency analysis failed: %v", err)), nil
	}
	if input.Raw != nil && *input.Raw {
		return mcp.NewToolResultText(string(resp.Raw)), nil
	}
	return mcp.NewToolResultText(render.CallGraph(function, resp)), nil
}

func (s *Server) handleSearchMethods(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input SearchMethodsInput
	if err := parseArguments(request, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.index == nil {
		return mcp.NewToolResultError("method index is not configured"), nil
	}

	results, err := s.index.Search(ctx, s.config.Collection, input.Query, topK(input.TopK), input.filter())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(toHits(results))
}

func (s *Server) handleFindSimilar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input FindSimilarInput
	if err := parseArguments(request, &input); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.index == nil {
		return mcp.NewToolResultError("method index is not configured"), nil
	}

	d, err := s.locate(input.LocationInput)
	if err != nil && !errors.Is(err, selection.ErrIncompleteDescriptor) {
		return mcp.NewToolResultError(fmt.Sprintf("could not determine function info: %v", err)), nil
	}

	results, err := s.index.FindSimilar(ctx, s.config.Collection, d, topK(input.TopK), input.filter())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(toHits(results))
}

func topK(v *int) int {
	if v == nil || *v <= 0 {
		return analyzer.DefaultTopK
	}
	return *v
}
