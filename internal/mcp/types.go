package mcp

import (
	"bslnav/internal/models"
	"bslnav/internal/selection"
)

// Input types for MCP tools.
// Optional fields use pointers to allow nil values.

// LocationInput addresses a cursor in a module file or in a module text.
type LocationInput struct {
	File       string  `json:"file,omitempty" jsonschema:"description=Module file path; relative paths are resolved against the server directory"`
	Content    *string `json:"content,omitempty" jsonschema:"description=Module text to use instead of reading file"`
	ModulePath *string `json:"module_path,omitempty" jsonschema:"description=Project-relative path of content (e.g. 'CommonModules/Common/Ext/Module.bsl')"`
	Project    *string `json:"project,omitempty" jsonschema:"description=Project root; discovered from the file when omitted"`
	Offset     *int    `json:"offset,omitempty" jsonschema:"description=Zero-based character offset of the cursor"`
	Line       *int    `json:"line,omitempty" jsonschema:"description=1-based cursor line (used when offset is omitted)"`
	Column     *int    `json:"column,omitempty" jsonschema:"description=1-based cursor column,default=1"`
}

// LocateFunctionInput is the input for locate_function.
type LocateFunctionInput struct {
	LocationInput
	IncludeBody *bool `json:"include_body,omitempty" jsonschema:"description=Return the function text,default=true"`
}

// LocateFunctionOutput is the result of locate_function and resolve_element.
type LocateFunctionOutput struct {
	Descriptor *selection.Descriptor `json:"descriptor,omitempty"`
	Complete   bool                  `json:"complete"`
	Warning    string                `json:"warning,omitempty"`
}

// ResolveElementInput is the input for resolve_element.
type ResolveElementInput struct {
	Element map[string]any `json:"element" jsonschema:"description=Model element as a property map (name/source/module/owner/container keys)"`
}

// CallGraphInput is the input for call_graph. Module and function skip
// location when both are given.
type CallGraphInput struct {
	LocationInput
	Module   *string `json:"module,omitempty" jsonschema:"description=Dotted module name (e.g. 'CommonModules.Common.Module')"`
	Function *string `json:"function,omitempty" jsonschema:"description=Procedure or function name"`
	Raw      *bool   `json:"raw,omitempty" jsonschema:"description=Return the backend JSON instead of the rendered graph"`
}

// FilterInput narrows search_methods and find_similar results.
type FilterInput struct {
	Kinds          []string `json:"kinds,omitempty" jsonschema:"description=Optional: Restrict to kinds,enum=procedure,enum=function"`
	Configurations []string `json:"configurations,omitempty" jsonschema:"description=Optional: Restrict to configuration object kinds (e.g. 'CommonModules')"`
	ModulePrefix   []string `json:"module_prefix,omitempty" jsonschema:"description=Optional: Restrict to modules with these name prefixes"`
	ExportOnly     *bool    `json:"export_only,omitempty" jsonschema:"description=Only exported methods"`
	MinLines       *int     `json:"min_lines,omitempty" jsonschema:"description=Optional: Minimum method length in lines"`
	MaxLines       *int     `json:"max_lines,omitempty" jsonschema:"description=Optional: Maximum method length in lines"`
}

func (in FilterInput) filter() models.QueryFilter {
	f := models.QueryFilter{
		Kinds:          in.Kinds,
		Configurations: in.Configurations,
		ModulePrefix:   in.ModulePrefix,
	}
	if in.ExportOnly != nil {
		f.ExportOnly = *in.ExportOnly
	}
	if in.MinLines != nil {
		f.MinLines = *in.MinLines
	}
	if in.MaxLines != nil {
		f.MaxLines = *in.MaxLines
	}
	return f
}

// SearchMethodsInput is the input for search_methods.
type SearchMethodsInput struct {
	Query string `json:"query" jsonschema:"description=Natural language or code query (required)"`
	TopK  *int   `json:"top_k,omitempty" jsonschema:"description=Maximum number of results,default=10"`
	FilterInput
}

// FindSimilarInput is the input for find_similar.
type FindSimilarInput struct {
	LocationInput
	TopK *int `json:"top_k,omitempty" jsonschema:"description=Maximum number of results,default=10"`
	FilterInput
}

// MethodHit is one search result. Content is omitted to keep replies small.
type MethodHit struct {
	Module    string  `json:"module"`
	Function  string  `json:"function"`
	Kind      string  `json:"kind,omitempty"`
	File      string  `json:"file"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Signature string  `json:"signature,omitempty"`
	Export    bool    `json:"export,omitempty"`
	Score     float64 `json:"score"`
}

// SearchOutput is the result of search_methods and find_similar.
type SearchOutput struct {
	Results []MethodHit `json:"results"`
}

func toHits(results []models.SearchResult) SearchOutput {
	out := SearchOutput{Results: make([]MethodHit, 0, len(results))}
	for _, r := range results {
		m := r.Method
		out.Results = append(out.Results, MethodHit{
			Module:    m.ModuleName,
			Function:  m.FunctionName,
			Kind:      m.Kind,
			File:      m.FilePath,
			StartLine: m.StartLine,
			EndLine:   m.EndLine,
			Signature: m.Signature,
			Export:    m.Export,
			Score:     r.Score,
		})
	}
	return out
}
