package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bslnav/internal/backend"
	"bslnav/internal/models"
	"bslnav/internal/selection"
)

const commonModule = `&НаСервере
Функция Получить(Ключ) Экспорт
	Возврат Ключ;
КонецФункции

Процедура Записать()
КонецПроцедуры
`

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type fakeCalls struct {
	module, function string
	body             string
	err              error
}

func (f *fakeCalls) AnalyzeDependencies(ctx context.Context, moduleName, functionName string) (*backend.Response, error) {
	f.module, f.function = moduleName, functionName
	if f.err != nil {
		return nil, f.err
	}
	return backend.DecodeResponse([]byte(f.body))
}

type fakeIndex struct {
	collection string
	query      string
	topK       int
	filter     models.QueryFilter
	similarTo  *selection.Descriptor
	results    []models.SearchResult
}

func (f *fakeIndex) Search(ctx context.Context, collection, query string, topK int, filter models.QueryFilter) ([]models.SearchResult, error) {
	f.collection, f.query, f.topK, f.filter = collection, query, topK, filter
	return f.results, nil
}

func (f *fakeIndex) FindSimilar(ctx context.Context, collection string, d *selection.Descriptor, topK int, filter models.QueryFilter) ([]models.SearchResult, error) {
	f.collection, f.similarTo, f.topK, f.filter = collection, d, topK, filter
	return f.results, nil
}

func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Configuration.xml"), []byte("<Configuration/>"), 0o644))
	dir := filepath.Join(root, "CommonModules", "Общий", "Ext")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Module.bsl"), []byte(commonModule), 0o644))
	return root
}

func newTestServer(t *testing.T, dir string, calls CallGraphSource, index MethodIndex) *Server {
	t.Helper()
	s, err := New(Config{Dir: dir, Collection: "bslnav_test"}, selection.NewResolver(nil, zerolog.Nop()), calls, index, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func TestNew_RegistersTools(t *testing.T) {
	s := newTestServer(t, t.TempDir(), nil, nil)
	assert.Equal(t,
		[]string{"locate_function", "resolve_element", "call_graph", "search_methods", "find_similar"},
		s.ToolNames())

	_, err := New(Config{}, nil, nil, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestGenerateInputSchema(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		wantProp string
	}{
		{"LocateFunctionInput", LocateFunctionInput{}, "line"},
		{"ResolveElementInput", ResolveElementInput{}, "element"},
		{"CallGraphInput", CallGraphInput{}, "function"},
		{"SearchMethodsInput", SearchMethodsInput{}, "query"},
		{"FindSimilarInput", FindSimilarInput{}, "offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := generateInputSchema(tt.input)
			require.NoError(t, err)
			assert.Equal(t, "object", schema["type"])
			assert.NotContains(t, schema, "$schema")
			assert.NotContains(t, schema, "$id")

			props, ok := schema["properties"].(map[string]any)
			require.True(t, ok, "properties: %v", schema["properties"])
			assert.Contains(t, props, tt.wantProp)

			raw, err := json.Marshal(schema)
			require.NoError(t, err)
			tool := mcp.NewToolWithRawSchema("t", "d", raw)
			assert.NotEmpty(t, tool.RawInputSchema)
		})
	}
}

func TestLocateFunction(t *testing.T) {
	root := newProject(t)
	s := newTestServer(t, root, nil, nil)

	res, err := s.handleLocateFunction(context.Background(), callRequest("locate_function", map[string]any{
		"file": "CommonModules/Общий/Ext/Module.bsl",
		"line": 3,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var out LocateFunctionOutput
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.NotNil(t, out.Descriptor)
	assert.True(t, out.Complete)
	assert.Equal(t, "Получить", out.Descriptor.FunctionName)
	assert.Equal(t, "CommonModules.Общий.Ext.Module", out.Descriptor.ModuleName)
	assert.Equal(t, "CommonModules", out.Descriptor.Configuration)
	assert.Contains(t, out.Descriptor.FunctionBody, "&НаСервере")
	assert.Contains(t, out.Descriptor.FunctionBody, "КонецФункции")
}

func TestLocateFunction_ContentWithoutModulePath(t *testing.T) {
	s := newTestServer(t, t.TempDir(), nil, nil)

	res, err := s.handleLocateFunction(context.Background(), callRequest("locate_function", map[string]any{
		"content":      commonModule,
		"line":         6,
		"include_body": false,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var out LocateFunctionOutput
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.False(t, out.Complete)
	assert.NotEmpty(t, out.Warning)
	assert.Equal(t, "Записать", out.Descriptor.FunctionName)
	assert.Empty(t, out.Descriptor.FunctionBody)
}

func TestLocateFunction_Errors(t *testing.T) {
	root := newProject(t)
	s := newTestServer(t, root, nil, nil)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"between methods", map[string]any{"file": "CommonModules/Общий/Ext/Module.bsl", "line": 5}},
		{"no position", map[string]any{"file": "CommonModules/Общий/Ext/Module.bsl"}},
		{"missing file", map[string]any{"file": "Missing.bsl", "line": 1}},
		{"bad arguments", map[string]any{"line": "three"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleLocateFunction(context.Background(), callRequest("locate_function", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestResolveElement(t *testing.T) {
	s := newTestServer(t, t.TempDir(), nil, nil)

	res, err := s.handleResolveElement(context.Background(), callRequest("resolve_element", map[string]any{
		"element": map[string]any{
			"name":   "ПередЗаписью",
			"source": "Процедура ПередЗаписью(Отказ)\nКонецПроцедуры",
			"module": map[string]any{"name": "Catalogs.Items.ObjectModule"},
		},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var out LocateFunctionOutput
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.True(t, out.Complete)
	assert.Equal(t, "Catalogs.Items.ObjectModule", out.Descriptor.ModuleName)
	assert.Equal(t, "Catalogs", out.Descriptor.Configuration)
	assert.Equal(t, selection.OriginStructured, out.Descriptor.Origin)

	res, err = s.handleResolveElement(context.Background(), callRequest("resolve_element", map[string]any{
		"element": map[string]any{"name": "БезМодуля"},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleResolveElement(context.Background(), callRequest("resolve_element", nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestCallGraph(t *testing.T) {
	root := newProject(t)
	calls := &fakeCalls{body: `{"result":{"called_by":[{"module":"Documents.Order","function":"Post"}],"calls_to":[]}}`}
	s := newTestServer(t, root, calls, nil)

	res, err := s.handleCallGraph(context.Background(), callRequest("call_graph", map[string]any{
		"file": "CommonModules/Общий/Ext/Module.bsl",
		"line": 2,
	}))
	require.NoError(t, err)
	text := resultText(t, res)
	require.False(t, res.IsError, text)

	assert.Equal(t, "CommonModules.Общий.Ext.Module", calls.module)
	assert.Equal(t, "Получить", calls.function)
	assert.Contains(t, text, "Граф вызовов для функции: Получить")
	assert.Contains(t, text, "▲ Вызывается из (1):")
	assert.Contains(t, text, "  • Documents.Order.Post")
	assert.Contains(t, text, "▼ Вызывает (0):")
}

func TestCallGraph_ByNameRaw(t *testing.T) {
	calls := &fakeCalls{body: `{"status":"queued"}`}
	s := newTestServer(t, t.TempDir(), calls, nil)

	res, err := s.handleCallGraph(context.Background(), callRequest("call_graph", map[string]any{
		"module":   "CommonModules.Foo",
		"function": "Bar",
		"raw":      true,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, `{"status":"queued"}`, resultText(t, res))
	assert.Equal(t, "CommonModules.Foo", calls.module)
}

func TestCallGraph_Failures(t *testing.T) {
	s := newTestServer(t, t.TempDir(), nil, nil)
	res, err := s.handleCallGraph(context.Background(), callRequest("call_graph", map[string]any{"module": "M", "function": "F"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "not configured")

	calls := &fakeCalls{err: errors.New("connection refused")}
	s = newTestServer(t, t.TempDir(), calls, nil)
	res, err = s.handleCallGraph(context.Background(), callRequest("call_graph", map[string]any{"module": "M", "function": "F"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "connection refused")

	// Without a module the backend cannot be asked.
	calls.function = ""
	res, err = s.handleCallGraph(context.Background(), callRequest("call_graph", map[string]any{
		"content": commonModule,
		"line":    2,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Empty(t, calls.function)
}

func TestSearchMethods(t *testing.T) {
	index := &fakeIndex{results: []models.SearchResult{{
		Method: models.MethodPayload{
			FilePath:     "/p/Module.bsl",
			ModuleName:   "CommonModules.Foo.Module",
			FunctionName: "Получить",
			Kind:         "function",
			StartLine:    2,
			EndLine:      4,
			Content:      "long body",
		},
		Score: 0.87,
	}}}
	s := newTestServer(t, t.TempDir(), nil, index)

	res, err := s.handleSearchMethods(context.Background(), callRequest("search_methods", map[string]any{
		"query":          "получение значения",
		"top_k":          3,
		"configurations": []any{"CommonModules"},
		"export_only":    true,
	}))
	require.NoError(t, err)
	text := resultText(t, res)
	require.False(t, res.IsError, text)

	assert.Equal(t, "bslnav_test", index.collection)
	assert.Equal(t, "получение значения", index.query)
	assert.Equal(t, 3, index.topK)
	assert.Equal(t, []string{"CommonModules"}, index.filter.Configurations)
	assert.True(t, index.filter.ExportOnly)

	var out SearchOutput
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "Получить", out.Results[0].Function)
	assert.InDelta(t, 0.87, out.Results[0].Score, 1e-9)
	assert.NotContains(t, text, "long body")
}

func TestSearchMethods_NotConfigured(t *testing.T) {
	s := newTestServer(t, t.TempDir(), nil, nil)
	res, err := s.handleSearchMethods(context.Background(), callRequest("search_methods", map[string]any{"query": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestFindSimilar(t *testing.T) {
	root := newProject(t)
	index := &fakeIndex{}
	s := newTestServer(t, root, nil, index)

	res, err := s.handleFindSimilar(context.Background(), callRequest("find_similar", map[string]any{
		"file": "CommonModules/Общий/Ext/Module.bsl",
		"line": 7,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	require.NotNil(t, index.similarTo)
	assert.Equal(t, "Записать", index.similarTo.FunctionName)
	assert.Equal(t, 10, index.topK)
	assert.JSONEq(t, `{"results":[]}`, resultText(t, res))
	assert.Equal(t, models.QueryFilter{}, index.filter)
}

func TestFindSimilar_Filters(t *testing.T) {
	root := newProject(t)
	index := &fakeIndex{}
	s := newTestServer(t, root, nil, index)

	res, err := s.handleFindSimilar(context.Background(), callRequest("find_similar", map[string]any{
		"file":           "CommonModules/Общий/Ext/Module.bsl",
		"line":           3,
		"top_k":          5,
		"kinds":          []any{"function"},
		"configurations": []any{"Catalogs", "CommonModules"},
		"module_prefix":  []any{"CommonModules.Общ"},
		"export_only":    true,
		"min_lines":      2,
		"max_lines":      40,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	require.NotNil(t, index.similarTo)
	assert.Equal(t, "Получить", index.similarTo.FunctionName)
	assert.Equal(t, 5, index.topK)
	assert.Equal(t, models.QueryFilter{
		Kinds:          []string{"function"},
		Configurations: []string{"Catalogs", "CommonModules"},
		ModulePrefix:   []string{"CommonModules.Общ"},
		ExportOnly:     true,
		MinLines:       2,
		MaxLines:       40,
	}, index.filter)

	schema, err := generateInputSchema(FindSimilarInput{})
	require.NoError(t, err)
	props := schema["properties"].(map[string]any)
	for _, name := range []string{"kinds", "configurations", "module_prefix", "export_only", "min_lines", "max_lines"} {
		assert.Contains(t, props, name)
	}
}
