// Package render formats descriptors and backend answers for the terminal.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"bslnav/internal/backend"
	"bslnav/internal/models"
	"bslnav/internal/selection"
)

// maxEntries is how many callers or callees are listed per direction.
const maxEntries = 10

var (
	titleColor = color.New(color.FgCyan, color.Bold)
	upColor    = color.New(color.FgGreen, color.Bold)
	downColor  = color.New(color.FgYellow, color.Bold)
	labelColor = color.New(color.Bold)
	faintColor = color.New(color.Faint)
)

// CallGraph renders the callers and callees of functionName. Without a call
// graph in resp the raw backend answer is shown instead.
func CallGraph(functionName string, resp *backend.Response) string {
	var sb strings.Builder
	sb.WriteString(titleColor.Sprint("Граф вызовов для функции: " + functionName))
	sb.WriteString("\n\n")

	if resp == nil || resp.Result == nil {
		sb.WriteString("Результаты будут доступны после полной интеграции\n")
		sb.WriteString("Backend response: ")
		if resp != nil {
			sb.Write(compact(resp.Raw))
		}
		return sb.String()
	}

	if resp.Result.CalledBy != nil {
		writeRefs(&sb, upColor.Sprintf("▲ Вызывается из (%d):", len(resp.Result.CalledBy)), resp.Result.CalledBy)
		sb.WriteString("\n")
	}
	if resp.Result.CallsTo != nil {
		writeRefs(&sb, downColor.Sprintf("▼ Вызывает (%d):", len(resp.Result.CallsTo)), resp.Result.CallsTo)
	}
	return sb.String()
}

func writeRefs(sb *strings.Builder, header string, refs []backend.CallRef) {
	sb.WriteString(header)
	sb.WriteString("\n")
	for i, ref := range refs {
		if i == maxEntries {
			break
		}
		fmt.Fprintf(sb, "  • %s\n", ref)
	}
	if len(refs) > maxEntries {
		sb.WriteString(faintColor.Sprintf("  ... и еще %d", len(refs)-maxEntries))
		sb.WriteString("\n")
	}
}

// Analysis renders the raw analysis result for functionName.
func Analysis(functionName string, resp *backend.Response) string {
	var sb strings.Builder
	sb.WriteString(titleColor.Sprint("Анализ функции: " + functionName))
	sb.WriteString("\n\n")

	if resp == nil || resp.RawResult == nil {
		sb.WriteString("Нет результатов")
		return sb.String()
	}
	sb.WriteString("Результат:\n")
	sb.Write(compact(resp.RawResult))
	return sb.String()
}

// Descriptor renders a resolved function descriptor. withBody appends the
// function text.
func Descriptor(d *selection.Descriptor, withBody bool) string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	field := func(label, value string) {
		if value == "" {
			value = faintColor.Sprint("(unknown)")
		}
		fmt.Fprintf(&sb, "%s %s\n", labelColor.Sprintf("%-14s", label+":"), value)
	}

	field("Function", d.FunctionName)
	field("Module", d.ModuleName)
	field("Configuration", d.Configuration)
	field("Origin", string(d.Origin))
	if r := d.Region; r != nil {
		lines := fmt.Sprintf("%d-%d", r.StartLine+1, r.TerminatorLine+1)
		if !r.Complete {
			lines += " (no terminator)"
		}
		field("Kind", string(r.Kind))
		field("Lines", lines)
	}
	if withBody && d.FunctionBody != "" {
		sb.WriteString("\n")
		sb.WriteString(d.FunctionBody)
		if !strings.HasSuffix(d.FunctionBody, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// SearchResults renders one line per method hit, best first.
func SearchResults(results []models.SearchResult) string {
	if len(results) == 0 {
		return "No matching methods\n"
	}
	var sb strings.Builder
	for i, r := range results {
		m := r.Method
		fmt.Fprintf(&sb, "%2d. %s %s\n", i+1,
			labelColor.Sprint(m.QualifiedName()),
			faintColor.Sprintf("(%.3f)", r.Score))
		if m.FilePath != "" {
			fmt.Fprintf(&sb, "    %s:%d-%d\n", m.FilePath, m.StartLine, m.EndLine)
		}
		if m.Signature != "" {
			fmt.Fprintf(&sb, "    %s\n", m.Signature)
		}
	}
	return sb.String()
}

// JSON renders v indented, for --json output.
func JSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
