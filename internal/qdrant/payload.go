package qdrant

import (
	"bslnav/internal/models"
	"encoding/json"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// MethodToPayload converts an indexed method into a Qdrant payload.
func MethodToPayload(m models.MethodPayload) map[string]*qdrant.Value {
	annotations := m.Annotations
	if annotations == nil {
		annotations = []string{}
	}
	return MapToPayload(map[string]interface{}{
		"file_path":     m.FilePath,
		"language":      m.Language,
		"module_name":   m.ModuleName,
		"configuration": m.Configuration,
		"function_name": m.FunctionName,
		"kind":          m.Kind,
		"start_line":    m.StartLine,
		"end_line":      m.EndLine,
		"code_hash":     m.CodeHash,
		"content":       m.Content,
		"signature":     m.Signature,
		"annotations":   annotations,
		"export":        m.Export,
	})
}

// PayloadToMethod decodes a payload written by MethodToPayload. Unknown keys
// are ignored and missing keys leave zero values.
func PayloadToMethod(payload map[string]*qdrant.Value) (models.MethodPayload, error) {
	var m models.MethodPayload
	data, err := json.Marshal(PayloadToMap(payload))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode method payload: %w", err)
	}
	return m, nil
}

// FileFilter matches every point stored for the file at path.
func FileFilter(path string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "file_path",
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{
								Keyword: path,
							},
						},
					},
				},
			},
		},
	}
}
