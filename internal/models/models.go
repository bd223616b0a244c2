package models

// MethodPayload is stored with each indexed procedure or function.
type MethodPayload struct {
	FilePath      string   `json:"file_path"`
	Language      string   `json:"language"`
	ModuleName    string   `json:"module_name"`
	Configuration string   `json:"configuration"`
	FunctionName  string   `json:"function_name"`
	Kind          string   `json:"kind"`
	StartLine     int      `json:"start_line"`
	EndLine       int      `json:"end_line"`
	CodeHash      string   `json:"code_hash"`
	Content       string   `json:"content"`
	Signature     string   `json:"signature"`
	Annotations   []string `json:"annotations"`
	Export        bool     `json:"export"`
}

// QualifiedName returns "module.function".
func (p MethodPayload) QualifiedName() string {
	if p.ModuleName == "" {
		return p.FunctionName
	}
	return p.ModuleName + "." + p.FunctionName
}

// Lines is the method length in lines.
func (p MethodPayload) Lines() int {
	return p.EndLine - p.StartLine + 1
}

type QueryFilter struct {
	Kinds          []string `json:"kinds"`
	Configurations []string `json:"configurations"`
	ModulePrefix   []string `json:"module_prefix"`
	ExportOnly     bool     `json:"export_only"`
	MinLines       int      `json:"min_lines"`
	MaxLines       int      `json:"max_lines"`
}

// Matches reports whether p passes every set constraint of f.
func (f QueryFilter) Matches(p MethodPayload) bool {
	if len(f.Kinds) > 0 && !containsFold(f.Kinds, p.Kind) {
		return false
	}
	if len(f.Configurations) > 0 && !containsFold(f.Configurations, p.Configuration) {
		return false
	}
	if len(f.ModulePrefix) > 0 {
		matched := false
		for _, prefix := range f.ModulePrefix {
			if hasPrefixFold(p.ModuleName, prefix) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.ExportOnly && !p.Export {
		return false
	}
	lines := p.Lines()
	if f.MinLines > 0 && lines < f.MinLines {
		return false
	}
	if f.MaxLines > 0 && lines > f.MaxLines {
		return false
	}
	return true
}

type SearchResult struct {
	Method MethodPayload `json:"method"`
	Score  float64       `json:"score"`
}
