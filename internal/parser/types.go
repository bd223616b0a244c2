package parser

// FunctionNode represents a procedure or function found in a source file
type FunctionNode struct {
	Name        string   // Method name
	NodeType    string   // "procedure" or "function"
	StartLine   int      // First line, annotations included (1-indexed)
	EndLine     int      // Terminator line (1-indexed)
	Content     string   // Full source text from header through terminator
	StartOffset int      // Character offset of StartLine
	EndOffset   int      // Character offset just past the terminator line
	Signature   string   // Trimmed header line
	Annotations []string // Compilation directives and annotations above the header
	Export      bool     // Whether the header carries the export keyword
}

// LanguageParser defines the interface for language-specific parsers
type LanguageParser interface {
	// ExtractFunctions scans source code and extracts procedure/function definitions
	ExtractFunctions(filePath string, code []byte) ([]FunctionNode, error)

	// Language returns the language name
	Language() string
}

// Language represents supported source languages
type Language string

const (
	LanguageBSL     Language = "bsl"
	LanguageOScript Language = "oscript"
)
