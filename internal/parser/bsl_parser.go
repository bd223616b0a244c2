package parser

import (
	"strings"

	"bslnav/internal/document"
)

// BSLParser implements LanguageParser for 1C:Enterprise modules
type BSLParser struct {
	locator *Locator
	lang    Language
}

// NewBSLParser creates a parser sharing the locator's keyword patterns
func NewBSLParser(locator *Locator) *BSLParser {
	return &BSLParser{locator: locator, lang: LanguageBSL}
}

// NewOScriptParser creates a parser for OneScript sources, which use the same syntax
func NewOScriptParser(locator *Locator) *BSLParser {
	return &BSLParser{locator: locator, lang: LanguageOScript}
}

// Language returns the language name
func (p *BSLParser) Language() string {
	return string(p.lang)
}

// ExtractFunctions returns every terminated procedure and function in code.
// Headers without a matching terminator are skipped. Content starts at the
// annotation lines directly above the header, if any.
func (p *BSLParser) ExtractFunctions(filePath string, code []byte) ([]FunctionNode, error) {
	text, err := document.Decode(code)
	if err != nil {
		return nil, err
	}
	return p.ExtractFromDocument(document.New(text))
}

// ExtractFromDocument is ExtractFunctions over an already decoded buffer.
func (p *BSLParser) ExtractFromDocument(doc document.Document) ([]FunctionNode, error) {
	pt := p.locator.p
	var functions []FunctionNode
	var annotations []string
	annotationStart := -1

	for line := 0; line < doc.NumberOfLines(); line++ {
		text, err := document.LineText(doc, line)
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(text)
		if pt.isAnnotation(trimmed) {
			if annotations == nil {
				annotationStart = line
			}
			annotations = append(annotations, trimmed)
			continue
		}

		m := pt.header.FindStringSubmatch(trimmed)
		if m == nil {
			annotations = nil
			continue
		}
		startLine := line
		if annotations != nil {
			startLine = annotationStart
		}

		kind := pt.classify(m[1])
		endLine, complete, err := p.locator.findTerminator(doc, line, kind)
		if err != nil {
			return nil, err
		}
		if !complete {
			annotations = nil
			continue
		}

		node, err := buildFunctionNode(doc, startLine, endLine, m[2], kind, trimmed)
		if err != nil {
			return nil, err
		}
		node.Annotations = annotations
		node.Export = pt.export != nil && pt.export.MatchString(trimmed)
		functions = append(functions, node)

		annotations = nil
		line = endLine
	}

	return functions, nil
}

func buildFunctionNode(doc document.Document, startLine, endLine int, name string, kind Kind, signature string) (FunctionNode, error) {
	startOffset, err := doc.LineOffset(startLine)
	if err != nil {
		return FunctionNode{}, err
	}
	endLineOffset, err := doc.LineOffset(endLine)
	if err != nil {
		return FunctionNode{}, err
	}
	endLineLength, err := doc.LineLength(endLine)
	if err != nil {
		return FunctionNode{}, err
	}
	endOffset := endLineOffset + endLineLength
	content, err := doc.Get(startOffset, endOffset-startOffset)
	if err != nil {
		return FunctionNode{}, err
	}

	return FunctionNode{
		Name:        name,
		NodeType:    string(kind),
		StartLine:   startLine + 1,
		EndLine:     endLine + 1,
		Content:     content,
		StartOffset: startOffset,
		EndOffset:   endOffset,
		Signature:   signature,
	}, nil
}
