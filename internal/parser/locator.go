package parser

import (
	"strings"

	"bslnav/internal/document"
)

// Region is the line range of a method located around a cursor.
type Region struct {
	Name           string `json:"name"`
	Kind           Kind   `json:"kind"`
	StartLine      int    `json:"start_line"`      // zero-based; first annotation line directly above the header, else HeaderLine
	HeaderLine     int    `json:"header_line"`     // zero-based
	TerminatorLine int    `json:"terminator_line"` // zero-based; equals HeaderLine when Complete is false
	StartOffset    int    `json:"start_offset"`
	EndOffset      int    `json:"end_offset"`
	Body           string `json:"-"`
	Complete       bool   `json:"complete"` // whether a terminator of the matching kind was found
}

// Locator finds the method enclosing a cursor offset without parsing the
// language. It holds only compiled patterns and is safe for concurrent use.
type Locator struct {
	keywords KeywordSet
	p        *patterns
}

// NewLocator compiles the header and terminator patterns for keywords.
func NewLocator(keywords KeywordSet) (*Locator, error) {
	p, err := compilePatterns(keywords)
	if err != nil {
		return nil, err
	}
	return &Locator{keywords: keywords, p: p}, nil
}

// NewDefaultLocator returns a Locator for DefaultKeywords.
func NewDefaultLocator() *Locator {
	l, err := NewLocator(DefaultKeywords())
	if err != nil {
		panic(err)
	}
	return l
}

// Keywords returns the keyword set the locator was built with.
func (l *Locator) Keywords() KeywordSet {
	return l.keywords
}

// Locate returns the method region enclosing offset, or nil when the cursor
// is not inside a method. Negative offsets are clamped to zero. A non-nil
// error reports a failed line or offset lookup on doc; the document is only
// read during the call and the returned region owns its body text.
//
// The scan walks upward from the cursor line, skipping blank and annotation
// lines, until it meets a header. Meeting a method terminator first means the
// cursor sits between two methods. From the header it walks downward to the
// first terminator of the same kind; without one the region collapses to
// the header line. Annotation lines directly above the header belong to the
// region body, and a cursor on one of them resolves to that header.
func (l *Locator) Locate(doc document.Document, offset int) (*Region, error) {
	if offset < 0 {
		offset = 0
	}
	startLine, err := doc.LineOfOffset(offset)
	if err != nil {
		return nil, err
	}

	headerLine, match, err := l.headerBelowAnnotations(doc, startLine)
	if err != nil {
		return nil, err
	}
	for line := startLine; headerLine < 0 && line >= 0; line-- {
		text, err := document.LineText(doc, line)
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || l.p.isAnnotation(trimmed) {
			continue
		}
		if m := l.p.header.FindStringSubmatch(trimmed); m != nil {
			headerLine = line
			match = m
			break
		}
		// The cursor line itself may be the terminator of the enclosing method.
		if line != startLine && l.p.isTerminator(trimmed) {
			return nil, nil
		}
	}
	if headerLine < 0 {
		return nil, nil
	}

	kind := l.p.classify(match[1])
	terminatorLine, complete, err := l.findTerminator(doc, headerLine, kind)
	if err != nil {
		return nil, err
	}

	startLine, err = l.annotationStart(doc, headerLine)
	if err != nil {
		return nil, err
	}
	startOffset, err := doc.LineOffset(startLine)
	if err != nil {
		return nil, err
	}
	endLineOffset, err := doc.LineOffset(terminatorLine)
	if err != nil {
		return nil, err
	}
	endLineLength, err := doc.LineLength(terminatorLine)
	if err != nil {
		return nil, err
	}
	endOffset := endLineOffset + endLineLength

	body, err := doc.Get(startOffset, endOffset-startOffset)
	if err != nil {
		return nil, err
	}

	return &Region{
		Name:           match[2],
		Kind:           kind,
		StartLine:      startLine,
		HeaderLine:     headerLine,
		TerminatorLine: terminatorLine,
		StartOffset:    startOffset,
		EndOffset:      endOffset,
		Body:           body,
		Complete:       complete,
	}, nil
}

func (l *Locator) findTerminator(doc document.Document, headerLine int, kind Kind) (int, bool, error) {
	end := l.p.terminator(kind)
	for line := headerLine + 1; line < doc.NumberOfLines(); line++ {
		text, err := document.LineText(doc, line)
		if err != nil {
			return 0, false, err
		}
		if end.MatchString(strings.TrimSpace(text)) {
			return line, true, nil
		}
	}
	return headerLine, false, nil
}

// annotationStart returns the first line of the contiguous annotation block
// directly above headerLine, or headerLine itself.
func (l *Locator) annotationStart(doc document.Document, headerLine int) (int, error) {
	start := headerLine
	for line := headerLine - 1; line >= 0; line-- {
		text, err := document.LineText(doc, line)
		if err != nil {
			return 0, err
		}
		if !l.p.isAnnotation(strings.TrimSpace(text)) {
			break
		}
		start = line
	}
	return start, nil
}

// headerBelowAnnotations finds the header at line or directly under the
// contiguous annotation block starting at line. It returns -1 otherwise.
func (l *Locator) headerBelowAnnotations(doc document.Document, line int) (int, []string, error) {
	for ; line < doc.NumberOfLines(); line++ {
		text, err := document.LineText(doc, line)
		if err != nil {
			return -1, nil, err
		}
		trimmed := strings.TrimSpace(text)
		if l.p.isAnnotation(trimmed) {
			continue
		}
		if m := l.p.header.FindStringSubmatch(trimmed); m != nil {
			return line, m, nil
		}
		return -1, nil, nil
	}
	return -1, nil, nil
}
