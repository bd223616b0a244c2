// Package document provides character-offset access to source buffers.
//
// A Document maps between zero-based character offsets and zero-based line
// numbers. Line lengths include the line delimiter, so the text of line n is
// Get(LineOffset(n), LineLength(n)). A buffer that ends with a delimiter has a
// trailing empty line, and an empty buffer has exactly one line.
package document

import (
	"errors"
	"fmt"
	"sort"
)

// ErrBadLocation is returned when an offset or line lies outside the buffer.
var ErrBadLocation = errors.New("bad location")

// Document is read-only line/offset access to a text buffer.
type Document interface {
	// Len returns the number of characters in the buffer.
	Len() int
	// NumberOfLines returns the number of lines, including a trailing empty line.
	NumberOfLines() int
	// LineOfOffset returns the line containing offset. Len() is a valid offset.
	LineOfOffset(offset int) (int, error)
	// LineOffset returns the offset of the first character of line.
	LineOffset(line int) (int, error)
	// LineLength returns the length of line including its delimiter.
	LineLength(line int) (int, error)
	// Get returns length characters starting at offset.
	Get(offset, length int) (string, error)
}

type lineSpan struct {
	start  int
	length int
}

// Text is an in-memory Document over a rune slice.
type Text struct {
	runes []rune
	lines []lineSpan
}

// New builds a Document over text.
func New(text string) *Text {
	runes := []rune(text)
	return &Text{
		runes: runes,
		lines: splitLines(runes),
	}
}

func splitLines(runes []rune) []lineSpan {
	var lines []lineSpan
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '\n':
			lines = append(lines, lineSpan{start: start, length: i + 1 - start})
			start = i + 1
		case '\r':
			end := i + 1
			if end < len(runes) && runes[end] == '\n' {
				end++
			}
			lines = append(lines, lineSpan{start: start, length: end - start})
			start = end
			i = end - 1
		}
	}
	return append(lines, lineSpan{start: start, length: len(runes) - start})
}

func (t *Text) Len() int {
	return len(t.runes)
}

func (t *Text) NumberOfLines() int {
	return len(t.lines)
}

func (t *Text) LineOfOffset(offset int) (int, error) {
	if offset < 0 || offset > len(t.runes) {
		return 0, fmt.Errorf("offset %d: %w", offset, ErrBadLocation)
	}
	idx := sort.Search(len(t.lines), func(i int) bool {
		return t.lines[i].start > offset
	})
	return idx - 1, nil
}

func (t *Text) LineOffset(line int) (int, error) {
	if line < 0 || line >= len(t.lines) {
		return 0, fmt.Errorf("line %d: %w", line, ErrBadLocation)
	}
	return t.lines[line].start, nil
}

func (t *Text) LineLength(line int) (int, error) {
	if line < 0 || line >= len(t.lines) {
		return 0, fmt.Errorf("line %d: %w", line, ErrBadLocation)
	}
	return t.lines[line].length, nil
}

func (t *Text) Get(offset, length int) (string, error) {
	if offset < 0 || length < 0 || offset+length > len(t.runes) {
		return "", fmt.Errorf("range [%d,%d): %w", offset, offset+length, ErrBadLocation)
	}
	return string(t.runes[offset : offset+length]), nil
}

// String returns the whole buffer.
func (t *Text) String() string {
	return string(t.runes)
}

// LineText returns the text of line including its delimiter.
func LineText(doc Document, line int) (string, error) {
	offset, err := doc.LineOffset(line)
	if err != nil {
		return "", err
	}
	length, err := doc.LineLength(line)
	if err != nil {
		return "", err
	}
	return doc.Get(offset, length)
}

// OffsetOf converts a 1-based line and column into a character offset.
// Column may point one past the last character of the line content.
func OffsetOf(doc Document, line, column int) (int, error) {
	if line < 1 || column < 1 {
		return 0, fmt.Errorf("position %d:%d: %w", line, column, ErrBadLocation)
	}
	start, err := doc.LineOffset(line - 1)
	if err != nil {
		return 0, err
	}
	length, err := doc.LineLength(line - 1)
	if err != nil {
		return 0, err
	}
	if column-1 > length {
		return 0, fmt.Errorf("position %d:%d: %w", line, column, ErrBadLocation)
	}
	return start + column - 1, nil
}
