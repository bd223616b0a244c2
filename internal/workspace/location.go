package workspace

import (
	"errors"
	"fmt"
	"path/filepath"

	"bslnav/internal/document"
)

// ErrNoPosition is returned when a Location names neither an offset nor a line.
var ErrNoPosition = errors.New("offset or line is required")

// Editor is what Location.Open hands to the selection resolver.
type Editor interface {
	Document() (document.Document, error)
	ProjectRelativePath() (string, error)
}

// Location addresses a cursor in a module, either a file on disk or a buffer
// sent by a client. Offset wins over Line/Column when both are set.
type Location struct {
	File       string // module file; relative paths are joined to BaseDir
	Content    string // module text, used instead of File when non-empty
	ModulePath string // project-relative path of Content
	Root       string // project root; discovered from File when empty
	BaseDir    string

	Offset *int // character offset
	Line   int  // 1-based
	Column int  // 1-based, defaults to 1
}

// Open loads the addressed module and converts the position to a character
// offset.
func (l Location) Open() (Editor, int, error) {
	editor, doc, err := l.editor()
	if err != nil {
		return nil, 0, err
	}
	if l.Offset != nil {
		return editor, *l.Offset, nil
	}
	if l.Line <= 0 {
		return nil, 0, ErrNoPosition
	}
	column := l.Column
	if column <= 0 {
		column = 1
	}
	offset, err := document.OffsetOf(doc, l.Line, column)
	if err != nil {
		return nil, 0, err
	}
	return editor, offset, nil
}

func (l Location) editor() (Editor, document.Document, error) {
	if l.Content != "" {
		e := NewBufferEditor(l.Content, l.ModulePath)
		return e, e.Text(), nil
	}
	if l.File == "" {
		return nil, nil, fmt.Errorf("file or content is required")
	}
	path := l.File
	if !filepath.IsAbs(path) && l.BaseDir != "" {
		path = filepath.Join(l.BaseDir, path)
	}
	e, err := OpenFile(path, l.Root)
	if err != nil {
		return nil, nil, err
	}
	return e, e.Text(), nil
}
