package selection

import "bslnav/internal/document"

// Selection is what a host reports as currently selected.
type Selection interface {
	IsEmpty() bool
}

// Structured is a selection of model elements, such as a node in an
// outline or navigator view.
type Structured struct {
	Elements []any
}

// IsEmpty reports whether no element is selected.
func (s Structured) IsEmpty() bool { return len(s.Elements) == 0 }

// FirstElement returns the first selected element, or nil.
func (s Structured) FirstElement() any {
	if len(s.Elements) == 0 {
		return nil
	}
	return s.Elements[0]
}

// TextCursor is a caret position (and optional selected length) in an
// editor buffer. Offsets count characters.
type TextCursor struct {
	Offset int
	Length int
}

// IsEmpty is always false: a caret is a position even without a range.
func (TextCursor) IsEmpty() bool { return false }

// Adaptable is implemented by host objects that can present themselves as
// a Selection.
type Adaptable interface {
	AdaptSelection() (Selection, bool)
}

// TextEditor is the active editor: its buffer and the project-relative path
// of the file it edits.
type TextEditor interface {
	Document() (document.Document, error)
	ProjectRelativePath() (string, error)
}

// EditorAdapter is implemented by host parts that wrap a text editor.
type EditorAdapter interface {
	TextEditor() (TextEditor, bool)
}

// asSelection normalizes the host object into a Selection.
func asSelection(obj any) (Selection, bool) {
	switch s := obj.(type) {
	case nil:
		return nil, false
	case *Structured:
		if s == nil {
			return nil, false
		}
		return *s, true
	case *TextCursor:
		if s == nil {
			return nil, false
		}
		return *s, true
	case Selection:
		return s, true
	case Adaptable:
		return s.AdaptSelection()
	}
	return nil, false
}

// textEditorOf extracts a TextEditor from the active part.
func textEditorOf(part any) (TextEditor, bool) {
	switch p := part.(type) {
	case nil:
		return nil, false
	case TextEditor:
		return p, true
	case EditorAdapter:
		return p.TextEditor()
	}
	return nil, false
}
