package selection

import (
	"fmt"

	"github.com/rs/zerolog"

	"bslnav/internal/parser"
)

// maxNesting bounds how many selections wrapped inside structured
// selections are unwrapped.
const maxNesting = 8

// Resolver resolves a host selection to a Descriptor. Structured selections
// take precedence; a text cursor falls back to locating the enclosing method
// in the active editor's buffer.
type Resolver struct {
	locator *parser.Locator
	adapter *Adapter
	logger  zerolog.Logger
}

// NewResolver creates a Resolver. A nil locator uses the default keywords.
func NewResolver(locator *parser.Locator, logger zerolog.Logger) *Resolver {
	if locator == nil {
		locator = parser.NewDefaultLocator()
	}
	return &Resolver{
		locator: locator,
		adapter: &Adapter{},
		logger:  logger,
	}
}

// Resolve returns the descriptor for the selected function.
//
// A usable descriptor comes back with a nil error. For a text cursor whose
// module cannot be inferred the composed descriptor is returned together
// with ErrIncompleteDescriptor. Every other failure returns a nil descriptor
// and an error wrapping ErrUnresolvableSelection or ErrDocumentAccess.
// Panics raised by host objects are converted into ErrUnresolvableSelection.
func (r *Resolver) Resolve(sel any, part any) (desc *Descriptor, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn().Interface("panic", rec).Msg("selection resolution panicked")
			desc, err = nil, fmt.Errorf("%w: %v", ErrUnresolvableSelection, rec)
		}
	}()

	s, ok := asSelection(sel)
	if !ok || s.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing is selected", ErrUnresolvableSelection)
	}

	if structured, ok := s.(Structured); ok {
		if d, ok := r.fromStructured(structured, 0); ok {
			r.logger.Debug().
				Str("module", d.ModuleName).
				Str("function", d.FunctionName).
				Msg("resolved from structured selection")
			return d, nil
		}
		return nil, fmt.Errorf("%w: selected element is not a function with a known module", ErrUnresolvableSelection)
	}

	if cursor, ok := s.(TextCursor); ok {
		return r.fromText(cursor, part)
	}

	return nil, fmt.Errorf("%w: unsupported selection %T", ErrUnresolvableSelection, s)
}

func (r *Resolver) fromStructured(s Structured, depth int) (*Descriptor, bool) {
	first := s.FirstElement()
	if first == nil {
		return nil, false
	}

	if d, ok := r.adapter.Adapt(first); ok {
		if d.Usable() {
			return d, true
		}
		r.logger.Debug().
			Str("function", d.FunctionName).
			Msg("structured element has no owning module")
	}

	if depth >= maxNesting {
		return nil, false
	}
	if nested, ok := asSelection(first); ok {
		if inner, ok := nested.(Structured); ok {
			return r.fromStructured(inner, depth+1)
		}
	}
	return nil, false
}

func (r *Resolver) fromText(cursor TextCursor, part any) (*Descriptor, error) {
	editor, ok := textEditorOf(part)
	if !ok || editor == nil {
		return nil, fmt.Errorf("%w: no active text editor", ErrUnresolvableSelection)
	}

	doc, err := editor.Document()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolvableSelection, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: editor has no document", ErrUnresolvableSelection)
	}

	region, err := r.locator.Locate(doc, cursor.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentAccess, err)
	}
	if region == nil {
		return nil, fmt.Errorf("%w: cursor is not inside a procedure or function", ErrUnresolvableSelection)
	}

	var moduleName string
	if relPath, err := editor.ProjectRelativePath(); err != nil {
		r.logger.Debug().Err(err).Msg("editor file has no project-relative path")
	} else {
		moduleName = ModuleNameFromPath(relPath)
	}

	d := newDescriptor(moduleName, region.Name, region.Body, OriginText)
	d.Region = region

	r.logger.Debug().
		Str("module", d.ModuleName).
		Str("function", d.FunctionName).
		Int("header_line", region.HeaderLine).
		Bool("complete", region.Complete).
		Msg("resolved from text cursor")

	if !d.Usable() {
		return d, fmt.Errorf("%w: module name could not be inferred", ErrIncompleteDescriptor)
	}
	return d, nil
}
