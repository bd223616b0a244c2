// Package workspace provides file-backed editors for resolving selections
// outside an IDE: the CLI and the MCP server open a module file, discover
// the project it belongs to and hand the editor to the selection resolver.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bslnav/internal/document"
)

// ErrOutsideProject is returned when a file has no project-relative path.
var ErrOutsideProject = errors.New("file is not inside a project")

// ProjectMarkers identify the root of a configuration source tree: an EDT
// project, its DT-INF folder, or a Designer XML dump.
var ProjectMarkers = []string{".project", "DT-INF", "Configuration.xml"}

// FindProjectRoot walks up from path looking for a directory that contains
// one of ProjectMarkers.
func FindProjectRoot(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	dir := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	for {
		for _, marker := range ProjectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// RelativePath returns path relative to root using forward slashes. It fails
// when path lies outside root.
func RelativePath(root, path string) (string, error) {
	if root == "" {
		return "", ErrOutsideProject
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideProject)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideProject)
	}
	return filepath.ToSlash(rel), nil
}

// FileEditor is a text editor over a module file on disk.
type FileEditor struct {
	path string
	root string
	doc  *document.Text
}

// OpenFile loads path. An empty projectRoot is discovered from the file's
// ancestors; when none is found the editor has no project-relative path.
func OpenFile(path, projectRoot string) (*FileEditor, error) {
	doc, err := document.Load(path)
	if err != nil {
		return nil, err
	}
	if projectRoot == "" {
		projectRoot, _ = FindProjectRoot(path)
	}
	return &FileEditor{path: path, root: projectRoot, doc: doc}, nil
}

// Document returns the loaded buffer.
func (e *FileEditor) Document() (document.Document, error) {
	return e.doc, nil
}

// ProjectRelativePath returns the file path relative to the project root.
func (e *FileEditor) ProjectRelativePath() (string, error) {
	return RelativePath(e.root, e.path)
}

// Path returns the file path the editor was opened with.
func (e *FileEditor) Path() string { return e.path }

// Root returns the project root, or "" when unknown.
func (e *FileEditor) Root() string { return e.root }

// Text returns the loaded buffer with its concrete type.
func (e *FileEditor) Text() *document.Text { return e.doc }

// BufferEditor is an in-memory editor, used when a client sends the module
// text directly instead of a path on disk.
type BufferEditor struct {
	doc     *document.Text
	relPath string
}

// NewBufferEditor wraps text. relPath is the project-relative path used for
// module-name inference; empty means unknown.
func NewBufferEditor(text, relPath string) *BufferEditor {
	return &BufferEditor{doc: document.New(text), relPath: relPath}
}

// Document returns the buffer.
func (e *BufferEditor) Document() (document.Document, error) {
	return e.doc, nil
}

// ProjectRelativePath returns the path given at construction.
func (e *BufferEditor) ProjectRelativePath() (string, error) {
	if e.relPath == "" {
		return "", ErrOutsideProject
	}
	return e.relPath, nil
}

// Text returns the buffer with its concrete type.
func (e *BufferEditor) Text() *document.Text { return e.doc }
