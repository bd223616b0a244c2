package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bslnav/internal/document"
	"bslnav/internal/selection"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Configuration.xml"), "<Configuration/>")
	file := filepath.Join(root, "CommonModules", "Foo", "Ext", "Module.bsl")
	writeFile(t, file, "")

	got, ok := FindProjectRoot(file)
	require.True(t, ok)
	want, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFindProjectRoot_EDTProject(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "DT-INF"), 0o755))
	file := filepath.Join(root, "src", "Catalogs", "Items", "ObjectModule.bsl")
	writeFile(t, file, "")

	got, ok := FindProjectRoot(filepath.Dir(file))
	require.True(t, ok)
	want, _ := filepath.Abs(root)
	assert.Equal(t, want, got)
}

func TestRelativePath(t *testing.T) {
	root := t.TempDir()

	rel, err := RelativePath(root, filepath.Join(root, "CommonModules", "Foo", "Module.bsl"))
	require.NoError(t, err)
	assert.Equal(t, "CommonModules/Foo/Module.bsl", rel)

	_, err = RelativePath(root, filepath.Join(filepath.Dir(root), "elsewhere.bsl"))
	assert.ErrorIs(t, err, ErrOutsideProject)

	_, err = RelativePath("", "Module.bsl")
	assert.ErrorIs(t, err, ErrOutsideProject)
}

func TestOpenFile_ResolvesEnclosingMethod(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Configuration.xml"), "<Configuration/>")
	file := filepath.Join(root, "CommonModules", "Общий", "Ext", "Module.bsl")
	writeFile(t, file, "\uFEFF&НаСервере\nФункция Получить() Экспорт\n  Возврат 1;\nКонецФункции\n")

	editor, err := OpenFile(file, "")
	require.NoError(t, err)

	offset, err := document.OffsetOf(editor.Text(), 3, 5)
	require.NoError(t, err)

	r := selection.NewResolver(nil, zerolog.Nop())
	d, err := r.Resolve(selection.TextCursor{Offset: offset}, editor)
	require.NoError(t, err)
	assert.Equal(t, "Получить", d.FunctionName)
	assert.Equal(t, "CommonModules.Общий.Ext.Module", d.ModuleName)
	assert.Equal(t, "CommonModules", d.Configuration)
}

func TestOpenFile_WithoutProject(t *testing.T) {
	file := filepath.Join(t.TempDir(), "Module.bsl")
	writeFile(t, file, "Процедура А()\nКонецПроцедуры\n")

	editor, err := OpenFile(file, "")
	require.NoError(t, err)
	if editor.Root() != "" {
		t.Skip("temp dir is nested inside a project tree")
	}

	_, err = editor.ProjectRelativePath()
	assert.ErrorIs(t, err, ErrOutsideProject)
}

func TestOpenFile_ExplicitRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "DataProcessors", "Загрузка", "Ext", "ObjectModule.bsl")
	writeFile(t, file, "Процедура А()\nКонецПроцедуры\n")

	editor, err := OpenFile(file, root)
	require.NoError(t, err)
	rel, err := editor.ProjectRelativePath()
	require.NoError(t, err)
	assert.Equal(t, "DataProcessors/Загрузка/Ext/ObjectModule.bsl", rel)
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "nope.bsl"), "")
	assert.Error(t, err)
}

func TestBufferEditor(t *testing.T) {
	e := NewBufferEditor("Процедура А()\nКонецПроцедуры", "")
	_, err := e.ProjectRelativePath()
	assert.ErrorIs(t, err, ErrOutsideProject)

	e = NewBufferEditor("Процедура А()\nКонецПроцедуры", "CommonModules/X/Module.bsl")
	rel, err := e.ProjectRelativePath()
	require.NoError(t, err)
	assert.Equal(t, "CommonModules/X/Module.bsl", rel)

	doc, err := e.Document()
	require.NoError(t, err)
	assert.Equal(t, 2, doc.NumberOfLines())
}
