package utils

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestGetAllSourceFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "CommonModules", "Foo", "Ext", "Module.bsl"), "")
	writeFile(t, filepath.Join(root, "Catalogs", "Items", "Ext", "ObjectModule.BSL"), "")
	writeFile(t, filepath.Join(root, "scripts", "build.os"), "")
	writeFile(t, filepath.Join(root, "Catalogs", "Items", "Items.xml"), "")
	writeFile(t, filepath.Join(root, ".git", "hooks", "pre-commit.bsl"), "")
	writeFile(t, filepath.Join(root, "bin", "Module.bsl"), "")
	writeFile(t, filepath.Join(root, "generated", "Module.bsl"), "")
	writeFile(t, filepath.Join(root, ".gitignore"), "# comment\ngenerated/\n*.tmp.bsl\n")
	writeFile(t, filepath.Join(root, "scratch.tmp.bsl"), "")

	files, err := GetAllSourceFiles(root)
	if err != nil {
		t.Fatalf("GetAllSourceFiles: %v", err)
	}

	var rel []string
	for _, f := range files {
		r, _ := filepath.Rel(root, f)
		rel = append(rel, filepath.ToSlash(r))
	}
	sort.Strings(rel)

	want := []string{
		"Catalogs/Items/Ext/ObjectModule.BSL",
		"CommonModules/Foo/Ext/Module.bsl",
		"scripts/build.os",
	}
	if len(rel) != len(want) {
		t.Fatalf("files=%v, want %v", rel, want)
	}
	for i := range want {
		if rel[i] != want[i] {
			t.Fatalf("files[%d]=%q, want %q", i, rel[i], want[i])
		}
	}
}

func TestNormalizeQuery(t *testing.T) {
	t.Parallel()

	if got := NormalizeQuery("  запись \t  документа\n"); got != "запись документа" {
		t.Fatalf("NormalizeQuery=%q", got)
	}
	if got := NormalizeQuery("   "); got != "" {
		t.Fatalf("NormalizeQuery(whitespace)=%q, want empty", got)
	}
}

func TestComputeProjectID(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	id1, err := ComputeProjectID(root)
	if err != nil {
		t.Fatalf("ComputeProjectID: %v", err)
	}
	id2, err := ComputeProjectID(filepath.Join(root, "."))
	if err != nil {
		t.Fatalf("ComputeProjectID: %v", err)
	}
	if id1 != id2 || len(id1) != 16 {
		t.Fatalf("ids %q and %q should match and have 16 chars", id1, id2)
	}

	other, err := ComputeProjectID(t.TempDir())
	if err != nil {
		t.Fatalf("ComputeProjectID: %v", err)
	}
	if other == id1 {
		t.Fatalf("different roots produced the same id %q", id1)
	}

	if _, err := ComputeProjectID(filepath.Join(root, "missing")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestNormalizeProjectRootRejectsFiles(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "Module.bsl")
	writeFile(t, file, "")
	if _, err := NormalizeProjectRoot(file); err == nil {
		t.Fatalf("expected error for a file path")
	}
}

func TestUserStateDir(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome)

	dir, err := UserStateDir()
	if err != nil {
		t.Fatalf("UserStateDir: %v", err)
	}
	if filepath.Base(dir) != ".bslnav" {
		t.Fatalf("dir=%q, want a .bslnav directory", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("state dir not created: %v", err)
	}
}
