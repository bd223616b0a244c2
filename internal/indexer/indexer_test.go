package indexer

import (
	"bslnav/internal/utils"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolateHome points the hash state directory at a temp dir. Tests calling it
// must not run in parallel.
func isolateHome(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
}

func pointIDs(s *fakeStore) map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]uint64, len(s.points))
	for id, m := range s.points {
		ids[m.QualifiedName()] = id
	}
	return ids
}

func TestCollectionName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":           defaultCollectionName,
		" \t\n":      defaultCollectionName,
		"0f3a9c":     "bslnav_0f3a9c",
		"  0f3a9c  ": "bslnav_0f3a9c",
	}
	for in, want := range tests {
		if got := CollectionName(in); got != want {
			t.Errorf("CollectionName(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestPointIDsFollowMethodContent(t *testing.T) {
	isolateHome(t)

	root := t.TempDir()
	writeModule(t, filepath.Join(root, "Configuration.xml"), "<Configuration/>")
	module := filepath.Join(root, "CommonModules", "Склад", "Ext", "Module.bsl")
	other := filepath.Join(root, "CommonModules", "Касса", "Ext", "Module.bsl")
	writeModule(t, module, "Процедура Провести()\nКонецПроцедуры\n\nФункция Остаток()\n  Возврат 0;\nКонецФункции\n")
	writeModule(t, other, "Процедура Провести()\nКонецПроцедуры\n")

	store := newFakeStore()
	idx := newTestIndexer(store, &fakeEmbedder{})
	if err := idx.IndexProject(context.Background(), root); err != nil {
		t.Fatalf("IndexProject: %v", err)
	}

	for id, m := range store.points {
		if m.CodeHash != utils.HashContent(m.Content) {
			t.Errorf("%s: CodeHash does not match content", m.QualifiedName())
		}
		if want := contentHashToPointID(m.FilePath + "#" + m.FunctionName + "#" + m.CodeHash); id != want {
			t.Errorf("%s: id=%d, want %d", m.QualifiedName(), id, want)
		}
	}

	before := pointIDs(store)
	skladPost := before["CommonModules.Склад.Ext.Module.Провести"]
	kassaPost := before["CommonModules.Касса.Ext.Module.Провести"]
	if skladPost == 0 || kassaPost == 0 || skladPost == kassaPost {
		t.Fatalf("same method name in two modules must get distinct ids: %v", before)
	}

	// Only Остаток changes; Провести keeps its point.
	writeModule(t, module, "Процедура Провести()\nКонецПроцедуры\n\nФункция Остаток()\n  Возврат 1;\nКонецФункции\n")
	if err := idx.IndexProject(context.Background(), root); err != nil {
		t.Fatalf("IndexProject (modified): %v", err)
	}
	after := pointIDs(store)
	if len(after) != 3 {
		t.Fatalf("stale points left behind: %v", after)
	}
	if after["CommonModules.Склад.Ext.Module.Провести"] != skladPost {
		t.Errorf("unchanged method got a new id")
	}
	if after["CommonModules.Склад.Ext.Module.Остаток"] == before["CommonModules.Склад.Ext.Module.Остаток"] {
		t.Errorf("changed method kept its old id")
	}
	if len(store.deleted) != 1 || !strings.HasSuffix(store.deleted[0], "/Склад/Ext/Module.bsl") {
		t.Errorf("deleted=%v, want only the modified module", store.deleted)
	}
}

func TestModuleNameFromProjectRoot(t *testing.T) {
	t.Parallel()

	// A project nested in the indexed tree names modules from its own root.
	root := t.TempDir()
	writeModule(t, filepath.Join(root, "src", "Configuration.xml"), "<Configuration/>")
	nested := filepath.Join(root, "src", "Documents", "Заказ", "Ext", "ObjectModule.bsl")
	writeModule(t, nested, "")

	// Without any marker the indexed root is used.
	plain := filepath.Join(root, "scripts", "Сервис.os")
	writeModule(t, plain, "")

	normalized, err := utils.NormalizeProjectRoot(root)
	if err != nil {
		t.Fatalf("NormalizeProjectRoot: %v", err)
	}
	idx := newTestIndexer(newFakeStore(), &fakeEmbedder{})
	idx.root = normalized

	if got := idx.moduleName(filepath.Join(normalized, "src", "Documents", "Заказ", "Ext", "ObjectModule.bsl")); got != "Documents.Заказ.Ext.ObjectModule" {
		t.Errorf("nested module=%q", got)
	}
	if got := idx.moduleName(filepath.Join(normalized, "scripts", "Сервис.os")); got != "scripts.Сервис" {
		t.Errorf("plain module=%q", got)
	}
}

func TestLegacyRelativeHashKeys(t *testing.T) {
	isolateHome(t)

	root := t.TempDir()
	content := "Процедура Обновить()\nКонецПроцедуры\n"
	writeModule(t, filepath.Join(root, "CommonModules", "Обмен", "Ext", "Module.bsl"), content)

	projectID, err := utils.ComputeProjectID(root)
	if err != nil {
		t.Fatalf("ComputeProjectID: %v", err)
	}
	// State written with project-relative keys must still match the tree.
	if err := saveFileHashes(projectID, map[string]string{
		"./CommonModules/Обмен/Ext/Module.bsl": utils.HashContent(content),
		"   ":                                  "ignored",
	}); err != nil {
		t.Fatalf("saveFileHashes: %v", err)
	}

	emb := &fakeEmbedder{}
	if err := newTestIndexer(newFakeStore(), emb).IndexProject(context.Background(), root); err != nil {
		t.Fatalf("IndexProject: %v", err)
	}
	if emb.calls != 0 {
		t.Fatalf("unchanged module re-embedded %d times", emb.calls)
	}
}

func TestClearProjectStateForcesFullReindex(t *testing.T) {
	isolateHome(t)

	root := t.TempDir()
	writeModule(t, filepath.Join(root, "Module.bsl"), "Процедура А()\nКонецПроцедуры\n")

	store := newFakeStore()
	emb := &fakeEmbedder{}
	idx := newTestIndexer(store, emb)
	if err := idx.IndexProject(context.Background(), root); err != nil {
		t.Fatalf("IndexProject: %v", err)
	}

	projectID, err := utils.ComputeProjectID(root)
	if err != nil {
		t.Fatalf("ComputeProjectID: %v", err)
	}
	statePath, err := fileHashStatePath(projectID)
	if err != nil {
		t.Fatalf("fileHashStatePath: %v", err)
	}
	if filepath.Base(filepath.Dir(statePath)) != ".bslnav" {
		t.Fatalf("state file outside ~/.bslnav: %s", statePath)
	}
	data, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var saved map[string]string
	if err := json.Unmarshal(data, &saved); err != nil || len(saved) != 1 {
		t.Fatalf("saved state=%s (%v)", data, err)
	}

	if err := ClearProjectState(projectID); err != nil {
		t.Fatalf("ClearProjectState: %v", err)
	}
	if err := ClearProjectState(projectID); err != nil {
		t.Fatalf("ClearProjectState (missing): %v", err)
	}

	calls := emb.calls
	if err := idx.IndexProject(context.Background(), root); err != nil {
		t.Fatalf("IndexProject (after clear): %v", err)
	}
	if emb.calls != calls+1 {
		t.Fatalf("module was not re-embedded after clearing state")
	}
}

func TestIndexProjectBatchesEmbeddings(t *testing.T) {
	isolateHome(t)

	var sb strings.Builder
	for i := 0; i <= BatchSize; i++ {
		fmt.Fprintf(&sb, "Процедура Шаг%d()\nКонецПроцедуры\n\n", i)
	}
	root := t.TempDir()
	writeModule(t, filepath.Join(root, "Module.bsl"), sb.String())
	writeModule(t, filepath.Join(root, "README.txt"), "Процедура НеМодуль()\nКонецПроцедуры\n")
	writeModule(t, filepath.Join(root, "Broken.bsl"), "Процедура Незакрытая()\n  А = 1;\n")

	store := newFakeStore()
	emb := &fakeEmbedder{}
	if err := newTestIndexer(store, emb).IndexProject(context.Background(), root); err != nil {
		t.Fatalf("IndexProject: %v", err)
	}
	if emb.calls != 2 {
		t.Errorf("EmbedBatch calls=%d, want 2", emb.calls)
	}
	if got := len(store.methods()); got != BatchSize+1 {
		t.Errorf("indexed %d methods, want %d", got, BatchSize+1)
	}
}
