package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bslnav/internal/document"
)

func TestGet(t *testing.T) {
	t.Setenv("BSLNAV_TEST_A", "")
	t.Setenv("BSLNAV_TEST_B", "second")

	if got := Get("", "BSLNAV_TEST_A", "BSLNAV_TEST_B"); got != "second" {
		t.Fatalf("Get() = %q, want %q", got, "second")
	}
	if got := GetDefault("fallback", "BSLNAV_TEST_A"); got != "fallback" {
		t.Fatalf("GetDefault() = %q, want fallback", got)
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 5 * time.Second},
		{"250ms", 250 * time.Millisecond},
		{"garbage", 5 * time.Second},
		{"-1s", 5 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("BSLNAV_TEST_TIMEOUT", tt.value)
		if got := GetDuration(5*time.Second, "BSLNAV_TEST_TIMEOUT"); got != tt.want {
			t.Errorf("GetDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestBackendDefaults(t *testing.T) {
	t.Setenv("BSLNAV_BACKEND_URL", "")
	t.Setenv("BSLNAV_BACKEND_TIMEOUT", "")

	if got := BackendURL(); got != DefaultBackendURL {
		t.Fatalf("BackendURL() = %q", got)
	}
	if got := BackendTimeout(); got != DefaultBackendTimeout {
		t.Fatalf("BackendTimeout() = %v", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"BSLNAV_TEST_FILE_KEY":"from-file","BSLNAV_TEST_EMPTY":""}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BSLNAV_TEST_FILE_KEY", "from-env")
	t.Setenv("BSLNAV_TEST_EMPTY", "kept")

	if err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := os.Getenv("BSLNAV_TEST_FILE_KEY"); got != "from-file" {
		t.Errorf("file value should override env, got %q", got)
	}
	if got := os.Getenv("BSLNAV_TEST_EMPTY"); got != "kept" {
		t.Errorf("empty file value should be ignored, got %q", got)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}

func TestLoadKeywords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	yamlText := "procedure: [Процедурка]\nend_procedure: [КонецПроцедурки]\n"
	if err := os.WriteFile(path, []byte(yamlText), 0o644); err != nil {
		t.Fatal(err)
	}

	ks, err := LoadKeywords(path)
	if err != nil {
		t.Fatalf("LoadKeywords() error = %v", err)
	}
	if len(ks.Procedure) != 3 || ks.Procedure[2] != "Процедурка" {
		t.Fatalf("unexpected procedure keywords: %v", ks.Procedure)
	}
	if len(ks.Function) != 2 {
		t.Fatalf("defaults should be kept, got %v", ks.Function)
	}

	t.Setenv("BSLNAV_KEYWORDS", path)
	locator, err := Locator()
	if err != nil {
		t.Fatalf("Locator() error = %v", err)
	}
	doc := document.New("Процедурка Тест()\n  А = 1;\nКонецПроцедурки\n")
	region, err := locator.Locate(doc, 20)
	if err != nil || region == nil {
		t.Fatalf("Locate() = %v, %v", region, err)
	}
	if region.Name != "Тест" || !region.Complete {
		t.Fatalf("unexpected region: %+v", region)
	}
}

func TestLoadKeywords_Modifiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	if err := os.WriteFile(path, []byte("modifiers: [Фоновая]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BSLNAV_KEYWORDS", path)

	locator, err := Locator()
	if err != nil {
		t.Fatalf("Locator() error = %v", err)
	}
	for _, header := range []string{"Фоновая Процедура Обновить()", "Асинх Процедура Обновить()"} {
		doc := document.New(header + "\n  А = 1;\nКонецПроцедуры\n")
		offset, err := document.OffsetOf(doc, 2, 3)
		if err != nil {
			t.Fatal(err)
		}
		region, err := locator.Locate(doc, offset)
		if err != nil || region == nil {
			t.Fatalf("%s: Locate() = %v, %v", header, region, err)
		}
		if region.Name != "Обновить" || region.TerminatorLine != 2 {
			t.Fatalf("%s: unexpected region: %+v", header, region)
		}
	}
}

func TestLoadKeywords_Errors(t *testing.T) {
	if _, err := LoadKeywords(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("procedure: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadKeywords(path); err == nil {
		t.Fatal("expected parse error")
	}

	ks, err := LoadKeywords("")
	if err != nil || len(ks.Procedure) != 2 {
		t.Fatalf("empty path should return defaults, got %v, %v", ks, err)
	}
}
