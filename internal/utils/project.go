package utils

import (
	"bslnav/internal/config"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizeProjectRoot returns the absolute, symlink-resolved form of root so
// that the same project always maps to the same fingerprint.
func NormalizeProjectRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return filepath.Clean(abs), nil
}

// ComputeProjectID fingerprints a project root. The ID is stable across runs
// and safe to use in collection and file names.
func ComputeProjectID(root string) (string, error) {
	normalized, err := NormalizeProjectRoot(root)
	if err != nil {
		return "", err
	}
	key := filepath.ToSlash(normalized)
	if runtime.GOOS == "windows" {
		key = strings.ToLower(key)
	}
	return HashContent(key)[:16], nil
}

// UserStateDir returns ~/.bslnav, creating it if needed.
func UserStateDir() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
