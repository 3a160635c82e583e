// Package testutil provides testing utilities and fixtures
package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/Kush-Singh-26/hashdrop/engine/config"
	"github.com/Kush-Singh-26/hashdrop/engine/ledger"
)

// OpenTestLedger opens a ledger in a temporary directory. It is closed
// when the test ends.
func OpenTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), 0)
	if err != nil {
		t.Fatalf("Failed to open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// CreateTestConfig returns the default configuration rooted in a
// temporary directory.
func CreateTestConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.BaseDir = filepath.Join(root, "files")
	cfg.StateDir = filepath.Join(root, ".hashdrop")
	cfg.Inbox.Dir = filepath.Join(root, "inbox")
	return cfg
}

// CreateTestFilesystemWithContent creates an in-memory filesystem with
// initial content
func CreateTestFilesystemWithContent(files map[string]string) afero.Fs {
	fsys := afero.NewMemMapFs()
	for path, content := range files {
		if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
			panic(err)
		}
		if err := afero.WriteFile(fsys, path, []byte(content), 0644); err != nil {
			panic(err)
		}
	}
	return fsys
}

// AssertFileExists checks if a file exists in the filesystem
func AssertFileExists(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("Error checking file existence: %v", err)
	}
	if !exists {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("Error checking file existence: %v", err)
	}
	if exists {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertFileContent checks if a file has the expected content
func AssertFileContent(t *testing.T, fs afero.Fs, path string, expected []byte) {
	t.Helper()
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	if string(content) != string(expected) {
		t.Errorf("File %s content mismatch:\nexpected: %s\ngot: %s", path, expected, content)
	}
}

// CountInFile returns how often needle occurs in the file at path.
func CountInFile(t *testing.T, fs afero.Fs, path, needle string) int {
	t.Helper()
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return strings.Count(string(content), needle)
}
