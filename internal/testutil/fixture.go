// Package testutil provides document fixtures and golden-file helpers for tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"cedx/internal/document"
	"cedx/internal/fixture"
)

// FixturePath returns the absolute path of testdata/fixtures/<name>.
func FixturePath(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(getFixturesRoot(t), name)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Fixture not found: %s", path)
	}
	return path
}

// LoadSnapshot loads a fixture document, failing the test on error.
func LoadSnapshot(t *testing.T, name string) *document.Snapshot {
	t.Helper()

	snap, err := fixture.Load(FixturePath(t, name))
	if err != nil {
		t.Fatalf("Failed to load fixture %s: %v", name, err)
	}
	return snap
}

// AvailableFixtures returns the names of all document fixtures.
func AvailableFixtures(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(getFixturesRoot(t))
	if err != nil {
		t.Fatalf("Failed to read fixtures directory: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || isHidden(entry.Name()) {
			continue
		}
		if _, err := fixture.FormatFromPath(entry.Name()); err == nil {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

// FixtureName strips the extension from a fixture file name.
func FixtureName(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file))
}

// getFixturesRoot returns the absolute path to testdata/fixtures/.
func getFixturesRoot(t *testing.T) string {
	t.Helper()
	return filepath.Join(projectRoot(t), "testdata", "fixtures")
}

func projectRoot(t *testing.T) string {
	t.Helper()

	// Get the directory of this source file
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get caller information")
	}

	// Navigate from internal/testutil to project root
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
