package dupfind

import (
	"os"
	"path/filepath"
	"testing"
)

func mustWriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestGetDuplicatesRejectsEmptyDirectoryList(t *testing.T) {
	if _, err := GetDuplicates(nil, Config{}); err == nil {
		t.Fatal("expected an error for an empty directory list")
	}
}

func TestGetDuplicatesEndToEnd(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, "d1", "a"), []byte("shared-content"))
	mustWriteFile(t, filepath.Join(base, "d2", "a"), []byte("shared-content"))
	mustWriteFile(t, filepath.Join(base, "d1", "unique"), []byte("only-here"))

	groups, err := GetDuplicates([]string{base}, Config{})
	if err != nil {
		t.Fatalf("GetDuplicates: %v", err)
	}

	var found bool
	for _, g := range groups {
		set := map[string]bool{}
		for _, p := range g.Paths {
			set[p] = true
		}
		if set[filepath.Join(base, "d1", "a")] && set[filepath.Join(base, "d2", "a")] {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a duplicate group for d1/a and d2/a, got %+v", groups)
	}
}

func TestGetDuplicatesRespectsMinimumSize(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, "d1", "a"), []byte("tiny"))
	mustWriteFile(t, filepath.Join(base, "d2", "a"), []byte("tiny"))

	groups, err := GetDuplicates([]string{base}, Config{MinimumSize: 1_000_000})
	if err != nil {
		t.Fatalf("GetDuplicates: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected no groups above a high minimum size, got %+v", groups)
	}
}

func TestGetDuplicatesWithDigestCache(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, "d1", "a"), []byte("cached-content"))
	mustWriteFile(t, filepath.Join(base, "d2", "a"), []byte("cached-content"))

	cacheFile := filepath.Join(t.TempDir(), "cache.bolt")
	cfg := Config{CacheFile: cacheFile}

	first, err := GetDuplicates([]string{base}, cfg)
	if err != nil {
		t.Fatalf("first GetDuplicates: %v", err)
	}
	second, err := GetDuplicates([]string{base}, cfg)
	if err != nil {
		t.Fatalf("second GetDuplicates (warm cache): %v", err)
	}
	if len(first) != len(second) {
		t.Errorf("warm-cache run produced a different number of groups: %d vs %d", len(first), len(second))
	}
}

func TestGetDuplicatesReturnsErrorOnUnknownAlgorithm(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, "a"), []byte("x"))

	_, err := GetDuplicates([]string{base}, Config{HashAlgorithm: 99})
	if err == nil {
		t.Fatal("expected an error for an unknown hash algorithm")
	}
}
