package digestcache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/arjunr/dupfind/internal/types"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := Open("")
	if err != nil {
		t.Fatalf("Open(\"\"): %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.StorePartial(types.Blake2b512, "/x", 10, time.Now(), "deadbeef"); err != nil {
		t.Fatalf("StorePartial: %v", err)
	}
	if _, ok := c.LookupPartial(types.Blake2b512, "/x", 10, time.Now()); ok {
		t.Errorf("disabled cache should never hit")
	}
}

func TestStoreThenLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	mtime := time.Now()
	if err := c.StoreFull(types.Blake2b512, "/a/b", 100, mtime, "abc123"); err != nil {
		t.Fatalf("StoreFull: %v", err)
	}

	digest, ok := c.LookupFull(types.Blake2b512, "/a/b", 100, mtime)
	if !ok || digest != "abc123" {
		t.Errorf("LookupFull = (%q, %v), want (\"abc123\", true)", digest, ok)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestEntryInvalidatedBySizeOrMtimeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mtime := time.Now()
	if err := c.StorePartial(types.Blake2b512, "/f", 100, mtime, "digest-a"); err != nil {
		t.Fatalf("StorePartial: %v", err)
	}

	if _, ok := c.LookupPartial(types.Blake2b512, "/f", 101, mtime); ok {
		t.Errorf("a size change should invalidate the cache entry")
	}
	if _, ok := c.LookupPartial(types.Blake2b512, "/f", 100, mtime.Add(time.Second)); ok {
		t.Errorf("an mtime change should invalidate the cache entry")
	}
	if _, ok := c.LookupPartial(types.SHA3_256, "/f", 100, mtime); ok {
		t.Errorf("a different algorithm should invalidate the cache entry")
	}
	if _, ok := c.LookupPartial(types.Blake2b512, "/f", 100, mtime); !ok {
		t.Errorf("the unchanged key should still hit")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	mtime := time.Now()

	c1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c1.StoreFull(types.Blake2b512, "/x", 50, mtime, "full-digest"); err != nil {
		t.Fatalf("StoreFull: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = c2.Close() }()

	digest, ok := c2.LookupFull(types.Blake2b512, "/x", 50, mtime)
	if !ok || digest != "full-digest" {
		t.Errorf("LookupFull after reopen = (%q, %v), want (\"full-digest\", true)", digest, ok)
	}
}

func TestPartialAndFullAreIndependentKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = c.Close() }()

	mtime := time.Now()
	if err := c.StorePartial(types.Blake2b512, "/x", 50, mtime, "partial-digest"); err != nil {
		t.Fatalf("StorePartial: %v", err)
	}
	if _, ok := c.LookupFull(types.Blake2b512, "/x", 50, mtime); ok {
		t.Errorf("a partial-digest entry should not satisfy a full-digest lookup")
	}
}
