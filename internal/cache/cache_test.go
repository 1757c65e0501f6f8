package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetMissOnEmptyCache(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("a.py", "fp1"); ok {
		t.Error("expected miss on empty cache")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), true)
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte(`{"functions":3}`)
	if err := c.Put("a.py", "fp1", payload); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Get("a.py", "fp1")
	if !ok {
		t.Fatal("expected hit for matching fingerprint")
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: %s", got)
	}

	// Different fingerprint must miss
	if _, ok := c.Get("a.py", "fp2"); ok {
		t.Error("expected miss for stale fingerprint")
	}
}

func TestDisabledCacheNeverHits(t *testing.T) {
	c, err := New("", false)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("a.py", "fp1", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("a.py", "fp1"); ok {
		t.Error("disabled cache must always miss")
	}
}

func TestVersionMismatchDiscardsStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")

	c, err := New(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("a.py", "fp1", []byte("x")); err != nil {
		t.Fatal(err)
	}

	// Simulate a store written by an older schema.
	if err := os.WriteFile(filepath.Join(dir, versionFile), []byte("0"), 0o600); err != nil {
		t.Fatal(err)
	}

	c2, err := New(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c2.Get("a.py", "fp1"); ok {
		t.Error("expected version mismatch to drop all entries")
	}
}

func TestCorruptEntryDiscardsStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := New(dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("a.py", "fp1", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("b.py", "fp2", []byte("y")); err != nil {
		t.Fatal(err)
	}

	// Corrupt a's entry on disk.
	if err := os.WriteFile(c.keyPath("a.py"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("a.py", "fp1"); ok {
		t.Error("expected miss on corrupt entry")
	}
	// Corruption drops the whole store, including b.
	if _, ok := c.Get("b.py", "fp2"); ok {
		t.Error("expected whole store discarded after corruption")
	}
}

func TestInvalidate(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), true)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("a.py", "fp1", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate("a.py"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("a.py", "fp1"); ok {
		t.Error("expected miss after invalidate")
	}
	// Invalidating a missing entry is not an error.
	if err := c.Invalidate("missing.py"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPrune(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), true)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put("a.py", "fp1", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("b.py", "fp2", []byte("y")); err != nil {
		t.Fatal(err)
	}

	if err := c.Prune(map[string]bool{"a.py": true}); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("a.py", "fp1"); !ok {
		t.Error("live entry must survive prune")
	}
	if _, ok := c.Get("b.py", "fp2"); ok {
		t.Error("dead entry must be pruned")
	}
}

func TestHashBytesStable(t *testing.T) {
	a := HashBytes([]byte("def f(): pass"))
	b := HashBytes([]byte("def f(): pass"))
	if a != b {
		t.Error("fingerprint must be deterministic")
	}
	if a == HashBytes([]byte("def g(): pass")) {
		t.Error("different content must not collide")
	}
}
