package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vestige-dev/vestige/pkg/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkCollectsCandidateFiles(t *testing.T) {
	// Non-excluded files are returned regardless of extension; files no
	// analyzer reads still become record-only report entries downstream.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"), "x = 1\n")
	writeFile(t, filepath.Join(dir, "lib", "util.js"), "const x = 1;\n")
	writeFile(t, filepath.Join(dir, "README.md"), "# readme\n")

	w := New(config.DefaultConfig())
	files, diags, err := w.Walk(dir)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %v", files)
	}
	got := map[string]bool{}
	for _, f := range files {
		got[f] = true
	}
	if !got["app.py"] || !got[filepath.Join("lib", "util.js")] || !got["README.md"] {
		t.Errorf("unexpected file set: %v", files)
	}
}

func TestWalkSkipsHiddenAndExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"), "x = 1\n")
	writeFile(t, filepath.Join(dir, ".secret", "hidden.py"), "y = 2\n")
	writeFile(t, filepath.Join(dir, "node_modules", "dep", "index.js"), "z = 3\n")
	writeFile(t, filepath.Join(dir, ".hidden.py"), "h = 4\n")

	w := New(config.DefaultConfig())
	files, _, err := w.Walk(dir)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(files) != 1 || files[0] != "app.py" {
		t.Errorf("expected only app.py, got %v", files)
	}
}

func TestWalkShowHidden(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".hidden.py"), "h = 1\n")

	cfg := config.DefaultConfig()
	cfg.Walk.ShowHidden = true
	w := New(cfg)
	files, _, err := w.Walk(dir)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("expected hidden file included, got %v", files)
	}
}

func TestWalkExtraPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"), "x = 1\n")
	writeFile(t, filepath.Join(dir, "gen.py"), "g = 1\n")

	w := New(config.DefaultConfig(), "gen.py")
	files, _, err := w.Walk(dir)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(files) != 1 || files[0] != "app.py" {
		t.Errorf("expected gen.py excluded, got %v", files)
	}
}

func TestWalkMissingRootFails(t *testing.T) {
	w := New(config.DefaultConfig())
	_, _, err := w.Walk(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}
