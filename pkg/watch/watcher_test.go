package watch

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vestige-dev/vestige/pkg/config"
)

func newTestWatcher(t *testing.T, debounce time.Duration) *Watcher {
	t.Helper()
	w, err := NewWatcher(t.TempDir(), config.DefaultConfig(), debounce)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestNewWatcherDefaultsDebounce(t *testing.T) {
	w := newTestWatcher(t, 0)
	if w.debounce != 500*time.Millisecond {
		t.Errorf("debounce should default to 500ms, got %v", w.debounce)
	}

	w = newTestWatcher(t, time.Second)
	if w.debounce != time.Second {
		t.Errorf("debounce = %v, want 1s", w.debounce)
	}
}

func TestHandleEventFiltersIrrelevantFiles(t *testing.T) {
	w := newTestWatcher(t, time.Second)

	w.handleEvent(fsnotify.Event{Name: filepath.Join(w.root, "notes.txt"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(w.root, "node_modules", "x.js"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(w.root, "app.min.js"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(w.root, "app.py"), Op: fsnotify.Chmod})

	if len(w.pending) != 0 {
		t.Errorf("irrelevant events must not pend, got %v", w.pending)
	}

	w.handleEvent(fsnotify.Event{Name: filepath.Join(w.root, "app.py"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(w.root, "lib.ts"), Op: fsnotify.Remove})

	if len(w.pending) != 2 {
		t.Errorf("expected 2 pending paths, got %v", w.pending)
	}
}

func TestProcessPendingCoalescesBatch(t *testing.T) {
	w := newTestWatcher(t, 10*time.Millisecond)

	var mu sync.Mutex
	var batches [][]string
	var wg sync.WaitGroup
	wg.Add(1)
	w.SetCallback(func(paths []string) {
		mu.Lock()
		batches = append(batches, paths)
		mu.Unlock()
		wg.Done()
	})

	a := filepath.Join(w.root, "a.py")
	b := filepath.Join(w.root, "b.py")
	w.handleEvent(fsnotify.Event{Name: a, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: a, Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: b, Op: fsnotify.Create})

	time.Sleep(20 * time.Millisecond)
	w.processPending()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("expected one coalesced batch, got %d", len(batches))
	}
	if len(batches[0]) != 2 || batches[0][0] != a || batches[0][1] != b {
		t.Errorf("batch = %v, want sorted [a b]", batches[0])
	}
	if len(w.pending) != 0 {
		t.Errorf("flushed paths must leave pending, got %v", w.pending)
	}
}

func TestProcessPendingRespectsDebounce(t *testing.T) {
	w := newTestWatcher(t, time.Hour)

	fired := false
	w.SetCallback(func([]string) { fired = true })

	w.handleEvent(fsnotify.Event{Name: filepath.Join(w.root, "a.py"), Op: fsnotify.Write})
	w.processPending()

	if fired {
		t.Error("callback must not fire before the debounce period")
	}
	if len(w.pending) != 1 {
		t.Errorf("path should stay pending, got %v", w.pending)
	}
}
