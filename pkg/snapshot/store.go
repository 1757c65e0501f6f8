// Package snapshot persists scan reports as an append-only, diffable
// series. Entries are never modified once written.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vestige-dev/vestige/pkg/models"
)

// ErrSnapshotNotFound reports a read of a snapshot id that was never
// persisted. Callers should test with errors.Is.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Store is a directory of numbered snapshot files. Ids increase
// monotonically; files are created with O_EXCL so an id can never be
// overwritten, even by a racing process.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore opens (creating if needed) a snapshot directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) entryPath(id uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%08d.json", id))
}

// nextID scans the directory for the highest existing id.
func (s *Store) nextID() (uint64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	var max uint64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

// Persist writes the report as the next snapshot and returns it.
func (s *Store) Persist(report models.ScanReport) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		CreatedAt: time.Now().UTC(),
		Report:    report,
	}

	for {
		id, err := s.nextID()
		if err != nil {
			return nil, err
		}
		snap.ID = id

		data, err := json.MarshalIndent(&snap, "", "  ")
		if err != nil {
			return nil, err
		}

		f, err := os.OpenFile(s.entryPath(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			// Another writer claimed the id; rescan and retry.
			continue
		}
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		return &snap, nil
	}
}

// List returns metadata for every snapshot, ordered by id.
func (s *Store) List() ([]models.SnapshotMeta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	metas := make([]models.SnapshotMeta, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		snap, err := s.Get(id)
		if err != nil {
			continue
		}
		metas = append(metas, models.SnapshotMeta{
			ID:        snap.ID,
			CreatedAt: snap.CreatedAt,
			Root:      snap.Report.Root,
			Files:     len(snap.Report.Files),
			Functions: len(snap.Report.Functions),
		})
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].ID < metas[j].ID })
	return metas, nil
}

// Get loads one snapshot by id.
func (s *Store) Get(id uint64) (*models.Snapshot, error) {
	data, err := os.ReadFile(s.entryPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("snapshot %d: %w", id, ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, err
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot %d: %w", id, err)
	}
	return &snap, nil
}

// Diff compares two snapshots: file changes by fingerprint plus
// function-count and quality deltas.
func (s *Store) Diff(from, to uint64) (*models.DiffResult, error) {
	a, err := s.Get(from)
	if err != nil {
		return nil, err
	}
	b, err := s.Get(to)
	if err != nil {
		return nil, err
	}

	oldFiles := make(map[string]string, len(a.Report.Files))
	for _, f := range a.Report.Files {
		oldFiles[f.Path] = f.Fingerprint
	}
	newFiles := make(map[string]string, len(b.Report.Files))
	for _, f := range b.Report.Files {
		newFiles[f.Path] = f.Fingerprint
	}

	result := &models.DiffResult{From: from, To: to}

	for path, fp := range newFiles {
		old, existed := oldFiles[path]
		switch {
		case !existed:
			result.Added = append(result.Added, models.FileChange{Path: path, NewFingerprint: fp})
		case old != fp:
			result.Changed = append(result.Changed, models.FileChange{
				Path:           path,
				OldFingerprint: old,
				NewFingerprint: fp,
			})
		}
	}
	for path, fp := range oldFiles {
		if _, exists := newFiles[path]; !exists {
			result.Removed = append(result.Removed, models.FileChange{Path: path, OldFingerprint: fp})
		}
	}

	sortChanges := func(cs []models.FileChange) {
		sort.Slice(cs, func(i, j int) bool { return cs[i].Path < cs[j].Path })
	}
	sortChanges(result.Added)
	sortChanges(result.Removed)
	sortChanges(result.Changed)

	result.FunctionCountDelta = len(b.Report.Functions) - len(a.Report.Functions)
	result.ClusterCountDelta = len(b.Report.Clusters) - len(a.Report.Clusters)
	result.AvgComplexityDelta = b.Report.Summary.AvgComplexity - a.Report.Summary.AvgComplexity

	return result, nil
}
