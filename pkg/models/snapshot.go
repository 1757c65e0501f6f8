package models

import "time"

// Snapshot is a persisted scan report with a monotonically increasing id.
// Snapshots are append-only: once written they are never modified.
type Snapshot struct {
	ID        uint64     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Report    ScanReport `json:"report"`
}

// SnapshotMeta is the listing view of a snapshot, cheap enough to show
// without loading the full report.
type SnapshotMeta struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Root      string    `json:"root"`
	Files     int       `json:"files"`
	Functions int       `json:"functions"`
}

// FileChange describes one file that differs between two snapshots.
type FileChange struct {
	Path           string `json:"path"`
	OldFingerprint string `json:"old_fingerprint,omitempty"`
	NewFingerprint string `json:"new_fingerprint,omitempty"`
}

// DiffResult is the comparison of two snapshots. Added/Removed/Changed
// are keyed by file path; the deltas are new minus old.
type DiffResult struct {
	From               uint64       `json:"from"`
	To                 uint64       `json:"to"`
	Added              []FileChange `json:"added,omitempty"`
	Removed            []FileChange `json:"removed,omitempty"`
	Changed            []FileChange `json:"changed,omitempty"`
	FunctionCountDelta int          `json:"function_count_delta"`
	ClusterCountDelta  int          `json:"cluster_count_delta"`
	AvgComplexityDelta float64      `json:"avg_complexity_delta"`
}

// Empty reports whether the diff contains no changes at all.
func (d DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}
