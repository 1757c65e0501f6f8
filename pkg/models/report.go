package models

import "time"

// ReportSummary holds scan-level aggregates for quick display.
type ReportSummary struct {
	TotalFiles    int     `json:"total_files"`
	AnalyzedFiles int     `json:"analyzed_files"`
	Functions     int     `json:"functions"`
	Unused        int     `json:"unused"`
	Ambiguous     int     `json:"ambiguous"`
	Clusters      int     `json:"clusters"`
	AvgComplexity float64 `json:"avg_complexity"`
}

// ScanReport is the complete output of one scan over a source tree.
// Files, Functions, Edges and Clusters are sorted so that two scans of
// identical content produce byte-identical reports.
type ScanReport struct {
	Root        string           `json:"root"`
	CreatedAt   time.Time        `json:"created_at"`
	Files       []FileRecord     `json:"files"`
	Functions   []FunctionReport `json:"functions"`
	Edges       []CallGraphEdge  `json:"edges"`
	Clusters    []DuplicateCluster `json:"clusters"`
	Graph       *DependencyGraph `json:"graph,omitempty"`
	Diagnostics []Diagnostic     `json:"diagnostics,omitempty"`
	Summary     ReportSummary    `json:"summary"`
}

// FunctionByID returns the report entry for a function id, if present.
func (r *ScanReport) FunctionByID(id string) (FunctionReport, bool) {
	for _, fn := range r.Functions {
		if fn.ID == id {
			return fn, true
		}
	}
	return FunctionReport{}, false
}
