package models

import "time"

// ParseStatus describes how completely a file was analyzed.
type ParseStatus string

const (
	// StatusOK means the file parsed cleanly.
	StatusOK ParseStatus = "ok"
	// StatusDegraded means parsing hit errors but partial records were kept.
	StatusDegraded ParseStatus = "degraded"
	// StatusParseError means the file could not be parsed at all.
	StatusParseError ParseStatus = "parse_error"
	// StatusUnknown means the extension is unsupported; only path/size are recorded.
	StatusUnknown ParseStatus = "unknown"
)

// FileRecord describes one file discovered during a scan.
type FileRecord struct {
	Path        string      `json:"path"`
	Size        int64       `json:"size"`
	ModTime     time.Time   `json:"mod_time"`
	Fingerprint string      `json:"fingerprint"`
	Language    string      `json:"language"`
	Status      ParseStatus `json:"status"`
}

// Diagnostic records a non-fatal problem encountered during a scan.
// Per-file problems never abort a scan; they accumulate here instead.
type Diagnostic struct {
	Path    string `json:"path,omitempty"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}
