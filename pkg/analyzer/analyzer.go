// Package analyzer extracts per-file facts: functions, imports, call
// sites, liveness hints and quality fragments. One analyzer per language
// family; files of unsupported languages get a minimal record.
package analyzer

import (
	"path/filepath"

	"github.com/vestige-dev/vestige/pkg/models"
	"github.com/vestige-dev/vestige/pkg/parser"
	"github.com/vestige-dev/vestige/pkg/quality"
)

// AnalysisUnit is everything one file contributes to the cross-file
// stages. Units are JSON-serializable so cached files skip reparsing.
type AnalysisUnit struct {
	File      models.FileRecord      `json:"file"`
	Functions []models.FunctionRecord `json:"functions,omitempty"`
	Imports   []models.ImportRecord   `json:"imports,omitempty"`
	Calls     []models.CallSite       `json:"calls,omitempty"`

	// DynamicAccess is set when the file reaches into itself at runtime
	// (getattr and friends). It downgrades Unused to Ambiguous for every
	// function in the file.
	DynamicAccess bool `json:"dynamic_access,omitempty"`

	// HeuristicRoots maps qualified function names to the reasons they
	// are presumed live without a resolved call edge.
	HeuristicRoots map[string][]models.HeuristicReason `json:"heuristic_roots,omitempty"`

	// Metrics maps qualified function names to their quality scores.
	Metrics map[string]models.FunctionMetrics `json:"metrics,omitempty"`

	// Fragments feed duplication clustering at the barrier.
	Fragments []quality.Fragment `json:"fragments,omitempty"`

	Diagnostics []models.Diagnostic `json:"diagnostics,omitempty"`
}

// addHeuristic records a liveness reason for a qualified name, once.
func (u *AnalysisUnit) addHeuristic(qualified string, reason models.HeuristicReason) {
	if u.HeuristicRoots == nil {
		u.HeuristicRoots = make(map[string][]models.HeuristicReason)
	}
	for _, r := range u.HeuristicRoots[qualified] {
		if r == reason {
			return
		}
	}
	u.HeuristicRoots[qualified] = append(u.HeuristicRoots[qualified], reason)
}

// FileAnalyzer extracts an AnalysisUnit from one file's content. Path is
// the root-relative path used in all records.
type FileAnalyzer interface {
	Analyze(path string, content []byte) (*AnalysisUnit, error)
}

// ForPath selects the analyzer for a file, or nil for unsupported files.
func ForPath(path string) FileAnalyzer {
	switch lang := parser.DetectLanguage(path); {
	case lang == parser.LangPython:
		return NewPython()
	case lang.Scripted():
		return NewScript(lang)
	default:
		return nil
	}
}

// Analyze runs the right analyzer for path, falling back to a minimal
// unknown-language record so the file still appears in reports.
func Analyze(path string, content []byte) (*AnalysisUnit, error) {
	a := ForPath(path)
	if a == nil {
		return &AnalysisUnit{
			File: models.FileRecord{
				Path:     path,
				Size:     int64(len(content)),
				Language: string(parser.LangUnknown),
				Status:   models.StatusUnknown,
			},
		}, nil
	}
	return a.Analyze(path, content)
}

// ModuleName converts a root-relative path to its dotted module name:
// directory separators become dots and the extension drops, so
// "pkg/util/helpers.py" imports as "pkg.util.helpers".
func ModuleName(path string) string {
	ext := filepath.Ext(path)
	trimmed := path[:len(path)-len(ext)]
	return replaceSeparators(trimmed)
}

func replaceSeparators(p string) string {
	out := make([]byte, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '/' || p[i] == '\\' {
			out[i] = '.'
		} else {
			out[i] = p[i]
		}
	}
	return string(out)
}
