// Package engine orchestrates the scan pipeline: walk, parallel per-file
// analysis with cache short-circuiting, then the cross-file barrier
// stages, and finally snapshot persistence.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vestige-dev/vestige/internal/cache"
	"github.com/vestige-dev/vestige/internal/fileproc"
	"github.com/vestige-dev/vestige/pkg/analyzer"
	"github.com/vestige-dev/vestige/pkg/callgraph"
	"github.com/vestige-dev/vestige/pkg/config"
	"github.com/vestige-dev/vestige/pkg/depgraph"
	"github.com/vestige-dev/vestige/pkg/models"
	"github.com/vestige-dev/vestige/pkg/parser"
	"github.com/vestige-dev/vestige/pkg/quality"
	"github.com/vestige-dev/vestige/pkg/snapshot"
	"github.com/vestige-dev/vestige/pkg/walker"
	"github.com/vestige-dev/vestige/pkg/watch"
)

// ScanOptions tune a single scan without touching the engine config.
type ScanOptions struct {
	// Seeds are extra liveness roots (function ids), merged with the
	// configured ones.
	Seeds []string

	// TraceCounts maps function ids to observed dynamic call counts.
	// When nil, the configured trace file is loaded instead.
	TraceCounts map[string]uint64

	// NoCache bypasses the incremental cache for this scan.
	NoCache bool

	// NoSnapshot skips snapshot persistence for this scan.
	NoSnapshot bool

	// Progress, when set, is called with the file count once discovery
	// finishes; the returned tick runs after each file is processed.
	Progress func(total int) fileproc.ProgressFunc
}

// Engine runs scans over one source tree.
type Engine struct {
	cfg   *config.Config
	root  string
	cache *cache.Cache
	store *snapshot.Store

	scanGate chan struct{} // held for the duration of a scan
}

// New creates an engine rooted at root. Cache and snapshot directories
// from the config resolve relative to the root.
func New(cfg *config.Config, root string) (*Engine, error) {
	c, err := cache.New(resolveDir(root, cfg.Cache.Dir), cfg.Cache.Enabled)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	var store *snapshot.Store
	if cfg.Snapshots.Enabled {
		store, err = snapshot.NewStore(resolveDir(root, cfg.Snapshots.Dir))
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
	}

	e := &Engine{
		cfg:      cfg,
		root:     root,
		cache:    c,
		store:    store,
		scanGate: make(chan struct{}, 1),
	}
	return e, nil
}

func resolveDir(root, dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// Store exposes the snapshot store, nil when snapshots are disabled.
func (e *Engine) Store() *snapshot.Store {
	return e.store
}

// Cache exposes the incremental cache.
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Scan runs the full pipeline once and returns the report. Only a
// missing root aborts; per-file failures become diagnostics.
func (e *Engine) Scan(ctx context.Context, opts ScanOptions) (*models.ScanReport, error) {
	e.scanGate <- struct{}{}
	defer func() { <-e.scanGate }()

	report := &models.ScanReport{
		Root:      e.root,
		CreatedAt: time.Now().UTC(),
	}

	files, walkDiags, err := walker.New(e.cfg).Walk(e.root)
	if err != nil {
		return nil, err
	}
	report.Diagnostics = append(report.Diagnostics, walkDiags...)

	var tick fileproc.ProgressFunc
	if opts.Progress != nil {
		tick = opts.Progress(len(files))
	}

	units, procErrs := fileproc.ForEachFileWithContextAndProgress(ctx, files, func(rel string) (*analyzer.AnalysisUnit, error) {
		return e.analyzeFile(rel, opts.NoCache)
	}, tick)
	if procErrs != nil {
		for _, pe := range procErrs.Errors {
			report.Diagnostics = append(report.Diagnostics, models.Diagnostic{
				Path:    pe.Path,
				Stage:   "read",
				Message: pe.Err.Error(),
			})
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	sort.Slice(units, func(i, j int) bool { return units[i].File.Path < units[j].File.Path })

	// Unknown-language units contribute a file record only; the cross-file
	// stages see just the analyzed units.
	var analyzed []*analyzer.AnalysisUnit
	for _, unit := range units {
		report.Files = append(report.Files, unit.File)
		report.Diagnostics = append(report.Diagnostics, unit.Diagnostics...)
		if unit.File.Status != models.StatusUnknown {
			analyzed = append(analyzed, unit)
		}
	}

	traceCounts := opts.TraceCounts
	if traceCounts == nil && e.cfg.Liveness.TraceFile != "" {
		traceCounts, err = LoadTraceCounts(resolveDir(e.root, e.cfg.Liveness.TraceFile))
		if err != nil {
			report.Diagnostics = append(report.Diagnostics, models.Diagnostic{
				Path:    e.cfg.Liveness.TraceFile,
				Stage:   "trace",
				Message: err.Error(),
			})
		}
	}

	seeds := append(append([]string{}, e.cfg.Liveness.Seeds...), opts.Seeds...)
	cg := callgraph.Build(analyzed, callgraph.Options{
		Seeds:       seeds,
		TraceCounts: traceCounts,
	})
	report.Functions = cg.Reports
	report.Edges = cg.Edges
	report.Diagnostics = append(report.Diagnostics, cg.Diagnostics...)

	var fragments []quality.Fragment
	for _, unit := range analyzed {
		fragments = append(fragments, unit.Fragments...)
	}
	report.Clusters = quality.Cluster(fragments, e.cfg.Quality.DuplicateMinStatements)

	report.Graph = depgraph.Build(analyzed, cg.Edges)

	report.Summary = summarize(report)

	if !opts.NoCache {
		live := make(map[string]bool, len(files))
		for _, rel := range files {
			live[rel] = true
		}
		if err := e.cache.Prune(live); err != nil {
			report.Diagnostics = append(report.Diagnostics, models.Diagnostic{
				Stage:   "cache",
				Message: err.Error(),
			})
		}
	}

	if e.store != nil && !opts.NoSnapshot {
		if _, err := e.store.Persist(*report); err != nil {
			return nil, fmt.Errorf("persist snapshot: %w", err)
		}
	}

	return report, nil
}

// analyzeFile runs one file through the cache and the analyzer. Files
// outside the configured extensions become record-only units: path and
// size, no content read.
func (e *Engine) analyzeFile(rel string, noCache bool) (*analyzer.AnalysisUnit, error) {
	abs := filepath.Join(e.root, rel)
	if !e.cfg.SupportsExtension(filepath.Ext(rel)) {
		return unknownUnit(rel, abs)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	fingerprint := cache.HashBytes(content)

	if !noCache {
		if data, ok := e.cache.Get(rel, fingerprint); ok {
			var unit analyzer.AnalysisUnit
			if err := json.Unmarshal(data, &unit); err == nil {
				return &unit, nil
			}
			e.cache.Invalidate(rel)
		}
	}

	unit, err := analyzer.Analyze(rel, content)
	if err != nil {
		return nil, err
	}
	if unit.File.Fingerprint == "" {
		unit.File.Fingerprint = fingerprint
	}
	if info, err := os.Stat(abs); err == nil {
		unit.File.ModTime = info.ModTime()
	}

	if !noCache {
		if data, err := json.Marshal(unit); err == nil {
			e.cache.Put(rel, fingerprint, data)
		}
	}
	return unit, nil
}

func unknownUnit(rel, abs string) (*analyzer.AnalysisUnit, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	return &analyzer.AnalysisUnit{
		File: models.FileRecord{
			Path:     rel,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
			Language: string(parser.LangUnknown),
			Status:   models.StatusUnknown,
		},
	}, nil
}

func summarize(report *models.ScanReport) models.ReportSummary {
	s := models.ReportSummary{
		TotalFiles: len(report.Files),
		Functions:  len(report.Functions),
		Clusters:   len(report.Clusters),
	}

	for _, f := range report.Files {
		if f.Status != models.StatusUnknown {
			s.AnalyzedFiles++
		}
	}

	var totalComplexity uint64
	for _, fn := range report.Functions {
		switch fn.Liveness {
		case models.LivenessUnused:
			s.Unused++
		case models.LivenessAmbiguous:
			s.Ambiguous++
		}
		totalComplexity += uint64(fn.Metrics.Complexity)
	}
	if len(report.Functions) > 0 {
		s.AvgComplexity = float64(totalComplexity) / float64(len(report.Functions))
	}
	return s
}

// LoadTraceCounts reads a dynamic-trace file: a JSON object mapping
// function ids to observed call counts.
func LoadTraceCounts(path string) (map[string]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]uint64)
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("trace file %s: %w", path, err)
	}
	return counts, nil
}

// Watch runs an initial scan, then rescans whenever watched files
// change. Changes arriving during a scan coalesce into at most one
// pending rescan; an in-flight scan always completes. onReport receives
// every scan outcome. Blocks until the context is cancelled.
func (e *Engine) Watch(ctx context.Context, opts ScanOptions, onReport func(*models.ScanReport, error)) error {
	debounce := time.Duration(e.cfg.Watch.DebounceMS) * time.Millisecond
	w, err := watch.NewWatcher(e.root, e.cfg, debounce)
	if err != nil {
		return err
	}
	defer w.Stop()

	report, err := e.Scan(ctx, opts)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	onReport(report, err)

	trigger := make(chan struct{}, 1)
	w.SetCallback(func([]string) {
		select {
		case trigger <- struct{}{}:
		default: // a pending rescan already covers this batch
		}
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				report, err := e.Scan(ctx, opts)
				if ctx.Err() != nil {
					return
				}
				onReport(report, err)
			}
		}
	}()

	return w.Start(ctx)
}
