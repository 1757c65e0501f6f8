// Package simulate answers what-if removal questions against a completed
// scan: which importers break and which functions sit inside the blast
// radius. It never mutates the report or the filesystem.
package simulate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vestige-dev/vestige/pkg/analyzer"
	"github.com/vestige-dev/vestige/pkg/models"
)

// ErrUnresolvedTarget reports a strict-mode simulation of a target that
// is not present in the scanned project.
var ErrUnresolvedTarget = errors.New("simulation target not found")

// DefaultMaxDepth bounds the reverse transitive closure when the caller
// does not pick a depth.
const DefaultMaxDepth = 3

// Options controls simulation behavior.
type Options struct {
	// MaxDepth bounds the reverse closure; zero means DefaultMaxDepth.
	MaxDepth int
	// Strict turns an unresolved target into an error instead of an
	// advisory unresolved report.
	Strict bool
}

// ParseTarget splits a "path" or "path::qualified.name" specifier.
func ParseTarget(spec string) models.SimulationTarget {
	if idx := strings.Index(spec, "::"); idx >= 0 {
		return models.SimulationTarget{File: spec[:idx], Function: spec[idx+2:]}
	}
	return models.SimulationTarget{File: spec}
}

// Simulate computes the blast radius of removing the target from the
// project described by report.
func Simulate(report *models.ScanReport, target models.SimulationTarget, opts Options) (*models.SimulationReport, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	out := &models.SimulationReport{
		Target:   target,
		MaxDepth: maxDepth,
	}

	seeds := resolveSeeds(report, target)
	if seeds == nil {
		if opts.Strict {
			return nil, fmt.Errorf("%w: %s", ErrUnresolvedTarget, targetString(target))
		}
		return out, nil
	}
	out.Resolved = true

	out.BrokenImports = brokenImports(report, target.File)
	out.Impacted, out.Truncated = reverseClosure(report, seeds, maxDepth)
	return out, nil
}

func targetString(t models.SimulationTarget) string {
	if t.Function == "" {
		return t.File
	}
	return t.File + "::" + t.Function
}

// resolveSeeds maps the target to the function ids removed with it.
// A file target seeds every function in the file; the file itself may
// legitimately define none. Nil means the target does not exist.
func resolveSeeds(report *models.ScanReport, target models.SimulationTarget) []string {
	if target.Function != "" {
		id := target.File + "::" + target.Function
		if _, ok := report.FunctionByID(id); !ok {
			return nil
		}
		return []string{id}
	}

	found := false
	for _, f := range report.Files {
		if f.Path == target.File {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	seeds := make([]string, 0)
	for _, fn := range report.Functions {
		if fn.File == target.File {
			seeds = append(seeds, fn.ID)
		}
	}
	return seeds
}

// brokenImports lists importers of the target file, taken from the
// dependency graph's import edges.
func brokenImports(report *models.ScanReport, file string) []models.ImportRecord {
	if report.Graph == nil {
		return nil
	}
	module := analyzer.ModuleName(file)

	var broken []models.ImportRecord
	for _, e := range report.Graph.Edges {
		if e.Type != models.EdgeImport || e.To != file {
			continue
		}
		broken = append(broken, models.ImportRecord{
			File:   e.From,
			Module: module,
		})
	}
	sort.Slice(broken, func(i, j int) bool { return broken[i].File < broken[j].File })
	return broken
}

// reverseClosure walks call edges backwards from the seeds, collecting
// callers up to maxDepth hops away. Returns the impacted set sorted by
// distance then id, and whether the depth bound cut the walk short.
func reverseClosure(report *models.ScanReport, seeds []string, maxDepth int) ([]models.ImpactedFunction, bool) {
	callers := make(map[string][]models.CallGraphEdge)
	for _, e := range report.Edges {
		if e.External() || e.Caller == "" {
			continue
		}
		callers[e.Callee] = append(callers[e.Callee], e)
	}

	type visit struct {
		id       string
		distance int
	}

	seen := make(map[string]bool, len(seeds))
	queue := make([]visit, 0, len(seeds))
	for _, id := range seeds {
		if !seen[id] {
			seen[id] = true
			queue = append(queue, visit{id: id, distance: 0})
		}
	}

	var impacted []models.ImpactedFunction
	truncated := false

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, e := range callers[cur.id] {
			if seen[e.Caller] {
				continue
			}
			if cur.distance >= maxDepth {
				truncated = true
				continue
			}
			seen[e.Caller] = true
			queue = append(queue, visit{id: e.Caller, distance: cur.distance + 1})

			imp := models.ImpactedFunction{
				ID:       e.Caller,
				Distance: cur.distance + 1,
				Line:     e.Line,
			}
			if fn, ok := report.FunctionByID(e.Caller); ok {
				imp.Name = fn.Name
				imp.File = fn.File
			}
			impacted = append(impacted, imp)
		}
	}

	sort.Slice(impacted, func(i, j int) bool {
		if impacted[i].Distance != impacted[j].Distance {
			return impacted[i].Distance < impacted[j].Distance
		}
		return impacted[i].ID < impacted[j].ID
	})
	return impacted, truncated
}
