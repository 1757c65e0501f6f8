// Package callgraph builds the project call graph from per-file analysis
// units and classifies every function's liveness.
package callgraph

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/vestige-dev/vestige/pkg/analyzer"
	"github.com/vestige-dev/vestige/pkg/models"
)

// Options supplies the externally provided liveness signals.
type Options struct {
	// Seeds are function ids ("path::qualified") treated as entry points.
	Seeds []string
	// TraceCounts maps function ids to observed dynamic call counts.
	// Any function with a positive count is live regardless of structure.
	TraceCounts map[string]uint64
}

// Result is the classified call graph.
type Result struct {
	Reports     []models.FunctionReport
	Edges       []models.CallGraphEdge
	Diagnostics []models.Diagnostic
}

// builder holds the intermediate indexes for one Build run.
type builder struct {
	units []*analyzer.AnalysisUnit

	// functions sorted by id; idx maps id to position.
	functions []models.FunctionRecord
	idx       map[string]uint32

	// byFile maps file path -> qualified name -> id.
	byFile map[string]map[string]string
	// moduleFile maps dotted module name -> file path.
	moduleFile map[string]string
	// aliases maps file path -> local binding -> resolved function id or
	// module file path (moduleBinding prefix).
	bindings map[string]map[string]binding

	scripted map[string]bool
	dynamic  map[string]bool

	heuristics map[string][]models.HeuristicReason
	metrics    map[string]models.FunctionMetrics
	diags      []models.Diagnostic
}

type binding struct {
	// functionID is set for "from m import x" style bindings.
	functionID string
	// moduleFilePath is set for whole-module bindings ("import m as a").
	moduleFilePath string
}

// Build constructs and classifies the call graph. Output is fully
// deterministic for identical inputs regardless of unit order.
func Build(units []*analyzer.AnalysisUnit, opts Options) *Result {
	b := &builder{
		units:      units,
		idx:        make(map[string]uint32),
		byFile:     make(map[string]map[string]string),
		moduleFile: make(map[string]string),
		bindings:   make(map[string]map[string]binding),
		scripted:   make(map[string]bool),
		dynamic:    make(map[string]bool),
		heuristics: make(map[string][]models.HeuristicReason),
		metrics:    make(map[string]models.FunctionMetrics),
	}

	b.indexFunctions()
	b.indexAliases()
	edges := b.resolveEdges()
	return b.classify(edges, opts)
}

// indexFunctions builds the qualified-name index. Duplicate ids across
// units produce a diagnostic; the first definition wins.
func (b *builder) indexFunctions() {
	sorted := make([]*analyzer.AnalysisUnit, len(b.units))
	copy(sorted, b.units)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].File.Path < sorted[j].File.Path
	})
	b.units = sorted

	for _, unit := range b.units {
		path := unit.File.Path
		b.moduleFile[analyzer.ModuleName(path)] = path
		if unit.File.Language == "javascript" || unit.File.Language == "typescript" {
			b.scripted[path] = true
		}
		if unit.DynamicAccess {
			b.dynamic[path] = true
		}

		for qualified, reasons := range unit.HeuristicRoots {
			id := models.FunctionID(path, qualified)
			b.heuristics[id] = append(b.heuristics[id], reasons...)
		}

		for _, fn := range unit.Functions {
			if _, dup := b.idx[fn.ID]; dup {
				b.diags = append(b.diags, models.Diagnostic{
					Path:    path,
					Stage:   "callgraph",
					Message: "duplicate definition of " + fn.ID + ", first wins",
				})
				continue
			}
			b.idx[fn.ID] = uint32(len(b.functions))
			b.functions = append(b.functions, fn)
			if m, ok := unit.Metrics[fn.Name]; ok {
				b.metrics[fn.ID] = m
			}
			if b.byFile[path] == nil {
				b.byFile[path] = make(map[string]string)
			}
			b.byFile[path][fn.Name] = fn.ID
		}
	}
}

// indexAliases resolves import statements to bindings local to each file.
func (b *builder) indexAliases() {
	for _, unit := range b.units {
		path := unit.File.Path
		local := make(map[string]binding)

		for _, imp := range unit.Imports {
			targetFile, ok := b.resolveModule(path, imp.Module)

			switch {
			case imp.Wildcard:
				if !ok {
					continue
				}
				// from m import *: every top-level name becomes local.
				if imp.Alias != "" {
					// import * as ns: the namespace binds the module.
					local[imp.Alias] = binding{moduleFilePath: targetFile}
					continue
				}
				for qualified, id := range b.byFile[targetFile] {
					if !strings.Contains(qualified, ".") {
						local[qualified] = binding{functionID: id}
					}
				}
			case imp.Symbol != "":
				if !ok {
					continue
				}
				name := imp.Symbol
				if imp.Alias != "" {
					name = imp.Alias
				}
				if id, found := b.byFile[targetFile][imp.Symbol]; found {
					local[name] = binding{functionID: id}
				} else {
					local[name] = binding{moduleFilePath: targetFile}
				}
			default:
				// import m [as a]: bind the module handle. A dotted
				// module without an alias binds its full path, so
				// "a.b.c.f()" resolves through the dotted form.
				if !ok {
					continue
				}
				name := imp.Alias
				if name == "" {
					name = imp.Module
				}
				local[name] = binding{moduleFilePath: targetFile}
			}
		}

		if len(local) > 0 {
			b.bindings[path] = local
		}
	}
}

// resolveModule maps an import string to a known file, if the module is
// part of the project. Script-family relative specifiers resolve against
// the importing file's directory.
func (b *builder) resolveModule(fromFile, module string) (string, bool) {
	if strings.HasPrefix(module, "./") || strings.HasPrefix(module, "../") {
		dir := dirOf(fromFile)
		joined := normalizePath(dir + "/" + strings.TrimPrefix(module, "./"))
		candidate := strings.ReplaceAll(joined, "/", ".")
		candidate = strings.TrimSuffix(candidate, ".js")
		candidate = strings.TrimSuffix(candidate, ".ts")
		if file, ok := b.moduleFile[candidate]; ok {
			return file, true
		}
		// index files: ./util -> util/index
		if file, ok := b.moduleFile[candidate+".index"]; ok {
			return file, true
		}
		return "", false
	}

	if file, ok := b.moduleFile[module]; ok {
		return file, true
	}
	// Suffix match: "util.helpers" matches "src.util.helpers".
	var match string
	for name, file := range b.moduleFile {
		if strings.HasSuffix(name, "."+module) {
			if match != "" {
				return "", false // ambiguous
			}
			match = file
		}
	}
	return match, match != ""
}

// resolveEdges turns call sites into edges: same-file exact, alias
// lookup, script suffix match, then the external sentinel.
func (b *builder) resolveEdges() []models.CallGraphEdge {
	var edges []models.CallGraphEdge

	for _, unit := range b.units {
		path := unit.File.Path
		for _, call := range unit.Calls {
			// An empty caller means module scope. A caller name missing
			// from the index (the losing side of a duplicate definition)
			// keeps its synthetic id so the edge is never mistaken for
			// import-time execution.
			caller := ""
			if call.Caller != "" {
				caller = models.FunctionID(path, call.Caller)
				if id, ok := b.byFile[path][call.Caller]; ok {
					caller = id
				}
			}

			callee := b.resolveTarget(path, call.Target)
			edges = append(edges, models.CallGraphEdge{
				Caller: caller,
				Callee: callee,
				Line:   call.Line,
			})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Caller != edges[j].Caller {
			return edges[i].Caller < edges[j].Caller
		}
		if edges[i].Callee != edges[j].Callee {
			return edges[i].Callee < edges[j].Callee
		}
		return edges[i].Line < edges[j].Line
	})
	return edges
}

// resolveTarget implements the per-call-site resolution order.
func (b *builder) resolveTarget(fromFile, target string) string {
	// 1. Same-file exact match on the qualified name.
	if id, ok := b.byFile[fromFile][target]; ok {
		return id
	}

	// 2. Alias index. For dotted targets, try every split point so that
	// both "ns.f" and "a.b.c.f" resolve through a module binding.
	if local := b.bindings[fromFile]; local != nil {
		if bind, ok := local[target]; ok && bind.functionID != "" {
			return bind.functionID
		}
		for i := len(target) - 1; i > 0; i-- {
			if target[i] != '.' {
				continue
			}
			head, rest := target[:i], target[i+1:]
			if bind, ok := local[head]; ok && bind.moduleFilePath != "" {
				if id, found := b.byFile[bind.moduleFilePath][rest]; found {
					return id
				}
			}
		}
	}

	// 3. Dotted suffix match, script family only, unique or nothing.
	if b.scripted[fromFile] {
		last := lastSegment(target)
		var match string
		for id := range b.idx {
			qualified := id[strings.Index(id, "::")+2:]
			if qualified == target || strings.HasSuffix(qualified, "."+target) ||
				(target != last && qualified == last) {
				if match != "" && match != id {
					match = ""
					break
				}
				match = id
			}
		}
		if match != "" {
			return match
		}
	}

	// 4. External sentinel.
	return models.ExternalCallee
}

// classify runs reachability from the root set and labels every function.
func (b *builder) classify(edges []models.CallGraphEdge, opts Options) *Result {
	n := uint32(len(b.functions))
	adjacency := make(map[uint32][]uint32)
	reached := roaring.New()
	queue := make([]uint32, 0, n)

	enqueue := func(i uint32) {
		if !reached.Contains(i) {
			reached.Add(i)
			queue = append(queue, i)
		}
	}

	// unresolvedNames collects bare names referenced through the
	// external sentinel; they make same-named functions Ambiguous.
	unresolvedNames := make(map[string]bool)

	for _, e := range edges {
		if e.External() {
			continue
		}
		callee := b.idx[e.Callee]
		if e.Caller == "" {
			// Module scope executes at import time.
			enqueue(callee)
			continue
		}
		caller, ok := b.idx[e.Caller]
		if !ok {
			// Caller isn't an indexed function; the edge carries no
			// liveness.
			continue
		}
		adjacency[caller] = append(adjacency[caller], callee)
	}
	for _, unit := range b.units {
		for _, call := range unit.Calls {
			if b.resolveTarget(unit.File.Path, call.Target) == models.ExternalCallee {
				unresolvedNames[lastSegment(call.Target)] = true
			}
		}
	}

	// Root set: heuristic-live, seeds, trace-flagged.
	roots := roaring.New()
	liveDirect := roaring.New()
	for id := range b.heuristics {
		if i, ok := b.idx[id]; ok {
			roots.Add(i)
		}
	}
	reasons := make(map[uint32][]models.HeuristicReason)
	for id, rs := range b.heuristics {
		if i, ok := b.idx[id]; ok {
			reasons[i] = append(reasons[i], dedupeReasons(rs)...)
		}
	}
	for _, seed := range opts.Seeds {
		if i, ok := b.idx[seed]; ok {
			roots.Add(i)
			liveDirect.Add(i)
			reasons[i] = append(reasons[i], models.HeuristicSeed)
		} else {
			b.diags = append(b.diags, models.Diagnostic{
				Stage:   "callgraph",
				Message: "seed not found: " + seed,
			})
		}
	}
	for id, count := range opts.TraceCounts {
		if count == 0 {
			continue
		}
		if i, ok := b.idx[id]; ok {
			roots.Add(i)
			liveDirect.Add(i)
			reasons[i] = append(reasons[i], models.HeuristicTrace)
		}
	}

	// BFS. Roots propagate liveness but are not themselves edge-reached.
	edgeReached := reached.Clone() // module-scope targets count as reached
	it := roots.Iterator()
	for it.HasNext() {
		i := it.Next()
		if !reached.Contains(i) {
			reached.Add(i)
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[cur] {
			if !reached.Contains(next) {
				reached.Add(next)
				queue = append(queue, next)
			}
			edgeReached.Add(next)
		}
	}

	// Label every function.
	reports := make([]models.FunctionReport, 0, n)
	for i, fn := range b.functions {
		idx := uint32(i)
		report := models.FunctionReport{FunctionRecord: fn}
		report.Metrics = b.metrics[fn.ID]
		report.Reasons = dedupeReasons(reasons[idx])

		switch {
		case liveDirect.Contains(idx) || edgeReached.Contains(idx):
			report.Liveness = models.LivenessLive
		case roots.Contains(idx):
			report.Liveness = models.LivenessHeuristic
		case unresolvedNames[lastSegment(fn.Name)] || b.dynamic[fn.File]:
			report.Liveness = models.LivenessAmbiguous
		default:
			report.Liveness = models.LivenessUnused
		}
		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ID < reports[j].ID
	})

	return &Result{
		Reports:     reports,
		Edges:       edges,
		Diagnostics: b.diags,
	}
}

func dedupeReasons(rs []models.HeuristicReason) []models.HeuristicReason {
	if len(rs) == 0 {
		return nil
	}
	seen := make(map[models.HeuristicReason]bool, len(rs))
	out := make([]models.HeuristicReason, 0, len(rs))
	for _, r := range rs {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func lastSegment(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func dirOf(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[:idx]
	}
	return ""
}

// normalizePath collapses "a/./b" and "a/x/../b" forms.
func normalizePath(p string) string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return strings.Join(out, "/")
}
