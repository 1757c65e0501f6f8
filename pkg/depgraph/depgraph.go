// Package depgraph builds the module-level dependency graph: import
// edges unioned with call edges collapsed to module granularity.
package depgraph

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vestige-dev/vestige/pkg/analyzer"
	"github.com/vestige-dev/vestige/pkg/models"
)

// Build assembles the dependency graph from analysis units and the
// resolved call edges. Node ids are file paths; call and import edges
// between the same pair collapse into one weighted edge per type.
func Build(units []*analyzer.AnalysisUnit, calls []models.CallGraphEdge) *models.DependencyGraph {
	g := models.NewDependencyGraph()

	moduleFile := make(map[string]string)
	paths := make([]string, 0, len(units))
	for _, unit := range units {
		moduleFile[analyzer.ModuleName(unit.File.Path)] = unit.File.Path
		paths = append(paths, unit.File.Path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		g.AddNode(models.GraphNode{
			ID:    path,
			Name:  analyzer.ModuleName(path),
			Type:  models.NodeModule,
			Files: 1,
		})
	}

	type edgeKey struct {
		from, to string
		typ      models.EdgeType
	}
	weights := make(map[edgeKey]int)

	for _, unit := range units {
		for _, imp := range unit.Imports {
			target, ok := resolveModule(moduleFile, unit.File.Path, imp.Module)
			if !ok || target == unit.File.Path {
				continue
			}
			weights[edgeKey{unit.File.Path, target, models.EdgeImport}]++
		}
	}

	for _, e := range calls {
		if e.External() || e.Caller == "" {
			continue
		}
		from := fileOf(e.Caller)
		to := fileOf(e.Callee)
		if from == to {
			continue
		}
		weights[edgeKey{from, to, models.EdgeCall}]++
	}

	keys := make([]edgeKey, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		if keys[i].to != keys[j].to {
			return keys[i].to < keys[j].to
		}
		return keys[i].typ < keys[j].typ
	})
	for _, k := range keys {
		g.AddEdge(models.GraphEdge{
			From:   k.from,
			To:     k.to,
			Type:   k.typ,
			Weight: weights[k],
		})
	}

	return g
}

// resolveModule maps an import specifier to a project file, if any.
// Relative script specifiers resolve against the importing directory;
// dotted modules match exactly, then by unique suffix.
func resolveModule(moduleFile map[string]string, fromFile, module string) (string, bool) {
	if strings.HasPrefix(module, "./") || strings.HasPrefix(module, "../") {
		dir := ""
		if idx := strings.LastIndex(fromFile, "/"); idx >= 0 {
			dir = fromFile[:idx]
		}
		joined := normalizePath(dir + "/" + strings.TrimPrefix(module, "./"))
		candidate := strings.ReplaceAll(joined, "/", ".")
		for _, suffix := range []string{"", ".index"} {
			if file, ok := moduleFile[candidate+suffix]; ok {
				return file, true
			}
		}
		return "", false
	}

	if file, ok := moduleFile[module]; ok {
		return file, true
	}
	var match string
	for name, file := range moduleFile {
		if strings.HasSuffix(name, "."+module) {
			if match != "" {
				return "", false
			}
			match = file
		}
	}
	return match, match != ""
}

func fileOf(functionID string) string {
	if idx := strings.Index(functionID, "::"); idx >= 0 {
		return functionID[:idx]
	}
	return functionID
}

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

// AggregateByDirectory collapses modules into directory nodes at the
// given depth. Depth 1 groups by top-level directory; files above the
// cut keep their own node.
func AggregateByDirectory(g *models.DependencyGraph, depth int) *models.DependencyGraph {
	if depth <= 0 {
		return g
	}

	group := func(path string) string {
		parts := strings.Split(path, "/")
		if len(parts) <= depth {
			return path
		}
		return strings.Join(parts[:depth], "/")
	}

	out := models.NewDependencyGraph()
	files := make(map[string]int)
	order := make([]string, 0)
	for _, node := range g.Nodes {
		id := group(node.ID)
		if _, seen := files[id]; !seen {
			order = append(order, id)
		}
		files[id] += node.Files
	}
	sort.Strings(order)
	for _, id := range order {
		out.AddNode(models.GraphNode{
			ID:    id,
			Name:  id,
			Type:  models.NodeDirectory,
			Files: files[id],
		})
	}

	type edgeKey struct {
		from, to string
		typ      models.EdgeType
	}
	weights := make(map[edgeKey]int)
	for _, e := range g.Edges {
		from, to := group(e.From), group(e.To)
		if from == to {
			continue
		}
		weights[edgeKey{from, to, e.Type}] += e.Weight
	}
	keys := make([]edgeKey, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		if keys[i].to != keys[j].to {
			return keys[i].to < keys[j].to
		}
		return keys[i].typ < keys[j].typ
	})
	for _, k := range keys {
		out.AddEdge(models.GraphEdge{From: k.from, To: k.to, Type: k.typ, Weight: weights[k]})
	}
	return out
}

// FilterByWeight drops edges below the minimum weight and, when
// filtering actually applies, nodes left without any edge.
func FilterByWeight(g *models.DependencyGraph, min int) *models.DependencyGraph {
	if min <= 1 {
		return g
	}

	out := models.NewDependencyGraph()
	connected := make(map[string]bool)
	for _, e := range g.Edges {
		if e.Weight >= min {
			out.AddEdge(e)
			connected[e.From] = true
			connected[e.To] = true
		}
	}
	for _, node := range g.Nodes {
		if connected[node.ID] {
			out.AddNode(node)
		}
	}
	return out
}

// Summarize computes aggregate metrics with gonum: weakly connected
// component count and the PageRank-ranked top nodes.
func Summarize(g *models.DependencyGraph) models.GraphSummary {
	summary := models.GraphSummary{
		TotalNodes: len(g.Nodes),
		TotalEdges: len(g.Edges),
	}
	if len(g.Nodes) == 0 {
		return summary
	}

	ids := make(map[string]int64, len(g.Nodes))
	names := make([]string, len(g.Nodes))
	directed := simple.NewDirectedGraph()
	undirected := simple.NewUndirectedGraph()
	for i, node := range g.Nodes {
		id := int64(i)
		ids[node.ID] = id
		names[i] = node.ID
		directed.AddNode(simple.Node(id))
		undirected.AddNode(simple.Node(id))
	}
	for _, e := range g.Edges {
		from, okF := ids[e.From]
		to, okT := ids[e.To]
		if !okF || !okT || from == to {
			continue
		}
		directed.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		undirected.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	summary.Components = len(topo.ConnectedComponents(undirected))

	ranks := network.PageRank(directed, 0.85, 1e-6)
	ranked := make([]models.RankedNode, 0, len(ranks))
	for id, rank := range ranks {
		ranked = append(ranked, models.RankedNode{ID: names[id], Rank: rank})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Rank != ranked[j].Rank {
			return ranked[i].Rank > ranked[j].Rank
		}
		return ranked[i].ID < ranked[j].ID
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	summary.TopNodes = ranked

	return summary
}
