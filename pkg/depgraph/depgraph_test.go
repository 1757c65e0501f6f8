package depgraph

import (
	"testing"

	"github.com/vestige-dev/vestige/pkg/analyzer"
	"github.com/vestige-dev/vestige/pkg/models"
)

func analyze(t *testing.T, path, source string) *analyzer.AnalysisUnit {
	t.Helper()
	unit, err := analyzer.Analyze(path, []byte(source))
	if err != nil {
		t.Fatalf("analyze %s: %v", path, err)
	}
	return unit
}

func buildFixture(t *testing.T) *models.DependencyGraph {
	t.Helper()
	util := analyze(t, "app/util.py", "def helper():\n    return 1\n")
	main := analyze(t, "app/main.py", `
from app.util import helper

def main():
    helper()
`)
	calls := []models.CallGraphEdge{
		{Caller: "app/main.py::main", Callee: "app/util.py::helper", Line: 5},
	}
	return Build([]*analyzer.AnalysisUnit{util, main}, calls)
}

func TestBuildNodesAndEdges(t *testing.T) {
	g := buildFixture(t)

	if len(g.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.Nodes))
	}

	var importEdge, callEdge bool
	for _, e := range g.Edges {
		if e.From == "app/main.py" && e.To == "app/util.py" {
			switch e.Type {
			case models.EdgeImport:
				importEdge = true
			case models.EdgeCall:
				callEdge = true
			}
		}
	}
	if !importEdge {
		t.Error("missing import edge main -> util")
	}
	if !callEdge {
		t.Error("missing collapsed call edge main -> util")
	}
}

func TestExternalAndSelfEdgesExcluded(t *testing.T) {
	unit := analyze(t, "a.py", `
import os

def f():
    g()

def g():
    pass
`)
	calls := []models.CallGraphEdge{
		{Caller: "a.py::f", Callee: "a.py::g", Line: 4},
		{Caller: "a.py::f", Callee: models.ExternalCallee, Line: 5},
	}
	g := Build([]*analyzer.AnalysisUnit{unit}, calls)
	if len(g.Edges) != 0 {
		t.Errorf("self and external edges must not appear, got %v", g.Edges)
	}
}

func TestAggregateByDirectory(t *testing.T) {
	a := analyze(t, "svc/api/handlers.py", "def h():\n    pass\n")
	b := analyze(t, "svc/core/logic.py", "def l():\n    pass\n")
	calls := []models.CallGraphEdge{
		{Caller: "svc/api/handlers.py::h", Callee: "svc/core/logic.py::l", Line: 1},
	}
	g := Build([]*analyzer.AnalysisUnit{a, b}, calls)

	agg := AggregateByDirectory(g, 2)
	if len(agg.Nodes) != 2 {
		t.Fatalf("expected 2 directory nodes, got %v", agg.Nodes)
	}
	for _, node := range agg.Nodes {
		if node.Type != models.NodeDirectory {
			t.Errorf("expected directory node, got %s", node.Type)
		}
	}
	if len(agg.Edges) != 1 || agg.Edges[0].From != "svc/api" || agg.Edges[0].To != "svc/core" {
		t.Errorf("unexpected aggregated edges: %v", agg.Edges)
	}
}

func TestFilterByWeight(t *testing.T) {
	g := models.NewDependencyGraph()
	g.AddNode(models.GraphNode{ID: "a", Type: models.NodeModule})
	g.AddNode(models.GraphNode{ID: "b", Type: models.NodeModule})
	g.AddNode(models.GraphNode{ID: "c", Type: models.NodeModule})
	g.AddEdge(models.GraphEdge{From: "a", To: "b", Type: models.EdgeImport, Weight: 5})
	g.AddEdge(models.GraphEdge{From: "b", To: "c", Type: models.EdgeImport, Weight: 1})

	filtered := FilterByWeight(g, 3)
	if len(filtered.Edges) != 1 || filtered.Edges[0].Weight != 5 {
		t.Errorf("expected only the heavy edge, got %v", filtered.Edges)
	}
	if len(filtered.Nodes) != 2 {
		t.Errorf("expected isolated node dropped, got %v", filtered.Nodes)
	}
}

func TestSummarize(t *testing.T) {
	g := buildFixture(t)
	s := Summarize(g)

	if s.TotalNodes != 2 {
		t.Errorf("expected 2 nodes, got %d", s.TotalNodes)
	}
	if s.Components != 1 {
		t.Errorf("expected 1 component, got %d", s.Components)
	}
	if len(s.TopNodes) == 0 {
		t.Fatal("expected ranked nodes")
	}
	// util is imported and called; it should outrank main.
	if s.TopNodes[0].ID != "app/util.py" {
		t.Errorf("expected app/util.py ranked first, got %s", s.TopNodes[0].ID)
	}
}

func TestMermaidOutput(t *testing.T) {
	g := buildFixture(t)
	mermaid := g.ToMermaid()
	if mermaid == "" || mermaid[:8] != "graph TD" {
		t.Errorf("unexpected mermaid prefix: %q", mermaid)
	}
}
