package simulate

import (
	"errors"
	"testing"

	"github.com/vestige-dev/vestige/pkg/analyzer"
	"github.com/vestige-dev/vestige/pkg/callgraph"
	"github.com/vestige-dev/vestige/pkg/depgraph"
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

// buildReport runs the cross-file stages over in-memory sources.
func buildReport(t *testing.T, sources map[string]string) *models.ScanReport {
	t.Helper()

	units := make([]*analyzer.AnalysisUnit, 0, len(sources))
	report := &models.ScanReport{Root: "."}
	for path, src := range sources {
		unit := analyze(t, path, src)
		units = append(units, unit)
		report.Files = append(report.Files, unit.File)
	}

	cg := callgraph.Build(units, callgraph.Options{})
	report.Functions = cg.Reports
	report.Edges = cg.Edges
	report.Graph = depgraph.Build(units, cg.Edges)
	return report
}

func TestParseTarget(t *testing.T) {
	if got := ParseTarget("a.py"); got.File != "a.py" || got.Function != "" {
		t.Errorf("file target parsed as %+v", got)
	}
	if got := ParseTarget("a.py::Cls.method"); got.File != "a.py" || got.Function != "Cls.method" {
		t.Errorf("function target parsed as %+v", got)
	}
}

func TestRemoveImportedFunction(t *testing.T) {
	// Scenario: b imports foo from a and calls it. Removing a::foo must
	// list b as a broken importer and b's caller as impacted.
	report := buildReport(t, map[string]string{
		"a.py": `
def foo():
    return 1
`,
		"b.py": `
from a import foo

def use_it():
    foo()
`,
	})

	result, err := Simulate(report, ParseTarget("a.py::foo"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Resolved {
		t.Fatal("target should resolve")
	}

	if len(result.BrokenImports) != 1 || result.BrokenImports[0].File != "b.py" {
		t.Errorf("broken imports = %+v, want b.py", result.BrokenImports)
	}

	if len(result.Impacted) != 1 {
		t.Fatalf("impacted = %+v, want one caller", result.Impacted)
	}
	imp := result.Impacted[0]
	if imp.ID != "b.py::use_it" || imp.Distance != 1 {
		t.Errorf("impacted = %+v", imp)
	}
	if imp.Name != "use_it" || imp.File != "b.py" {
		t.Errorf("impacted metadata = %+v", imp)
	}
}

func TestRemoveWholeFile(t *testing.T) {
	report := buildReport(t, map[string]string{
		"lib.py": `
def one():
    return 1

def two():
    return 2
`,
		"app.py": `
from lib import one

def run():
    one()
`,
	})

	result, err := Simulate(report, ParseTarget("lib.py"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !result.Resolved {
		t.Fatal("file target should resolve")
	}
	if len(result.Impacted) != 1 || result.Impacted[0].ID != "app.py::run" {
		t.Errorf("impacted = %+v", result.Impacted)
	}
}

func TestTransitiveClosureIsDepthBounded(t *testing.T) {
	report := buildReport(t, map[string]string{
		"chain.py": `
def d0():
    return 1

def d1():
    d0()

def d2():
    d1()

def d3():
    d2()
`,
	})

	result, err := Simulate(report, ParseTarget("chain.py::d0"), Options{MaxDepth: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Impacted) != 2 {
		t.Fatalf("impacted = %+v, want d1 and d2 only", result.Impacted)
	}
	for _, imp := range result.Impacted {
		if imp.Distance > 2 {
			t.Errorf("impacted beyond depth bound: %+v", imp)
		}
	}
	if !result.Truncated {
		t.Error("walk past the bound must set Truncated")
	}
}

func TestUnresolvedTargetIsAdvisory(t *testing.T) {
	report := buildReport(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
	})

	result, err := Simulate(report, ParseTarget("missing.py::nope"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Resolved {
		t.Error("missing target must report unresolved")
	}
	if len(result.Impacted) != 0 || len(result.BrokenImports) != 0 {
		t.Errorf("unresolved result must be empty: %+v", result)
	}
}

func TestUnresolvedTargetStrictMode(t *testing.T) {
	report := buildReport(t, map[string]string{
		"a.py": "def foo():\n    return 1\n",
	})

	_, err := Simulate(report, ParseTarget("missing.py"), Options{Strict: true})
	if !errors.Is(err, ErrUnresolvedTarget) {
		t.Errorf("expected ErrUnresolvedTarget, got %v", err)
	}
}
