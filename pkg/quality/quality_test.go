package quality

import (
	"testing"

	"github.com/vestige-dev/vestige/pkg/models"
	"github.com/vestige-dev/vestige/pkg/parser"
)

func TestFingerprintWhitespaceInsensitive(t *testing.T) {
	a := "total = 0\nfor x in items:\n    total += x\nreturn total"
	b := "total=0\nfor x in items:\n        total+=x\n\nreturn total"

	hashA, _ := Fingerprint(a)
	hashB, _ := Fingerprint(b)
	if hashA != hashB {
		t.Error("bodies differing only in whitespace must hash equal")
	}
}

func TestFingerprintIdentifierInsensitive(t *testing.T) {
	a := "count = 0\nfor item in rows:\n    count += item\nreturn count"
	b := "n = 0\nfor r in values:\n    n += r\nreturn n"

	hashA, _ := Fingerprint(a)
	hashB, _ := Fingerprint(b)
	if hashA != hashB {
		t.Error("bodies differing only in identifiers must hash equal")
	}
}

func TestFingerprintDistinguishesStructure(t *testing.T) {
	a := "if x:\n    return 1\nreturn 2"
	b := "while x:\n    return 1\nreturn 2"

	hashA, _ := Fingerprint(a)
	hashB, _ := Fingerprint(b)
	if hashA == hashB {
		t.Error("different keywords must produce different hashes")
	}
}

func TestFingerprintCountsStatements(t *testing.T) {
	body := "x = 1\n\n# comment\ny = 2\nreturn x + y"
	_, statements := Fingerprint(body)
	if statements != 3 {
		t.Errorf("expected 3 statements, got %d", statements)
	}
}

func TestClusterRequiresTwoInstances(t *testing.T) {
	frags := []Fragment{
		{File: "a.py", Function: "f", StartLine: 1, EndLine: 5, Hash: "h1", Statements: 4},
		{File: "b.py", Function: "g", StartLine: 1, EndLine: 5, Hash: "h2", Statements: 4},
	}
	if clusters := Cluster(frags, 3); len(clusters) != 0 {
		t.Errorf("expected no singleton clusters, got %v", clusters)
	}
}

func TestClusterGroupsEqualHashes(t *testing.T) {
	frags := []Fragment{
		{File: "b.py", Function: "g", StartLine: 10, EndLine: 15, Hash: "h1", Statements: 4},
		{File: "a.py", Function: "f", StartLine: 1, EndLine: 5, Hash: "h1", Statements: 4},
		{File: "c.py", Function: "h", StartLine: 3, EndLine: 8, Hash: "h1", Statements: 4},
	}
	clusters := Cluster(frags, 3)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].Instances) != 3 {
		t.Fatalf("expected 3 instances, got %d", len(clusters[0].Instances))
	}
	// Deterministic ordering by file
	if clusters[0].Instances[0].File != "a.py" {
		t.Errorf("expected a.py first, got %s", clusters[0].Instances[0].File)
	}
}

func TestClusterSkipsSmallFragments(t *testing.T) {
	frags := []Fragment{
		{File: "a.py", Function: "f", Hash: "h1", Statements: 1},
		{File: "b.py", Function: "g", Hash: "h1", Statements: 1},
	}
	if clusters := Cluster(frags, 3); len(clusters) != 0 {
		t.Errorf("fragments below the statement floor must not cluster, got %v", clusters)
	}
}

func TestScorePythonMonotonic(t *testing.T) {
	p := parser.New()
	defer p.Close()

	simple := "def f(x):\n    return x\n"
	branchy := "def f(x):\n    if x > 0:\n        return 1\n    return 0\n"
	nested := "def f(x):\n    for i in x:\n        if i > 0 and i < 10:\n            return i\n    return 0\n"

	score := func(src string) models.FunctionMetrics {
		result, err := p.Parse([]byte(src), parser.LangPython, "t.py")
		if err != nil {
			t.Fatal(err)
		}
		fns := parser.FindNodesByType(result.Tree.RootNode(), []byte(src), "function_definition")
		if len(fns) != 1 {
			t.Fatalf("expected 1 function, got %d", len(fns))
		}
		return ScorePython(fns[0], []byte(src))
	}

	s1 := score(simple)
	s2 := score(branchy)
	s3 := score(nested)

	if s1.Complexity != 1 {
		t.Errorf("straight-line function should score 1, got %d", s1.Complexity)
	}
	if s2.Complexity <= s1.Complexity {
		t.Errorf("adding a branch must raise the score: %d <= %d", s2.Complexity, s1.Complexity)
	}
	if s3.Complexity <= s2.Complexity {
		t.Errorf("nesting and boolean operators must raise the score: %d <= %d", s3.Complexity, s2.Complexity)
	}
	if s3.MaxNesting < 2 {
		t.Errorf("expected nesting >= 2, got %d", s3.MaxNesting)
	}
}

func TestScoreScript(t *testing.T) {
	simple := "return x;"
	branchy := "if (x > 0) {\n  return 1;\n}\nreturn 0;"
	nested := "for (const i of xs) {\n  if (i > 0 && i < 10) {\n    return i;\n  }\n}\nreturn 0;"

	s1 := ScoreScript(simple)
	s2 := ScoreScript(branchy)
	s3 := ScoreScript(nested)

	if s1.Complexity != 1 {
		t.Errorf("straight-line body should score 1, got %d", s1.Complexity)
	}
	if s2.Complexity <= s1.Complexity {
		t.Errorf("adding a branch must raise the score")
	}
	if s3.Complexity <= s2.Complexity {
		t.Errorf("nesting and boolean operators must raise the score")
	}
}
