package analyzer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/vestige-dev/vestige/internal/cache"
	"github.com/vestige-dev/vestige/pkg/models"
	"github.com/vestige-dev/vestige/pkg/parser"
	"github.com/vestige-dev/vestige/pkg/quality"
)

// Python analyzes indentation-scoped source through a tree-sitter
// grammar. It extracts the full symbol set plus the liveness hints that
// matter for dynamically dispatched code.
type Python struct{}

// NewPython creates a Python analyzer.
func NewPython() *Python {
	return &Python{}
}

// registrationDecorators are decorator name fragments that register a
// function with a framework, making it callable from outside the
// project's own call graph.
var registrationDecorators = []string{
	"route", "get", "post", "put", "delete", "patch",
	"command", "register", "task", "fixture", "handler",
	"subscribe", "listener", "receiver", "hook",
}

// dynamicAccessCalls reach into the module at runtime by computed name.
var dynamicAccessCalls = map[string]bool{
	"getattr":    true,
	"setattr":    true,
	"hasattr":    true,
	"eval":       true,
	"exec":       true,
	"__import__": true,
	"globals":    true,
	"locals":     true,
	"vars":       true,
}

// Analyze parses one Python file into an AnalysisUnit. A tree with parse
// errors degrades the file status but keeps every record extracted.
func (a *Python) Analyze(path string, content []byte) (*AnalysisUnit, error) {
	unit := &AnalysisUnit{
		File: models.FileRecord{
			Path:        path,
			Size:        int64(len(content)),
			Fingerprint: cache.HashBytes(content),
			Language:    string(parser.LangPython),
			Status:      models.StatusOK,
		},
	}

	p := parser.New()
	defer p.Close()

	result, err := p.Parse(content, parser.LangPython, path)
	if err != nil {
		unit.File.Status = models.StatusParseError
		unit.Diagnostics = append(unit.Diagnostics, models.Diagnostic{
			Path:    path,
			Stage:   "parse",
			Message: err.Error(),
		})
		return unit, nil
	}

	root := result.Tree.RootNode()
	if root.HasError() {
		unit.File.Status = models.StatusDegraded
		unit.Diagnostics = append(unit.Diagnostics, models.Diagnostic{
			Path:    path,
			Stage:   "parse",
			Message: "syntax errors present, partial records extracted",
		})
	}

	a.extractDefinitions(unit, root, content, nil)
	a.extractImports(unit, root, content)
	a.extractCalls(unit, root, content)
	a.markDispatchTables(unit, root, content)
	a.markReexports(unit, root, content)

	return unit, nil
}

// extractDefinitions walks the tree collecting functions with dotted
// qualified names, scoring each body as it goes. scope carries the
// enclosing class/function names.
func (a *Python) extractDefinitions(unit *AnalysisUnit, node *sitter.Node, source []byte, scope []string) {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "function_definition":
			a.recordFunction(unit, child, source, scope)
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil {
				switch def.Type() {
				case "function_definition":
					a.recordFunction(unit, def, source, scope)
				case "class_definition":
					a.recordClass(unit, def, source, scope)
				}
			}
		case "class_definition":
			a.recordClass(unit, child, source, scope)
		default:
			a.extractDefinitions(unit, child, source, scope)
		}
	}
}

func (a *Python) recordClass(unit *AnalysisUnit, node *sitter.Node, source []byte, scope []string) {
	name := parser.GetNodeText(node.ChildByFieldName("name"), source)
	if name == "" {
		return
	}
	if body := node.ChildByFieldName("body"); body != nil {
		inner := append(append([]string{}, scope...), name)
		a.extractDefinitions(unit, body, source, inner)
	}
}

func (a *Python) recordFunction(unit *AnalysisUnit, node *sitter.Node, source []byte, scope []string) {
	name := parser.GetNodeText(node.ChildByFieldName("name"), source)
	if name == "" {
		return
	}

	qualified := strings.Join(append(append([]string{}, scope...), name), ".")
	id := models.FunctionID(unit.File.Path, qualified)

	for _, fn := range unit.Functions {
		if fn.ID == id {
			unit.Diagnostics = append(unit.Diagnostics, models.Diagnostic{
				Path:    unit.File.Path,
				Stage:   "extract",
				Message: "duplicate definition of " + qualified + ", first wins",
			})
			return
		}
	}

	record := models.FunctionRecord{
		ID:        id,
		Name:      qualified,
		File:      unit.File.Path,
		StartLine: node.StartPoint().Row + 1,
		EndLine:   node.EndPoint().Row + 1,
	}
	unit.Functions = append(unit.Functions, record)

	// Liveness hints from decorators and naming.
	if a.hasRegistrationDecorator(node, source) {
		unit.addHeuristic(qualified, models.HeuristicDecorator)
	}
	if isExternallyInvokedName(name) {
		unit.addHeuristic(qualified, models.HeuristicNaming)
	}

	// Quality: score and fingerprint the body.
	metrics := quality.ScorePython(node, source)
	body := node.ChildByFieldName("body")
	bodyText := parser.GetNodeText(body, source)
	hash, statements := quality.Fingerprint(bodyText)
	metrics.Statements = statements

	if unit.Metrics == nil {
		unit.Metrics = make(map[string]models.FunctionMetrics)
	}
	unit.Metrics[qualified] = metrics
	unit.Fragments = append(unit.Fragments, quality.Fragment{
		File:       unit.File.Path,
		Function:   qualified,
		StartLine:  record.StartLine,
		EndLine:    record.EndLine,
		Hash:       hash,
		Statements: statements,
	})

	// Nested defs get their own records, scoped under this one.
	if body != nil {
		inner := append(append([]string{}, scope...), name)
		a.extractDefinitions(unit, body, source, inner)
	}
}

// hasRegistrationDecorator checks the decorators wrapping a definition.
func (a *Python) hasRegistrationDecorator(fn *sitter.Node, source []byte) bool {
	parent := fn.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return false
	}
	for i := range int(parent.ChildCount()) {
		child := parent.Child(i)
		if child == nil || child.Type() != "decorator" {
			continue
		}
		text := strings.ToLower(parser.GetNodeText(child, source))
		for _, frag := range registrationDecorators {
			if strings.Contains(text, frag) {
				return true
			}
		}
	}
	return false
}

// isExternallyInvokedName recognizes naming-convention roots: test
// discovery, visitor dispatch, and dunder protocol methods.
func isExternallyInvokedName(name string) bool {
	if strings.HasPrefix(name, "test_") || strings.HasPrefix(name, "visit_") {
		return true
	}
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4
}

// extractImports records import and from-import statements.
func (a *Python) extractImports(unit *AnalysisUnit, root *sitter.Node, source []byte) {
	parser.WalkTyped(root, source, func(node *sitter.Node, nodeType string, source []byte) bool {
		switch nodeType {
		case "import_statement":
			// import m [as a], possibly comma-separated
			for i := range int(node.ChildCount()) {
				child := node.Child(i)
				if child == nil {
					continue
				}
				switch child.Type() {
				case "dotted_name":
					unit.Imports = append(unit.Imports, models.ImportRecord{
						File:   unit.File.Path,
						Module: parser.GetNodeText(child, source),
						Line:   node.StartPoint().Row + 1,
					})
				case "aliased_import":
					module := parser.GetNodeText(child.ChildByFieldName("name"), source)
					alias := parser.GetNodeText(child.ChildByFieldName("alias"), source)
					unit.Imports = append(unit.Imports, models.ImportRecord{
						File:   unit.File.Path,
						Module: module,
						Alias:  alias,
						Line:   node.StartPoint().Row + 1,
					})
				}
			}
			return false
		case "import_from_statement":
			module := parser.GetNodeText(node.ChildByFieldName("module_name"), source)
			line := node.StartPoint().Row + 1
			wildcard := false
			var named []models.ImportRecord
			for i := range int(node.ChildCount()) {
				child := node.Child(i)
				if child == nil {
					continue
				}
				switch child.Type() {
				case "wildcard_import":
					wildcard = true
				case "dotted_name":
					// The first dotted_name is the module itself.
					text := parser.GetNodeText(child, source)
					if text == module {
						continue
					}
					named = append(named, models.ImportRecord{
						File:   unit.File.Path,
						Module: module,
						Symbol: text,
						Line:   line,
					})
				case "aliased_import":
					symbol := parser.GetNodeText(child.ChildByFieldName("name"), source)
					alias := parser.GetNodeText(child.ChildByFieldName("alias"), source)
					named = append(named, models.ImportRecord{
						File:   unit.File.Path,
						Module: module,
						Symbol: symbol,
						Alias:  alias,
						Line:   line,
					})
				}
			}
			if wildcard {
				unit.Imports = append(unit.Imports, models.ImportRecord{
					File:     unit.File.Path,
					Module:   module,
					Wildcard: true,
					Line:     line,
				})
			}
			unit.Imports = append(unit.Imports, named...)
			return false
		}
		return true
	})
}

// extractCalls records every call expression with its enclosing function.
func (a *Python) extractCalls(unit *AnalysisUnit, root *sitter.Node, source []byte) {
	var walk func(node *sitter.Node, scope []string)
	walk = func(node *sitter.Node, scope []string) {
		if node == nil {
			return
		}

		switch node.Type() {
		case "function_definition":
			name := parser.GetNodeText(node.ChildByFieldName("name"), source)
			scope = append(scope, name)
		case "class_definition":
			name := parser.GetNodeText(node.ChildByFieldName("name"), source)
			scope = append(scope, name)
		case "call":
			fnNode := node.ChildByFieldName("function")
			target := parser.GetNodeText(fnNode, source)
			if target != "" {
				caller := strings.Join(scope, ".")
				unit.Calls = append(unit.Calls, models.CallSite{
					File:   unit.File.Path,
					Caller: caller,
					Target: target,
					Line:   node.StartPoint().Row + 1,
				})
				if dynamicAccessCalls[target] {
					unit.DynamicAccess = true
				}
			}
		}

		for i := range int(node.ChildCount()) {
			walk(node.Child(i), scope)
		}
	}
	walk(root, nil)
}

// markDispatchTables flags functions referenced as values of
// module-level dictionary literals. A name that appears as a mapping
// value is presumed dispatched at runtime.
func (a *Python) markDispatchTables(unit *AnalysisUnit, root *sitter.Node, source []byte) {
	names := make(map[string]bool)

	for i := range int(root.ChildCount()) {
		stmt := root.Child(i)
		if stmt == nil || stmt.Type() != "expression_statement" {
			continue
		}
		for j := range int(stmt.ChildCount()) {
			assign := stmt.Child(j)
			if assign == nil || assign.Type() != "assignment" {
				continue
			}
			right := assign.ChildByFieldName("right")
			if right == nil || right.Type() != "dictionary" {
				continue
			}
			for _, pair := range parser.FindNodesByType(right, source, "pair") {
				value := pair.ChildByFieldName("value")
				if value == nil {
					continue
				}
				switch value.Type() {
				case "identifier":
					names[parser.GetNodeText(value, source)] = true
				case "attribute":
					// e.g. Handler.process — take the final attribute
					attr := parser.GetNodeText(value.ChildByFieldName("attribute"), source)
					if attr != "" {
						names[attr] = true
					}
				}
			}
		}
	}

	if len(names) == 0 {
		return
	}
	for _, fn := range unit.Functions {
		base := fn.Name
		if idx := strings.LastIndex(base, "."); idx >= 0 {
			base = base[idx+1:]
		}
		if names[base] {
			unit.addHeuristic(fn.Name, models.HeuristicDispatchTable)
		}
	}
}

// markReexports flags names listed in a module-level __all__.
func (a *Python) markReexports(unit *AnalysisUnit, root *sitter.Node, source []byte) {
	exported := make(map[string]bool)

	for _, assign := range parser.FindNodesByType(root, source, "assignment") {
		left := assign.ChildByFieldName("left")
		if parser.GetNodeText(left, source) != "__all__" {
			continue
		}
		right := assign.ChildByFieldName("right")
		if right == nil || right.Type() != "list" {
			continue
		}
		for _, s := range parser.FindNodesByType(right, source, "string") {
			name := strings.Trim(parser.GetNodeText(s, source), `"'`)
			if name != "" {
				exported[name] = true
			}
		}
	}

	if len(exported) == 0 {
		return
	}
	for _, fn := range unit.Functions {
		if exported[fn.Name] {
			unit.addHeuristic(fn.Name, models.HeuristicReexport)
		}
	}
}
