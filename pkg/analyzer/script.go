package analyzer

import (
	"regexp"
	"strings"

	"github.com/vestige-dev/vestige/internal/cache"
	"github.com/vestige-dev/vestige/pkg/models"
	"github.com/vestige-dev/vestige/pkg/parser"
	"github.com/vestige-dev/vestige/pkg/quality"
)

// Script analyzes the curly-brace import/export family lexically: no
// grammar and no type resolution, just pattern matching over lines with
// brace-depth tracking. Extraction is best-effort by design.
type Script struct {
	lang parser.Language
}

// NewScript creates a script-family analyzer for js or ts.
func NewScript(lang parser.Language) *Script {
	return &Script{lang: lang}
}

var (
	reFuncDecl = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`)
	reFuncVar  = regexp.MustCompile(`^(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*(?::[^=]*)?=>|[A-Za-z_$][\w$]*\s*=>)`)
	reClass    = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`)
	reMethod   = regexp.MustCompile(`^(?:public\s+|private\s+|protected\s+|static\s+|async\s+|get\s+|set\s+)*([A-Za-z_$][\w$]*)\s*\([^;=]*\)\s*(?::[^={]*)?\{`)

	reImportFrom = regexp.MustCompile(`^import\s+(?:type\s+)?(.+?)\s+from\s+['"]([^'"]+)['"]`)
	reImportBare = regexp.MustCompile(`^import\s+['"]([^'"]+)['"]`)
	reRequire    = regexp.MustCompile(`(?:const|let|var)\s+(\{[^}]*\}|[A-Za-z_$][\w$]*)\s*=\s*require\(\s*['"]([^'"]+)['"]`)

	reExportList    = regexp.MustCompile(`^export\s*\{([^}]*)\}`)
	reExportDefault = regexp.MustCompile(`^export\s+default\s+([A-Za-z_$][\w$]*)\s*;?\s*$`)
	reModuleExports = regexp.MustCompile(`^module\.exports\s*=\s*\{([^}]*)\}`)

	reCallSite = regexp.MustCompile(`([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*\(`)
)

// callNoise are tokens that look like call targets to the regex but are
// control flow or declarations.
var callNoise = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "typeof": true, "new": true,
	"constructor": true, "super": true, "import": true, "require": true,
	"async": true, "await": true,
}

// openFunc tracks a function whose body is still open.
type openFunc struct {
	qualified string
	startLine int
	depth     int
	bodyStart int
}

// Analyze lexically extracts functions, imports, exports and call sites.
func (a *Script) Analyze(path string, content []byte) (*AnalysisUnit, error) {
	unit := &AnalysisUnit{
		File: models.FileRecord{
			Path:        path,
			Size:        int64(len(content)),
			Fingerprint: cache.HashBytes(content),
			Language:    string(a.lang),
			Status:      models.StatusOK,
		},
	}

	lines := strings.Split(string(content), "\n")
	exported := make(map[string]bool)

	depth := 0
	var funcStack []openFunc
	var classStack []struct {
		name  string
		depth int
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		lineNo := uint32(i + 1)

		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "/*") {
			depth += braceDelta(line)
			continue
		}

		// Imports first: an import line never declares a function.
		if m := reImportFrom.FindStringSubmatch(line); m != nil {
			a.recordImports(unit, m[1], m[2], lineNo)
			continue
		}
		if m := reImportBare.FindStringSubmatch(line); m != nil {
			unit.Imports = append(unit.Imports, models.ImportRecord{
				File:   path,
				Module: m[1],
				Line:   lineNo,
			})
			continue
		}
		if m := reRequire.FindStringSubmatch(line); m != nil {
			a.recordRequire(unit, m[1], m[2], lineNo)
		}

		// Export lists mark re-exported names.
		if m := reExportList.FindStringSubmatch(line); m != nil {
			for _, name := range splitNameList(m[1]) {
				exported[name] = true
			}
		}
		if m := reExportDefault.FindStringSubmatch(line); m != nil {
			exported[m[1]] = true
		}
		if m := reModuleExports.FindStringSubmatch(line); m != nil {
			for _, name := range splitNameList(m[1]) {
				exported[name] = true
			}
		}

		// Class scope.
		if m := reClass.FindStringSubmatch(line); m != nil {
			classStack = append(classStack, struct {
				name  string
				depth int
			}{m[1], depth})
		}

		// Function declarations in priority order.
		var declared string
		if m := reFuncDecl.FindStringSubmatch(line); m != nil {
			declared = m[1]
		} else if m := reFuncVar.FindStringSubmatch(line); m != nil {
			declared = m[1]
		} else if len(classStack) > 0 && depth == classStack[len(classStack)-1].depth+1 {
			if m := reMethod.FindStringSubmatch(line); m != nil && !callNoise[m[1]] {
				declared = classStack[len(classStack)-1].name + "." + m[1]
			}
		}

		if declared != "" {
			funcStack = append(funcStack, openFunc{
				qualified: declared,
				startLine: i + 1,
				depth:     depth,
				bodyStart: i,
			})
			if strings.HasPrefix(line, "export") {
				exported[lastSegment(declared)] = true
			}
		}

		// Call sites, attributed to the innermost open function.
		caller := ""
		if len(funcStack) > 0 {
			caller = funcStack[len(funcStack)-1].qualified
		}
		for _, m := range reCallSite.FindAllStringSubmatch(line, -1) {
			target := m[1]
			head := target
			if idx := strings.Index(head, "."); idx >= 0 {
				head = head[:idx]
			}
			if callNoise[head] || target == declared || target == lastSegment(declared) {
				continue
			}
			unit.Calls = append(unit.Calls, models.CallSite{
				File:   path,
				Caller: caller,
				Target: target,
				Line:   lineNo,
			})
		}

		depth += braceDelta(line)

		// Close functions and classes whose bodies ended on this line.
		for len(funcStack) > 0 && depth <= funcStack[len(funcStack)-1].depth {
			top := funcStack[len(funcStack)-1]
			funcStack = funcStack[:len(funcStack)-1]

			// Single-line arrows without braces close immediately.
			end := i
			if end < top.bodyStart {
				end = top.bodyStart
			}
			a.recordFunction(unit, top, lines[top.bodyStart:end+1], uint32(end+1))
		}
		for len(classStack) > 0 && depth <= classStack[len(classStack)-1].depth {
			classStack = classStack[:len(classStack)-1]
		}
	}

	// Close anything left open at EOF.
	for len(funcStack) > 0 {
		top := funcStack[len(funcStack)-1]
		funcStack = funcStack[:len(funcStack)-1]
		a.recordFunction(unit, top, lines[top.bodyStart:], uint32(len(lines)))
	}

	for _, fn := range unit.Functions {
		if exported[lastSegment(fn.Name)] {
			unit.addHeuristic(fn.Name, models.HeuristicReexport)
		}
	}

	return unit, nil
}

// recordFunction finalizes a closed function: record, metrics, fragment.
func (a *Script) recordFunction(unit *AnalysisUnit, fn openFunc, body []string, endLine uint32) {
	id := models.FunctionID(unit.File.Path, fn.qualified)
	for _, existing := range unit.Functions {
		if existing.ID == id {
			unit.Diagnostics = append(unit.Diagnostics, models.Diagnostic{
				Path:    unit.File.Path,
				Stage:   "extract",
				Message: "duplicate definition of " + fn.qualified + ", first wins",
			})
			return
		}
	}

	record := models.FunctionRecord{
		ID:        id,
		Name:      fn.qualified,
		File:      unit.File.Path,
		StartLine: uint32(fn.startLine),
		EndLine:   endLine,
	}
	unit.Functions = append(unit.Functions, record)

	bodyText := strings.Join(body, "\n")
	metrics := quality.ScoreScript(bodyText)
	hash, statements := quality.Fingerprint(bodyText)
	metrics.Statements = statements

	if unit.Metrics == nil {
		unit.Metrics = make(map[string]models.FunctionMetrics)
	}
	unit.Metrics[fn.qualified] = metrics
	unit.Fragments = append(unit.Fragments, quality.Fragment{
		File:       unit.File.Path,
		Function:   fn.qualified,
		StartLine:  record.StartLine,
		EndLine:    endLine,
		Hash:       hash,
		Statements: statements,
	})
}

// recordImports expands an import clause: default, namespace, and named
// specifiers with optional aliases.
func (a *Script) recordImports(unit *AnalysisUnit, clause, module string, line uint32) {
	clause = strings.TrimSpace(clause)

	// import * as ns from 'm'
	if strings.HasPrefix(clause, "*") {
		alias := ""
		if idx := strings.Index(clause, " as "); idx >= 0 {
			alias = strings.TrimSpace(clause[idx+4:])
		}
		unit.Imports = append(unit.Imports, models.ImportRecord{
			File:     unit.File.Path,
			Module:   module,
			Alias:    alias,
			Wildcard: true,
			Line:     line,
		})
		return
	}

	// Split "Default, {a, b as c}" into the default part and the braces.
	braceStart := strings.Index(clause, "{")
	if braceStart < 0 {
		unit.Imports = append(unit.Imports, models.ImportRecord{
			File:   unit.File.Path,
			Module: module,
			Symbol: "default",
			Alias:  clause,
			Line:   line,
		})
		return
	}

	if def := strings.TrimSuffix(strings.TrimSpace(clause[:braceStart]), ","); def != "" {
		def = strings.TrimSuffix(strings.TrimSpace(def), ",")
		if def != "" {
			unit.Imports = append(unit.Imports, models.ImportRecord{
				File:   unit.File.Path,
				Module: module,
				Symbol: "default",
				Alias:  def,
				Line:   line,
			})
		}
	}

	braceEnd := strings.Index(clause, "}")
	if braceEnd < 0 {
		braceEnd = len(clause)
	}
	for _, name := range splitNameList(clause[braceStart+1 : braceEnd]) {
		symbol, alias := name, ""
		if idx := strings.Index(name, " as "); idx >= 0 {
			symbol = strings.TrimSpace(name[:idx])
			alias = strings.TrimSpace(name[idx+4:])
		}
		unit.Imports = append(unit.Imports, models.ImportRecord{
			File:   unit.File.Path,
			Module: module,
			Symbol: symbol,
			Alias:  alias,
			Line:   line,
		})
	}
}

// recordRequire handles const x = require('m') and destructured forms.
func (a *Script) recordRequire(unit *AnalysisUnit, binding, module string, line uint32) {
	binding = strings.TrimSpace(binding)
	if strings.HasPrefix(binding, "{") {
		for _, name := range splitNameList(strings.Trim(binding, "{}")) {
			symbol, alias := name, ""
			if idx := strings.Index(name, ":"); idx >= 0 {
				symbol = strings.TrimSpace(name[:idx])
				alias = strings.TrimSpace(name[idx+1:])
			}
			unit.Imports = append(unit.Imports, models.ImportRecord{
				File:   unit.File.Path,
				Module: module,
				Symbol: symbol,
				Alias:  alias,
				Line:   line,
			})
		}
		return
	}
	unit.Imports = append(unit.Imports, models.ImportRecord{
		File:   unit.File.Path,
		Module: module,
		Alias:  binding,
		Line:   line,
	})
}

// splitNameList splits "a, b as c" style lists.
func splitNameList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lastSegment(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// braceDelta counts net brace depth change, skipping string contents.
func braceDelta(line string) int {
	delta := 0
	var quote rune
	escaped := false
	for _, c := range line {
		if escaped {
			escaped = false
			continue
		}
		if quote != 0 {
			if c == '\\' {
				escaped = true
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '{':
			delta++
		case '}':
			delta--
		}
	}
	return delta
}
