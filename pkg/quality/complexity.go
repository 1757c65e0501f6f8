package quality

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/vestige-dev/vestige/pkg/models"
)

// pythonDecisionNodes are the AST node types that add a decision point.
var pythonDecisionNodes = map[string]bool{
	"if_statement":           true,
	"elif_clause":            true,
	"for_statement":          true,
	"while_statement":        true,
	"except_clause":          true,
	"conditional_expression": true,
	"boolean_operator":       true,
	"case_clause":            true,
}

// pythonNestingNodes are the node types that deepen nesting.
var pythonNestingNodes = map[string]bool{
	"if_statement":    true,
	"for_statement":   true,
	"while_statement": true,
	"try_statement":   true,
	"with_statement":  true,
	"match_statement": true,
}

// ScorePython computes the complexity score for a Python function node.
// The score starts at 1 and adds one point per decision node plus a bonus
// for nesting beyond the first level, so it grows monotonically with
// every added branch.
func ScorePython(fn *sitter.Node, source []byte) models.FunctionMetrics {
	metrics := models.FunctionMetrics{
		Complexity: 1,
		Lines:      int(fn.EndPoint().Row-fn.StartPoint().Row) + 1,
	}

	var walk func(node *sitter.Node, depth int)
	walk = func(node *sitter.Node, depth int) {
		if node == nil {
			return
		}

		nodeType := node.Type()
		if pythonDecisionNodes[nodeType] {
			metrics.Complexity++
		}
		if nodeType == "function_definition" && !node.Equal(fn) {
			// Nested defs are scored on their own.
			return
		}

		next := depth
		if pythonNestingNodes[nodeType] {
			next = depth + 1
			if next > metrics.MaxNesting {
				metrics.MaxNesting = next
			}
		}

		for i := range int(node.ChildCount()) {
			walk(node.Child(i), next)
		}
	}
	walk(fn, 0)

	if metrics.MaxNesting > 1 {
		metrics.Complexity += uint32(metrics.MaxNesting - 1)
	}
	return metrics
}

// scriptDecisionTokens add a decision point in the script family.
var scriptDecisionTokens = map[string]bool{
	"if":    true,
	"for":   true,
	"while": true,
	"case":  true,
	"catch": true,
	"&&":    true,
	"||":    true,
	"?":     true,
	"??":    true,
}

// ScoreScript computes the complexity score for a curly-brace function
// body from its token stream: no grammar, just decision keyword and
// operator counts plus brace-depth nesting.
func ScoreScript(body string) models.FunctionMetrics {
	metrics := models.FunctionMetrics{Complexity: 1}

	tokens := Tokenize(stripComments(body))
	depth := 0
	for _, tok := range tokens {
		switch tok {
		case "{":
			depth++
			if depth > metrics.MaxNesting {
				metrics.MaxNesting = depth
			}
		case "}":
			if depth > 0 {
				depth--
			}
		default:
			if scriptDecisionTokens[tok] {
				metrics.Complexity++
			}
		}
	}

	metrics.Lines = strings.Count(body, "\n") + 1
	if metrics.MaxNesting > 1 {
		metrics.Complexity += uint32(metrics.MaxNesting - 1)
	}
	return metrics
}
