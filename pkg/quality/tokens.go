// Package quality scores function complexity and detects duplicated code
// through normalized token hashing.
package quality

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NormalizeTokens maps a raw token stream to its canonical form:
// identifiers collapse to ID and literals to LIT, while keywords,
// operators and delimiters survive unchanged. Two blocks that differ only
// in naming, literal values or whitespace normalize identically.
func NormalizeTokens(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			continue
		}
		switch {
		case isKeyword(token):
			result = append(result, token)
		case isLiteral(token):
			result = append(result, "LIT")
		case isOperatorOrDelimiter(token):
			result = append(result, token)
		default:
			result = append(result, "ID")
		}
	}
	return result
}

// Fingerprint tokenizes a code block, normalizes it, and returns the
// xxhash of the normalized stream plus the statement count used for the
// minimum-size filter.
func Fingerprint(body string) (hash string, statements int) {
	tokens := Tokenize(stripComments(body))
	normalized := NormalizeTokens(tokens)
	statements = countStatements(body)
	h := xxhash.Sum64String(strings.Join(normalized, " "))
	return fmt.Sprintf("%016x", h), statements
}

// countStatements counts non-empty, non-comment lines.
func countStatements(body string) int {
	n := 0
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed) {
			continue
		}
		n++
	}
	return n
}

// stripComments drops whole-line comments before tokenizing.
func stripComments(body string) string {
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if isComment(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// isComment checks if a line is a comment.
func isComment(line string) bool {
	return strings.HasPrefix(line, "//") ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "/*") ||
		strings.HasPrefix(line, "*") ||
		strings.HasPrefix(line, "*/")
}

// keywords covers the analyzed languages.
var keywords = map[string]bool{
	// Python
	"def": true, "class": true, "if": true, "elif": true, "else": true,
	"for": true, "while": true, "try": true, "except": true, "finally": true,
	"with": true, "lambda": true, "yield": true, "assert": true, "raise": true,
	"pass": true, "del": true, "global": true, "nonlocal": true, "return": true,
	"and": true, "or": true, "not": true, "is": true, "in": true,
	"from": true, "import": true, "as": true, "break": true, "continue": true,
	"True": true, "False": true, "None": true, "async": true, "await": true,
	// JavaScript/TypeScript
	"function": true, "var": true, "let": true, "const": true, "new": true,
	"this": true, "super": true, "extends": true, "implements": true,
	"export": true, "default": true, "throw": true, "catch": true, "switch": true,
	"case": true, "instanceof": true, "typeof": true, "void": true,
	"delete": true, "do": true, "static": true, "interface": true, "enum": true,
	"type": true, "null": true, "undefined": true, "true": true, "false": true,
}

// isKeyword checks if a token is a language keyword.
func isKeyword(token string) bool {
	return keywords[token]
}

// isLiteral checks if a token is a literal value.
func isLiteral(token string) bool {
	if len(token) == 0 {
		return false
	}
	if token[0] == '"' || token[0] == '\'' || token[0] == '`' {
		return true
	}
	if token[0] >= '0' && token[0] <= '9' {
		return true
	}
	if len(token) > 1 && token[0] == '-' && token[1] >= '0' && token[1] <= '9' {
		return true
	}
	return false
}

// operators is a pre-allocated set of operators and delimiters.
var operators = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"=": true, "==": true, "!=": true, "<": true, ">": true,
	"<=": true, ">=": true, "&&": true, "||": true, "!": true,
	"&": true, "|": true, "^": true, "<<": true, ">>": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
	"++": true, "--": true, "->": true, "=>": true, "::": true,
	"..": true, "...": true, "?": true, ":": true, "??": true,
	"===": true, "!==": true, "**": true,
	"(": true, ")": true, "[": true, "]": true, "{": true, "}": true,
	",": true, ";": true, ".": true, "@": true,
}

// isOperatorOrDelimiter checks if a token is an operator or delimiter.
func isOperatorOrDelimiter(token string) bool {
	return operators[token]
}

// Tokenize splits code into tokens: string literals, numbers,
// identifiers, operators and delimiters. Whitespace never survives.
func Tokenize(content string) []string {
	var tokens []string
	runes := []rune(content)
	i := 0

	for i < len(runes) {
		c := runes[i]

		if isWhitespace(c) {
			i++
			continue
		}

		if c == '"' || c == '\'' || c == '`' {
			tokens = append(tokens, collectStringLiteral(runes, &i, c))
			continue
		}

		if isDigit(c) {
			tokens = append(tokens, collectNumber(runes, &i))
			continue
		}

		if isIdentifierStart(c) {
			tokens = append(tokens, collectIdentifier(runes, &i))
			continue
		}

		if op := collectOperator(runes, &i); op != "" {
			tokens = append(tokens, op)
			continue
		}

		tokens = append(tokens, string(c))
		i++
	}

	return tokens
}

// collectStringLiteral collects a string literal including quotes.
func collectStringLiteral(runes []rune, i *int, quote rune) string {
	var sb strings.Builder
	sb.WriteRune(runes[*i])
	*i++

	for *i < len(runes) {
		c := runes[*i]
		sb.WriteRune(c)
		*i++

		if c == quote {
			break
		}
		if c == '\\' && *i < len(runes) {
			sb.WriteRune(runes[*i])
			*i++
		}
	}

	return sb.String()
}

// collectNumber collects a numeric literal.
func collectNumber(runes []rune, i *int) string {
	var sb strings.Builder

	for *i < len(runes) {
		c := runes[*i]
		if isDigit(c) || c == '.' || c == '_' || c == 'x' || c == 'X' ||
			c == 'b' || c == 'B' || c == 'o' || c == 'O' ||
			(c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') ||
			c == 'e' || c == 'E' {
			sb.WriteRune(c)
			*i++
		} else {
			break
		}
	}

	return sb.String()
}

// collectIdentifier collects an identifier.
func collectIdentifier(runes []rune, i *int) string {
	var sb strings.Builder

	for *i < len(runes) {
		c := runes[*i]
		if isIdentifierChar(c) {
			sb.WriteRune(c)
			*i++
		} else {
			break
		}
	}

	return sb.String()
}

// collectOperator collects multi-character operators.
func collectOperator(runes []rune, i *int) string {
	if *i >= len(runes) {
		return ""
	}

	if *i+2 < len(runes) {
		op3 := string(runes[*i : *i+3])
		if op3 == "<<=" || op3 == ">>=" || op3 == "..." || op3 == "===" || op3 == "!==" {
			*i += 3
			return op3
		}
	}

	if *i+1 < len(runes) {
		op2 := string(runes[*i : *i+2])
		switch op2 {
		case "==", "!=", "<=", ">=", "&&", "||", "<<", ">>",
			"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=",
			"++", "--", "->", "=>", "::", "..", "??", "**":
			*i += 2
			return op2
		}
	}

	return ""
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isIdentifierStart(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentifierChar(c rune) bool {
	return isIdentifierStart(c) || isDigit(c)
}

func isWhitespace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
