package models

// FunctionRecord is a parsed function or method definition. The qualified
// name is the dotted path inside the file (e.g. "Handler.process" for a
// method, "process" for a top-level function). A FunctionRecord is unique
// per (file, qualified name); duplicate definitions are reported as
// diagnostics and the first definition wins.
type FunctionRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	File      string `json:"file"`
	StartLine uint32 `json:"start_line"`
	EndLine   uint32 `json:"end_line"`
}

// FunctionID builds the project-unique id for a function.
func FunctionID(file, qualified string) string {
	return file + "::" + qualified
}

// ImportRecord is one imported module or symbol.
type ImportRecord struct {
	File     string `json:"file"`
	Module   string `json:"module"`
	Symbol   string `json:"symbol,omitempty"`
	Alias    string `json:"alias,omitempty"`
	Wildcard bool   `json:"wildcard,omitempty"`
	Line     uint32 `json:"line"`
}

// CallSite is a textual call expression. Caller is the qualified name of
// the enclosing function, or empty for module scope. Target is the
// referenced name exactly as written.
type CallSite struct {
	File   string `json:"file"`
	Caller string `json:"caller,omitempty"`
	Target string `json:"target"`
	Line   uint32 `json:"line"`
}

// Liveness is the four-valued classification of whether a function is used.
// An unresolved call site is never proof of liveness or deadness on its own.
type Liveness string

const (
	LivenessLive      Liveness = "live"
	LivenessHeuristic Liveness = "live_heuristic"
	LivenessAmbiguous Liveness = "ambiguous"
	LivenessUnused    Liveness = "unused"
)

// HeuristicReason explains why a function was flagged live without a
// resolved call edge.
type HeuristicReason string

const (
	HeuristicDispatchTable HeuristicReason = "dispatch_table"
	HeuristicDecorator     HeuristicReason = "registration_decorator"
	HeuristicNaming        HeuristicReason = "naming_convention"
	HeuristicReexport      HeuristicReason = "reexport"
	HeuristicSeed          HeuristicReason = "entry_seed"
	HeuristicTrace         HeuristicReason = "dynamic_trace"
)
