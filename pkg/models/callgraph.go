package models

// ExternalCallee is the sentinel callee id for call sites that could not be
// resolved to a function inside the project.
const ExternalCallee = "~external"

// CallGraphEdge connects a caller function to its resolved callee, or to
// the external sentinel when resolution failed.
type CallGraphEdge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
	Line   uint32 `json:"line"`
}

// External reports whether the edge points at the unresolved sentinel.
func (e CallGraphEdge) External() bool {
	return e.Callee == ExternalCallee
}

// FunctionReport is a function together with everything later stages
// derived about it.
type FunctionReport struct {
	FunctionRecord
	Liveness Liveness          `json:"liveness"`
	Reasons  []HeuristicReason `json:"reasons,omitempty"`
	Metrics  FunctionMetrics   `json:"metrics"`
}
