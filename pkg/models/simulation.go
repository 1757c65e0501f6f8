package models

// SimulationTarget names what a removal simulation deletes: a whole file,
// or a single function inside one.
type SimulationTarget struct {
	File     string `json:"file"`
	Function string `json:"function,omitempty"`
}

// ImpactedFunction is one function inside the blast radius. Distance is
// the number of reverse call/import hops from the deleted target.
type ImpactedFunction struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	File     string `json:"file"`
	Line     uint32 `json:"line"`
	Distance int    `json:"distance"`
}

// SimulationReport is the outcome of a what-if removal.
type SimulationReport struct {
	Target        SimulationTarget   `json:"target"`
	Resolved      bool               `json:"resolved"`
	BrokenImports []ImportRecord     `json:"broken_imports,omitempty"`
	Impacted      []ImpactedFunction `json:"impacted,omitempty"`
	MaxDepth      int                `json:"max_depth"`
	Truncated     bool               `json:"truncated,omitempty"`
}
