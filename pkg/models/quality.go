package models

// FunctionMetrics holds per-function quality scores. The complexity score
// is monotonic in branch count: adding a conditional, loop, boolean
// operator or exception handler never lowers it.
type FunctionMetrics struct {
	Complexity uint32 `json:"complexity"`
	MaxNesting int    `json:"max_nesting"`
	Lines      int    `json:"lines"`
	Statements int    `json:"statements"`
}

// CloneInstance is one occurrence of a duplicated block.
type CloneInstance struct {
	File      string `json:"file"`
	Function  string `json:"function"`
	StartLine uint32 `json:"start_line"`
	EndLine   uint32 `json:"end_line"`
}

// DuplicateCluster groups blocks whose normalized token streams hash
// equal. A cluster always has at least two occurrences.
type DuplicateCluster struct {
	Hash      string          `json:"hash"`
	Instances []CloneInstance `json:"instances"`
}
