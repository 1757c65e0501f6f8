package models

// GraphNode is a file/module (or directory aggregate) in the dependency graph.
type GraphNode struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Type  NodeType `json:"type"`
	Files int      `json:"files,omitempty"`
}

// NodeType represents the granularity of a graph node.
type NodeType string

const (
	NodeModule    NodeType = "module"
	NodeDirectory NodeType = "directory"
)

// GraphEdge is a dependency between nodes. Weight counts how many
// imports/calls were collapsed into the edge.
type GraphEdge struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Type   EdgeType `json:"type"`
	Weight int      `json:"weight"`
}

// EdgeType represents the kind of dependency.
type EdgeType string

const (
	EdgeImport EdgeType = "import"
	EdgeCall   EdgeType = "call"
)

// DependencyGraph is the module-level view of the project.
type DependencyGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		Nodes: make([]GraphNode, 0),
		Edges: make([]GraphEdge, 0),
	}
}

// AddNode adds a node to the graph.
func (g *DependencyGraph) AddNode(node GraphNode) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge adds an edge to the graph.
func (g *DependencyGraph) AddEdge(edge GraphEdge) {
	g.Edges = append(g.Edges, edge)
}

// ToMermaid renders the graph as a Mermaid diagram.
func (g *DependencyGraph) ToMermaid() string {
	result := "graph TD\n"
	for _, node := range g.Nodes {
		label := node.Name
		if label == "" {
			label = node.ID
		}
		result += "    " + sanitizeMermaidID(node.ID) + "[\"" + label + "\"]\n"
	}
	for _, edge := range g.Edges {
		arrow := "-->"
		if edge.Type == EdgeCall {
			arrow = "-->|calls|"
		}
		result += "    " + sanitizeMermaidID(edge.From) + " " + arrow + " " + sanitizeMermaidID(edge.To) + "\n"
	}
	return result
}

// sanitizeMermaidID makes an ID safe for Mermaid.
func sanitizeMermaidID(id string) string {
	result := ""
	for _, c := range id {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result += string(c)
		} else {
			result += "_"
		}
	}
	return result
}

// GraphSummary provides aggregate graph statistics.
type GraphSummary struct {
	TotalNodes int          `json:"total_nodes"`
	TotalEdges int          `json:"total_edges"`
	Components int          `json:"components"`
	TopNodes   []RankedNode `json:"top_nodes,omitempty"`
}

// RankedNode is a node with its PageRank importance.
type RankedNode struct {
	ID   string  `json:"id"`
	Rank float64 `json:"rank"`
}
