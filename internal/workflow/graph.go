package workflow

import (
	"github.com/ptitty12/AlteryxDependencyTracker/internal/dag"
)

// BuildGraph turns the document's connections into a directed graph keyed by
// tool id. Each node's Data is its *ToolNode. Connections that reference an
// unknown tool are dropped.
func (d *Document) BuildGraph() *dag.Graph {
	g := dag.NewGraph()
	for _, n := range d.Nodes {
		g.AddNode(n.ID, n)
	}
	for _, e := range d.Edges {
		// AddEdge rejects dangling endpoints, which is the behaviour we want.
		_ = g.AddEdge(e.Origin, e.Destination)
	}
	return g
}
