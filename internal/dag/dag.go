// Package dag provides directed graph operations for workflow tool graphs.
// It supports reachability, cycle detection, topological sorting and
// execution levels. Workflows are acyclic by construction, but every
// traversal here terminates on cyclic input.
package dag

import (
	"fmt"
	"sort"
	"strconv"
)

// Node represents a node in the graph.
type Node struct {
	// ID is the unique identifier (tool id)
	ID string
	// Data holds arbitrary node data
	Data interface{}
}

// Graph is a directed graph over string ids. Nodes never reference each
// other directly; all structure lives in the adjacency maps.
type Graph struct {
	nodes   map[string]*Node
	order   []string            // insertion order
	edges   map[string][]string // origin -> destinations
	parents map[string][]string // destination -> origins
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(id string, data interface{}) {
	if _, exists := g.nodes[id]; !exists {
		g.nodes[id] = &Node{ID: id, Data: data}
		g.order = append(g.order, id)
		g.edges[id] = []string{}
		g.parents[id] = []string{}
	} else {
		// Update data if node already exists
		g.nodes[id].Data = data
	}
}

// AddEdge adds a directed edge from origin to destination.
// Both nodes must exist; duplicate edges are ignored.
func (g *Graph) AddEdge(originID, destinationID string) error {
	if _, exists := g.nodes[originID]; !exists {
		return fmt.Errorf("origin node %q does not exist", originID)
	}
	if _, exists := g.nodes[destinationID]; !exists {
		return fmt.Errorf("destination node %q does not exist", destinationID)
	}

	if !contains(g.edges[originID], destinationID) {
		g.edges[originID] = append(g.edges[originID], destinationID)
	}
	if !contains(g.parents[destinationID], originID) {
		g.parents[destinationID] = append(g.parents[destinationID], originID)
	}

	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetParents returns the origins of edges pointing at a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the destinations of a node's edges.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// GetAllNodes returns all nodes in insertion order.
func (g *Graph) GetAllNodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// Reachable returns every node reachable from the given origins through
// forward edges, origins included. Unknown origins are skipped. Each node is
// visited at most once, so the traversal is O(V+E) and terminates on cycles.
func (g *Graph) Reachable(origins []string) []string {
	visited := make(map[string]bool, len(origins))
	queue := make([]string, 0, len(origins))

	for _, id := range origins {
		if _, exists := g.nodes[id]; !exists || visited[id] {
			continue
		}
		visited[id] = true
		queue = append(queue, id)
	}

	for head := 0; head < len(queue); head++ {
		for _, childID := range g.edges[queue[head]] {
			if !visited[childID] {
				visited[childID] = true
				queue = append(queue, childID)
			}
		}
	}

	SortIDs(queue)
	return queue
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string) // Track the path for error reporting

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				// Found cycle, reconstruct path
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// TopologicalSort returns nodes in topological order (origins before destinations).
// Returns an error if the graph contains a cycle.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[string]bool)
	var result []*Node

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true

		for _, parentID := range g.parents[id] {
			visit(parentID)
		}

		result = append(result, g.nodes[id])
	}

	ids := append([]string(nil), g.order...)
	SortIDs(ids)
	for _, id := range ids {
		visit(id)
	}

	return result, nil
}

// GetExecutionLevels returns nodes grouped by level.
// Level 0 contains nodes with no incoming edges; a node at level N has at
// least one parent at level N-1.
func (g *Graph) GetExecutionLevels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	levels := [][]string{}
	assigned := make(map[string]int)

	var getLevel func(id string) int
	getLevel = func(id string) int {
		if level, ok := assigned[id]; ok {
			return level
		}

		parents := g.parents[id]
		if len(parents) == 0 {
			assigned[id] = 0
			return 0
		}

		maxParentLevel := 0
		for _, parentID := range parents {
			parentLevel := getLevel(parentID)
			if parentLevel > maxParentLevel {
				maxParentLevel = parentLevel
			}
		}

		level := maxParentLevel + 1
		assigned[id] = level
		return level
	}

	maxLevel := 0
	for _, id := range g.order {
		level := getLevel(id)
		if level > maxLevel {
			maxLevel = level
		}
	}

	if len(g.order) == 0 {
		return levels, nil
	}
	for i := 0; i <= maxLevel; i++ {
		levels = append(levels, []string{})
	}
	for id, level := range assigned {
		levels[level] = append(levels[level], id)
	}

	for i := range levels {
		SortIDs(levels[i])
	}

	return levels, nil
}

// GetUpstreamNodes returns all nodes upstream of the given node, excluding the node itself.
func (g *Graph) GetUpstreamNodes(id string) []string {
	upstream := map[string]bool{id: true}
	stack := []string{id}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, parentID := range g.parents[current] {
			if !upstream[parentID] {
				upstream[parentID] = true
				stack = append(stack, parentID)
			}
		}
	}
	delete(upstream, id)

	result := make([]string, 0, len(upstream))
	for nodeID := range upstream {
		result = append(result, nodeID)
	}
	SortIDs(result)
	return result
}

// GetRoots returns nodes with no parents.
func (g *Graph) GetRoots() []string {
	var roots []string
	for _, id := range g.order {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	SortIDs(roots)
	return roots
}

// GetLeaves returns nodes with no children.
func (g *Graph) GetLeaves() []string {
	var leaves []string
	for _, id := range g.order {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	SortIDs(leaves)
	return leaves
}

// SortIDs sorts ids numerically when both are integers, lexically otherwise.
// Tool ids are usually small integers, so "2" sorts before "10".
func SortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
