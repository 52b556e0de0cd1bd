package lineage

import (
	"strings"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/dag"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/grammar"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/workflow"
)

// ReachabilitySet is the set of tool ids downstream of the source-of-truth
// origins of one workflow, origins included.
type ReachabilitySet struct {
	Key     string   // source-of-truth key the set was computed for
	Origins []string // origin tool ids, sorted
	nodes   map[string]struct{}
}

// Active reports whether a source-of-truth key was supplied.
func (s *ReachabilitySet) Active() bool {
	return s != nil && s.Key != ""
}

// Contains reports whether the tool is reachable from an origin.
func (s *ReachabilitySet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.nodes[id]
	return ok
}

// Len returns the number of reachable tools.
func (s *ReachabilitySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.nodes)
}

// IDs returns the reachable tool ids, sorted.
func (s *ReachabilitySet) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	dag.SortIDs(ids)
	return ids
}

// Origins returns the ids of tools that read from the source of truth: the
// rule for their tool type is source-of-truth capable and their source
// identifier contains key (case-sensitive). An empty key selects nothing.
func Origins(doc *workflow.Document, reg *grammar.Registry, key string) []string {
	if key == "" {
		return nil
	}
	var origins []string
	for _, n := range doc.Nodes {
		if !reg.IsSourceOfTruthCapable(n.ToolType) {
			continue
		}
		if n.SourceIdentifier != "" && strings.Contains(n.SourceIdentifier, key) {
			origins = append(origins, n.ID)
		}
	}
	dag.SortIDs(origins)
	return origins
}

// Solve computes the reachability set of doc for key over the graph g, which
// must have been built from doc.
func Solve(doc *workflow.Document, g *dag.Graph, reg *grammar.Registry, key string) *ReachabilitySet {
	set := &ReachabilitySet{
		Key:   key,
		nodes: make(map[string]struct{}),
	}
	if key == "" {
		return set
	}

	set.Origins = Origins(doc, reg, key)
	for _, id := range g.Reachable(set.Origins) {
		set.nodes[id] = struct{}{}
	}
	return set
}
