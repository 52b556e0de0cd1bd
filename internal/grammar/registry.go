package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// ExtractFunc reads field usages from a tool's Properties/Configuration element.
// The element is never nil when an ExtractFunc is invoked.
type ExtractFunc func(cfg *etree.Element) (Result, error)

// Rule binds a tool type to its extraction function.
type Rule struct {
	// ToolType is the plugin identifier, or a plugin prefix when Prefix is set.
	ToolType string
	// Prefix makes the rule match every tool type starting with ToolType.
	Prefix bool
	// Name is a short display name ("Join", "Formula").
	Name string
	// SourceOfTruth marks tools whose SourceIdentifier may designate a
	// source-of-truth origin for reachability.
	SourceOfTruth bool
	// Extract produces the usages.
	Extract ExtractFunc
}

// Registry maps tool types to rules. A Registry is never mutated after
// construction; With returns an extended copy.
type Registry struct {
	exact    map[string]Rule
	prefixes []Rule // longest prefix first
}

// NewRegistry builds a registry from rules. Later rules replace earlier ones
// with the same tool type.
func NewRegistry(rules ...Rule) *Registry {
	r := &Registry{exact: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		r.put(rule)
	}
	r.sortPrefixes()
	return r
}

func (r *Registry) put(rule Rule) {
	if !rule.Prefix {
		r.exact[rule.ToolType] = rule
		return
	}
	for i, p := range r.prefixes {
		if p.ToolType == rule.ToolType {
			r.prefixes[i] = rule
			return
		}
	}
	r.prefixes = append(r.prefixes, rule)
}

func (r *Registry) sortPrefixes() {
	sort.SliceStable(r.prefixes, func(i, j int) bool {
		return len(r.prefixes[i].ToolType) > len(r.prefixes[j].ToolType)
	})
}

// With returns a new registry holding r's rules plus the given ones.
func (r *Registry) With(rules ...Rule) *Registry {
	all := make([]Rule, 0, len(r.exact)+len(r.prefixes)+len(rules))
	all = append(all, r.Rules()...)
	all = append(all, rules...)
	return NewRegistry(all...)
}

// Lookup finds the rule for a tool type. Exact matches win over prefixes.
func (r *Registry) Lookup(toolType string) (Rule, bool) {
	if rule, ok := r.exact[toolType]; ok {
		return rule, true
	}
	for _, rule := range r.prefixes {
		if strings.HasPrefix(toolType, rule.ToolType) {
			return rule, true
		}
	}
	return Rule{}, false
}

// IsSourceOfTruthCapable reports whether the tool type can act as a
// source-of-truth origin.
func (r *Registry) IsSourceOfTruthCapable(toolType string) bool {
	rule, ok := r.Lookup(toolType)
	return ok && rule.SourceOfTruth
}

// Rules returns all rules sorted by tool type.
func (r *Registry) Rules() []Rule {
	rules := make([]Rule, 0, len(r.exact)+len(r.prefixes))
	for _, rule := range r.exact {
		rules = append(rules, rule)
	}
	rules = append(rules, r.prefixes...)
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ToolType < rules[j].ToolType
	})
	return rules
}

// Extract runs the rule registered for toolType against cfg.
// Unknown tool types and missing configurations yield an empty result.
// A failing or panicking rule yields an empty result and a *NodeExtractionError.
func (r *Registry) Extract(toolType string, cfg *etree.Element) (res Result, err error) {
	rule, ok := r.Lookup(toolType)
	if !ok || cfg == nil {
		return Result{}, nil
	}

	defer func() {
		if p := recover(); p != nil {
			res = Result{}
			err = &NodeExtractionError{ToolType: toolType, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	res, err = rule.Extract(cfg)
	if err != nil {
		return Result{}, &NodeExtractionError{ToolType: toolType, Err: err}
	}
	return res, nil
}

// NodeExtractionError reports a rule that could not read a tool configuration.
type NodeExtractionError struct {
	ToolID   string
	ToolType string
	Err      error
}

func (e *NodeExtractionError) Error() string {
	if e.ToolID != "" {
		return fmt.Sprintf("extract fields from tool %s (%s): %v", e.ToolID, e.ToolType, e.Err)
	}
	return fmt.Sprintf("extract fields from %s: %v", e.ToolType, e.Err)
}

func (e *NodeExtractionError) Unwrap() error {
	return e.Err
}

// builtin holds the rules shipped with the package.
var builtin = NewRegistry(builtinRules()...)

// Default returns the registry of built-in rules.
func Default() *Registry {
	return builtin
}

func builtinRules() []Rule {
	var rules []Rule
	rules = append(rules, selectRules...)
	rules = append(rules, joinRules...)
	rules = append(rules, expressionRules...)
	rules = append(rules, summarizeRules...)
	rules = append(rules, sortRules...)
	rules = append(rules, databaseRules...)
	rules = append(rules, calgaryRules...)
	rules = append(rules, outputRules...)
	rules = append(rules, inputRules...)
	return rules
}
