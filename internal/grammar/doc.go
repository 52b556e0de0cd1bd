// Package grammar turns the opaque configuration subtree of a workflow tool
// into a flat list of field-usage facts.
//
// Each supported tool type is described by a Rule. Rules are collected in a
// Registry keyed by the tool's plugin identifier, so support for a new tool
// is added by registering another Rule rather than by editing existing ones.
//
// # Basic Usage
//
//	res, err := grammar.Default().Extract(node.ToolType, node.Configuration)
//	if err != nil {
//	    // the node contributes no facts
//	}
//	for _, u := range res.Usages {
//	    fmt.Println(u.FieldName, u.Context, u.IsOutput)
//	}
//
// Extraction is purely syntactic. Expressions and SQL are scanned for field
// references; they are never evaluated.
package grammar
