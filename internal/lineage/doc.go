// Package lineage decides which tools of a workflow sit downstream of a
// source-of-truth input.
//
// A source-of-truth key names a governed data store (a path fragment such as
// "golden\\customers"). Every tool whose rule is flagged as source-of-truth
// capable and whose source identifier contains the key is an origin; the
// reachability set is every tool reachable from an origin over the
// workflow's connections, origins included.
//
// # Basic Usage
//
//	doc, err := workflow.ParseBytes(data, "sales.yxmd", modTime, workflow.ParseOptions{})
//	if err != nil {
//	    return err
//	}
//
//	set := lineage.Solve(doc, doc.BuildGraph(), grammar.Default(), `golden\customers`)
//	for _, node := range doc.Nodes {
//	    fmt.Println(node.ID, set.Contains(node.ID))
//	}
//
// An empty key yields an inactive set that contains nothing.
package lineage
