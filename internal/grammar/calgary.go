package grammar

import (
	"strings"

	"github.com/beevik/etree"
)

var calgaryRules = []Rule{
	{ToolType: ToolCalgaryInput, Name: "Calgary Input", SourceOfTruth: true, Extract: extractCalgary},
	{ToolType: ToolCalgaryJoin, Name: "Calgary Join", SourceOfTruth: true, Extract: extractCalgaryJoin},
}

// extractCalgary reads the indexed file a Calgary tool queries (its source
// identifier) and the fields named in its embedded XML query. A query that is
// not well-formed XML contributes no fields.
func extractCalgary(cfg *etree.Element) (Result, error) {
	var c collector

	if root := cfg.FindElement("RootFileName"); root != nil {
		c.res.SourceIdentifier = strings.TrimSpace(root.Text())
	}

	if q := cfg.FindElement("Query"); q != nil {
		query := strings.TrimSpace(q.Text())
		if query != "" {
			inner := etree.NewDocument()
			if err := inner.ReadFromString(query); err == nil && inner.Root() != nil {
				for _, field := range inner.Root().FindElements(".//Field") {
					name := field.SelectAttrValue("name", "")
					c.input(name, "calgary_query_field", query)
					c.output(name, "calgary_query_output_field", query)
				}
			}
		}
	}

	return c.result(), nil
}

// extractCalgaryJoin adds the index/stream join pairs to the Calgary query
// fields. The stream side is what flows out of the tool.
func extractCalgaryJoin(cfg *etree.Element) (Result, error) {
	res, err := extractCalgary(cfg)
	if err != nil {
		return Result{}, err
	}
	c := collector{res: res}

	for _, jf := range cfg.FindElements("JoinFields/Field") {
		index := jf.SelectAttrValue("indexField", "")
		stream := jf.SelectAttrValue("streamField", "")
		c.input(index, "calgary_join_index_field", "Index field, joins with stream field: "+stream)
		c.input(stream, "calgary_join_stream_field", "Stream field, joins with index field: "+index)
		c.output(stream, "calgary_join_output_field", "From stream field in join")
	}

	return c.result(), nil
}
