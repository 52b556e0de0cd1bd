package grammar

import (
	"regexp"

	"github.com/beevik/etree"
)

var expressionRules = []Rule{
	{ToolType: ToolFilter, Name: "Filter", Extract: extractFilter},
	{ToolType: ToolFormula, Name: "Formula", Extract: extractFormula},
}

// fieldRefPattern matches a bracket-delimited field reference such as [Amount].
var fieldRefPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// FieldReferences returns the distinct bracketed field names in expr, in order
// of first appearance.
func FieldReferences(expr string) []string {
	matches := fieldRefPattern.FindAllStringSubmatch(expr, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		refs = append(refs, m[1])
	}
	return refs
}

func (c *collector) expressionInputs(expr, context string) {
	for _, ref := range FieldReferences(expr) {
		c.input(ref, context, expr)
	}
}

func extractFilter(cfg *etree.Element) (Result, error) {
	var c collector
	if expr := cfg.FindElement("Expression"); expr != nil && expr.Text() != "" {
		c.expressionInputs(expr.Text(), "filter_expression_input")
	}
	return c.result(), nil
}

// extractFormula emits each formula's target field as an output, followed by
// the fields its expression references.
func extractFormula(cfg *etree.Element) (Result, error) {
	var c collector
	for _, ff := range cfg.FindElements("FormulaFields/FormulaField") {
		expr := ff.SelectAttrValue("expression", "")
		c.output(ff.SelectAttrValue("field", ""), "formula_output_field", expr)
		c.expressionInputs(expr, "formula_expression_input")
	}
	return c.result(), nil
}
