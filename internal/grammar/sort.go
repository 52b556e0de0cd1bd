package grammar

import "github.com/beevik/etree"

var sortRules = []Rule{
	{ToolType: ToolSort, Name: "Sort", Extract: extractSort},
}

func extractSort(cfg *etree.Element) (Result, error) {
	var c collector
	for _, field := range cfg.FindElements("SortInfo/Field") {
		name := field.SelectAttrValue("field", "")
		c.input(name, "sort_key_field", "Order: "+field.SelectAttrValue("order", "Ascending"))
		c.output(name, "sort_output_passthrough_field", "Field used for sorting (passes through)")
	}
	return c.result(), nil
}
