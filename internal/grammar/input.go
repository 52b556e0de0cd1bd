package grammar

import "github.com/beevik/etree"

var inputRules = []Rule{
	{ToolType: ToolInputData, Name: "Input Data", Extract: extractInputData},
	{ToolType: ToolDynamicInput, Name: "Dynamic Input", Extract: extractDynamicInput},
}

func extractInputData(cfg *etree.Element) (Result, error) {
	var c collector
	for _, field := range cfg.FindElements("FormatSpecificOptions/FieldNames/Field") {
		c.output(field.SelectAttrValue("name", ""), "inputdata_source_field", "Field from InputData tool (e.g. CSV/Excel)")
	}
	return c.result(), nil
}

// extractDynamicInput cannot know the template's fields statically.
func extractDynamicInput(cfg *etree.Element) (Result, error) {
	var c collector
	if cfg.FindElement("InputSourceTemplate") != nil {
		c.output(DynamicTemplateFields, "dynamicinput_template_field", "Fields defined by DynamicInput template")
	}
	return c.result(), nil
}
