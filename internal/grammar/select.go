package grammar

import (
	"fmt"

	"github.com/beevik/etree"
)

var selectRules = []Rule{
	{ToolType: ToolSelect, Name: "Select", Extract: extractSelect},
	{ToolType: ToolMultiFieldSelect, Name: "Multi-Field Select", Extract: extractSelect},
}

// extractSelect handles the field selector. A selected field is an input; it
// is also an output, under its new name when renamed. A rename equal to the
// original name counts as a passthrough.
func extractSelect(cfg *etree.Element) (Result, error) {
	var c collector

	for _, field := range cfg.FindElements("SelectFields/SelectField") {
		name := field.SelectAttrValue("field", "")
		rename := field.SelectAttrValue("rename", "")
		if name == "" || field.SelectAttrValue("selected", "") != "True" {
			continue
		}

		renamedTo := rename
		if renamedTo == "" {
			renamedTo = "N/A"
		}
		c.input(name, "select_input_field", "Selected, renamed to: "+renamedTo)

		if rename != "" && rename != name {
			c.output(rename, "select_output_renamed_field", fmt.Sprintf("Renamed from: %s", name))
		} else {
			c.output(name, "select_output_passthrough_field", "Selected, not renamed")
		}
	}

	if sc := cfg.FindElement("SelectConfiguration"); sc != nil && sc.SelectAttrValue("DeselectUnknown", "") == "False" {
		c.output(UnknownOrDynamicFields, "select_dynamic_passthrough", "Dynamic/Unknown fields are passed through")
	}

	return c.result(), nil
}
