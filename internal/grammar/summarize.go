package grammar

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

var summarizeRules = []Rule{
	{ToolType: ToolSummarize, Name: "Summarize", Extract: extractSummarize},
	{ToolType: ToolSummarizeConfigurable, Name: "Summarize (configurable)", Extract: extractSummarize},
}

// extractSummarize emits the aggregated field as an input tagged with its
// action. The output is the rename when present, otherwise the original name
// for grouping actions only.
func extractSummarize(cfg *etree.Element) (Result, error) {
	var c collector

	for _, sf := range cfg.FindElements("SummarizeFields/SummarizeField") {
		name := sf.SelectAttrValue("field", "")
		action := sf.SelectAttrValue("action", "")
		rename := sf.SelectAttrValue("rename", "")

		outName := rename
		if outName == "" {
			outName = name
		}
		c.input(name, "summarize_input_field_for_"+action, fmt.Sprintf("Action: %s, Output: %s", action, outName))

		detail := fmt.Sprintf("Original: %s, Action: %s", name, action)
		switch {
		case rename != "":
			c.output(rename, "summarize_output_field_from_"+action, detail)
		case strings.Contains(action, "GroupBy"):
			c.output(name, "summarize_output_field_from_"+action, detail)
		}
	}

	return c.result(), nil
}
