package grammar

import (
	"strings"

	"github.com/beevik/etree"
)

var outputRules = []Rule{
	{ToolType: ToolCalgaryLoader, Name: "Calgary Loader", Extract: extractCalgaryLoader},
	{ToolType: ToolTableauOutputPrefix, Prefix: true, Name: "Tableau Output", Extract: extractTableauOutput},
	{ToolType: ToolDbFileOutput, Name: "Output (database/file)", Extract: extractDbFileOutput},
}

// extractCalgaryLoader reads Fields/Field@field. A loader without a declared
// field list writes whatever arrives.
func extractCalgaryLoader(cfg *etree.Element) (Result, error) {
	var c collector
	for _, field := range cfg.FindElements("Fields/Field") {
		c.output(field.SelectAttrValue("field", ""), "calgaryloader_output_field", "Field loaded into Calgary")
	}
	if len(c.res.Usages) == 0 {
		c.output(AllIncomingFields, "calgaryloader_output_field", "No field list declared, loads all incoming fields")
	}
	return c.result(), nil
}

// extractTableauOutput reads the comma separated column list in InputColumn1.
func extractTableauOutput(cfg *etree.Element) (Result, error) {
	var c collector
	if col := cfg.FindElement("InputColumn1"); col != nil {
		for _, name := range strings.Split(col.Text(), ",") {
			c.output(strings.TrimSpace(name), "tableau_output_field", "Field sent to Tableau Output")
		}
	}
	if len(c.res.Usages) == 0 {
		c.output(AllIncomingFields, "tableau_output_field", "No column list declared, sends all incoming fields")
	}
	return c.result(), nil
}

// extractDbFileOutput always writes every incoming field.
func extractDbFileOutput(cfg *etree.Element) (Result, error) {
	var c collector
	target := "N/A"
	if file := cfg.FindElement("File"); file != nil && file.Text() != "" {
		target = file.Text()
	}
	c.output(AllIncomingFields, "dbfileoutput_generic_output", "Outputting all fields to: "+target)
	return c.result(), nil
}
