package grammar

// Plugin identifiers of the tool types the built-in rules understand.
const (
	ToolSelect                = "AlteryxBasePluginsGui.AlteryxSelect.AlteryxSelect"
	ToolMultiFieldSelect      = "AlteryxBasePluginsGui.MultiFieldSelect.MultiFieldSelect"
	ToolJoin                  = "AlteryxBasePluginsGui.Join.Join"
	ToolFilter                = "AlteryxBasePluginsGui.Filter.Filter"
	ToolFormula               = "AlteryxBasePluginsGui.Formula.Formula"
	ToolSummarize             = "AlteryxSpatialPluginsGui.Summarize.Summarize"
	ToolSummarizeConfigurable = "AlteryxBasePluginsGui.SummarizeConfigurable.SummarizeConfigurable"
	ToolSort                  = "AlteryxBasePluginsGui.Sort.Sort"
	ToolDbFileInput           = "AlteryxBasePluginsGui.DbFileInput.DbFileInput"
	ToolDbFileOutput          = "AlteryxBasePluginsGui.DbFileOutput.DbFileOutput"
	ToolInputData             = "AlteryxBasePluginsGui.InputData.InputData"
	ToolDynamicInput          = "AlteryxConnectorGui.DynamicInput.DynamicInput"
	ToolCalgaryInput          = "CalgaryPluginsGui.CalgaryInput.CalgaryInput"
	ToolCalgaryJoin           = "CalgaryPluginsGui.CalgaryJoin.CalgaryJoin"
	ToolCalgaryLoader         = "CalgaryLoadersGui.CalgaryLoader.CalgaryLoader"

	// ToolTableauOutputPrefix matches every versioned Tableau output plugin
	// (TableauOutput_1_3_1, TableauOutput_1_4_0, ...).
	ToolTableauOutputPrefix = "TableauOutput"

	// ToolUnknown is the tool type of a node without a plugin attribute.
	ToolUnknown = "unknown"
)
