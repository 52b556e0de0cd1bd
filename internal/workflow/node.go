package workflow

import (
	"github.com/beevik/etree"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/grammar"
)

// Placeholders for nodes whose XML omits an identifier or plugin.
const (
	UnknownToolID   = "UnknownToolID"
	UnknownToolType = grammar.ToolUnknown
)

// ToolNode is one tool placed on the workflow canvas, with the field usages
// its configuration declares.
type ToolNode struct {
	ID       string
	ToolType string

	// Configuration is the Properties/Configuration element, nil when absent.
	Configuration *etree.Element

	Usages           []grammar.FieldUsage
	SourceIdentifier string

	// Err is set when the configuration could not be read. Such a node still
	// takes part in the graph but contributes no usages.
	Err error
}

// NewToolNode reads a <Node> element and runs the matching grammar rule.
func NewToolNode(el *etree.Element, reg *grammar.Registry) *ToolNode {
	n := &ToolNode{
		ID:       el.SelectAttrValue("ToolID", ""),
		ToolType: UnknownToolType,
	}
	if n.ID == "" {
		n.ID = UnknownToolID
	}
	if gui := el.FindElement("GuiSettings"); gui != nil {
		if plugin := gui.SelectAttrValue("Plugin", ""); plugin != "" {
			n.ToolType = plugin
		}
	}
	n.Configuration = el.FindElement("Properties/Configuration")

	res, err := reg.Extract(n.ToolType, n.Configuration)
	if err != nil {
		if extractErr, ok := err.(*grammar.NodeExtractionError); ok {
			extractErr.ToolID = n.ID
		}
		n.Err = err
		return n
	}
	n.Usages = res.Usages
	n.SourceIdentifier = res.SourceIdentifier
	return n
}

// HasConfiguration reports whether the node carries a configuration element.
func (n *ToolNode) HasConfiguration() bool {
	return n.Configuration != nil
}
