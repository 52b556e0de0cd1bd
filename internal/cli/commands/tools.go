package commands

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/audit"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/output"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/grammar"
)

// NewToolsCommand creates the tools command.
func NewToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tool types fields are extracted from",
		Long: `List every tool type with a field extraction rule, its criticality score,
and whether it can be a source-of-truth origin.

Tool types ending in * match every plugin with that prefix. Usages on
tools without a rule are not reported.`,
		Example: `  # List tool types
  fieldaudit tools

  # Output as JSON
  fieldaudit tools --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			return renderTools(cmdCtx.Renderer, toolInfos(cmdCtx.Registry))
		},
	}
}

func toolInfos(reg *grammar.Registry) []output.ToolInfo {
	rules := reg.Rules()
	infos := make([]output.ToolInfo, 0, len(rules))
	for _, rule := range rules {
		toolType := rule.ToolType
		if rule.Prefix {
			toolType += "*"
		}
		infos = append(infos, output.ToolInfo{
			ToolType:    toolType,
			Criticality: audit.Criticality(rule.ToolType),
			SoTCapable:  rule.SourceOfTruth,
		})
	}
	return infos
}

func renderTools(r *output.Renderer, infos []output.ToolInfo) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	t := newTable(r, table.Row{"Tool type", "Criticality", "Source of truth"})
	for _, info := range infos {
		sot := ""
		if info.SoTCapable {
			sot = "yes"
		}
		t.AppendRow(table.Row{info.ToolType, strconv.Itoa(info.Criticality), sot})
	}
	renderTable(r, t)
	return nil
}
