package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/output"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/dag"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/workflow"
)

// GraphQuerier provides read-only access to the tool graph structure.
type GraphQuerier interface {
	GetParents(string) []string
	GetChildren(string) []string
	NodeCount() int
	EdgeCount() int
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <workflow>",
		Short: "Show the tool graph of a workflow",
		Long: `Display the tool graph of one workflow document.

Tools are grouped by execution level: a tool's level is one more than the
highest level of the tools feeding it. Workflows with a connection cycle
have no levels; their tools are listed in id order with a warning.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the graph of a workflow
  fieldaudit graph workflows/orders.yxmd

  # Output as JSON
  fieldaudit graph workflows/orders.yxmd --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args[0])
		},
	}

	return cmd
}

func runGraph(cmd *cobra.Command, location string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	doc, err := cmdCtx.LoadDocument(cmd.Context(), location)
	if err != nil {
		return err
	}
	graph := doc.BuildGraph()

	cyclic, cycle := graph.HasCycle()
	var levels [][]string
	if cyclic {
		r.Warning(fmt.Sprintf("workflow has a connection cycle: %s", strings.Join(cycle, " -> ")))
		ids := make([]string, 0, len(doc.Nodes))
		for _, n := range doc.Nodes {
			ids = append(ids, n.ID)
		}
		dag.SortIDs(ids)
		levels = [][]string{ids}
	} else {
		levels, err = graph.GetExecutionLevels()
		if err != nil {
			return fmt.Errorf("failed to get execution levels: %w", err)
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return graphJSON(r, doc, graph, levels, cyclic)
	case output.ModeMarkdown:
		return graphMarkdown(r, doc, graph, levels, cyclic)
	default:
		return graphText(r, doc, graph, levels, cyclic)
	}
}

func levelName(i int, cyclic bool) string {
	switch {
	case cyclic:
		return "Tools"
	case i == 0:
		return "Level 0 (Inputs)"
	default:
		return fmt.Sprintf("Level %d", i)
	}
}

func toolType(doc *workflow.Document, id string) string {
	if n, ok := doc.Node(id); ok {
		return n.ToolType
	}
	return workflow.UnknownToolType
}

// graphText outputs the graph in styled text format.
func graphText(r *output.Renderer, doc *workflow.Document, graph GraphQuerier, levels [][]string, cyclic bool) error {
	styles := r.Styles()

	r.Header(1, "Tool Graph: "+doc.Name)

	for i, level := range levels {
		r.Println(styles.Header2.Render(levelName(i, cyclic) + ":"))
		for _, id := range level {
			r.Printf("  %s %s\n", styles.ToolID.Render(id), styles.Muted.Render(toolType(doc, id)))
			if parents := graph.GetParents(id); len(parents) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("fed by:"), strings.Join(parents, ", "))
			}
			if children := graph.GetChildren(id); len(children) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("feeds:"), strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d tools, %d connections", graph.NodeCount(), graph.EdgeCount())))

	return nil
}

// graphMarkdown outputs the graph in markdown format.
func graphMarkdown(r *output.Renderer, doc *workflow.Document, graph GraphQuerier, levels [][]string, cyclic bool) error {
	r.Println(output.FormatHeader(1, "Tool Graph: "+doc.Name))
	r.Println("")

	for i, level := range levels {
		r.Println(output.FormatHeader(2, levelName(i, cyclic)))

		for _, id := range level {
			r.Printf("- %s (%s)\n", id, toolType(doc, id))
			if parents := graph.GetParents(id); len(parents) > 0 {
				r.Printf("  - fed by: %s\n", strings.Join(parents, ", "))
			}
			if children := graph.GetChildren(id); len(children) > 0 {
				r.Printf("  - feeds: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Tools", fmt.Sprintf("%d", graph.NodeCount())))
	r.Println(output.FormatKeyValue("Total Connections", fmt.Sprintf("%d", graph.EdgeCount())))

	return nil
}

// graphJSON outputs the graph in JSON format.
func graphJSON(r *output.Renderer, doc *workflow.Document, graph GraphQuerier, levels [][]string, cyclic bool) error {
	out := output.GraphOutput{
		Document:   doc.Name,
		Levels:     make([]output.GraphLevel, 0, len(levels)),
		TotalNodes: graph.NodeCount(),
		TotalEdges: graph.EdgeCount(),
		HasCycle:   cyclic,
	}

	for i, level := range levels {
		graphLevel := output.GraphLevel{
			Level: i,
			Nodes: make([]output.GraphNode, 0, len(level)),
		}
		for _, id := range level {
			graphLevel.Nodes = append(graphLevel.Nodes, output.GraphNode{
				ID:       id,
				Tool:     toolType(doc, id),
				Parents:  nonNil(graph.GetParents(id)),
				Children: nonNil(graph.GetChildren(id)),
			})
		}
		out.Levels = append(out.Levels, graphLevel)
	}

	return r.JSON(out)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
