package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/config"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/output"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/lineage"
)

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	Node string // Show the tools upstream of this tool instead
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <workflow>",
		Short: "Show the tools downstream of the source of truth",
		Long: `Display the source-of-truth origins of a workflow and every tool
reachable from them.

Origins are input tools whose source identifier contains the --sot-key.
Usages on reachable tools are the ones flagged IsDownstreamSOT by audit.
With --node, the tools feeding the given tool are shown instead.`,
		Example: `  # Show the tools downstream of inputs reading golden_customers
  fieldaudit lineage workflows/orders.yxmd --sot-key golden_customers

  # Show every tool feeding tool 12
  fieldaudit lineage workflows/orders.yxmd --node 12

  # Output as JSON
  fieldaudit lineage workflows/orders.yxmd -k golden_customers --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Node, "node", "", "Show the tools upstream of this tool id")

	return cmd
}

func runLineage(cmd *cobra.Command, location string, opts *LineageOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	doc, err := cmdCtx.LoadDocument(cmd.Context(), location)
	if err != nil {
		return err
	}
	graph := doc.BuildGraph()

	if opts.Node != "" {
		if _, ok := graph.GetNode(opts.Node); !ok {
			return fmt.Errorf("tool %q not found in %s", opts.Node, doc.Name)
		}
		upstream := graph.GetUpstreamNodes(opts.Node)
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(map[string]any{"document": doc.Name, "node": opts.Node, "upstream": nonNil(upstream)})
		}
		r.Header(1, fmt.Sprintf("Tools feeding %s in %s", opts.Node, doc.Name))
		r.Println(idList(upstream))
		return nil
	}

	key := cmdCtx.Cfg.SoTKey
	if key == "" {
		return &config.ConfigurationError{Field: "sot_key", Reason: "required for lineage (use --sot-key)"}
	}

	set := lineage.Solve(doc, graph, cmdCtx.Registry, key)
	if len(set.Origins) == 0 {
		r.Warning(fmt.Sprintf("no input tool in %s reads from %q", doc.Name, key))
	}

	out := output.LineageOutput{
		Document:  doc.Name,
		SoTKey:    key,
		Origins:   nonNil(set.Origins),
		Reachable: nonNil(set.IDs()),
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Lineage: "+doc.Name))
		r.Println("")
		r.Println(output.FormatKeyValue("Source-of-truth key", key))
		r.Println(output.FormatKeyValue("Origins", idList(out.Origins)))
		r.Println("")
		r.Println(output.FormatHeader(2, "Reachable tools"))
		for _, id := range out.Reachable {
			r.Printf("- %s (%s)\n", id, toolType(doc, id))
		}
	default:
		styles := r.Styles()
		r.Header(1, "Lineage: "+doc.Name)
		r.KeyValue("Source-of-truth key", key)
		r.KeyValue("Origins", idList(out.Origins))
		r.Println("")
		r.Println(styles.Header2.Render("Reachable tools:"))
		for _, id := range out.Reachable {
			r.Printf("  %s %s\n", styles.ToolID.Render(id), styles.Muted.Render(toolType(doc, id)))
		}
		r.Println("")
		r.Println(styles.Muted.Render(fmt.Sprintf("%d of %d tools downstream", set.Len(), graph.NodeCount())))
	}
	return nil
}

func idList(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}
