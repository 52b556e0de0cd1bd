package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/audit"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/output"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/report"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/state"
)

// UsagesOptions holds options for the usages command.
type UsagesOptions struct {
	Limit int
	Runs  bool
}

// NewUsagesCommand creates the usages command.
func NewUsagesCommand() *cobra.Command {
	opts := &UsagesOptions{}
	cmd := &cobra.Command{
		Use:   "usages [field]",
		Short: "Query field usages recorded by previous audits",
		Long: `Query the state store written by audit.

With a field name, every stored usage of that field is listed across the
latest audit of each document. Without one, the most used fields are
counted. --runs lists recent audits instead.`,
		Example: `  # Where is Amount used?
  fieldaudit usages Amount

  # The 20 most used fields
  fieldaudit usages --limit 20

  # Recent audits
  fieldaudit usages --runs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			field := ""
			if len(args) > 0 {
				field = args[0]
			}
			return runUsages(cmd, field, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 50, "Maximum fields or runs to list")
	cmd.Flags().BoolVar(&opts.Runs, "runs", false, "List recent audit runs")

	return cmd
}

func runUsages(cmd *cobra.Command, field string, opts *UsagesOptions) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if cmdCtx.Cfg.StatePath == "" {
		return fmt.Errorf("state_path is not set")
	}
	if _, err := os.Stat(cmdCtx.Cfg.StatePath); os.IsNotExist(err) {
		return fmt.Errorf("no state store at %s\nHint: run 'fieldaudit audit' first", cmdCtx.Cfg.StatePath)
	}

	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	switch {
	case opts.Runs:
		runs, err := store.ListRuns(ctx, opts.Limit)
		if err != nil {
			return err
		}
		return renderRuns(r, runs)
	case field != "":
		records, err := store.UsagesForField(ctx, field)
		if err != nil {
			return err
		}
		return renderUsages(r, field, records)
	default:
		counts, err := store.FieldCounts(ctx, opts.Limit)
		if err != nil {
			return err
		}
		return renderFieldCounts(r, counts)
	}
}

func renderUsages(r *output.Renderer, field string, records []audit.Record) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return report.Write(r.Writer(), report.FormatJSON, records)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Usages of "+field))
		r.Println("")
		return report.Write(r.Writer(), report.FormatMarkdown, records)
	default:
		r.Header(1, fmt.Sprintf("Usages of %s (%d)", field, len(records)))
		return report.Write(r.Writer(), report.FormatTable, records)
	}
}

func renderFieldCounts(r *output.Renderer, counts []state.FieldCount) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]output.FieldCount, 0, len(counts))
		for _, c := range counts {
			out = append(out, output.FieldCount{FieldName: c.FieldName, Usages: c.Usages, Documents: c.Documents})
		}
		return r.JSON(out)
	}

	t := newTable(r, table.Row{"Field", "Usages", "Documents"})
	for _, c := range counts {
		t.AppendRow(table.Row{c.FieldName, strconv.Itoa(c.Usages), strconv.Itoa(c.Documents)})
	}
	renderTable(r, t)
	return nil
}

func renderRuns(r *output.Renderer, runs []*state.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runs)
	}

	t := newTable(r, table.Row{"Run", "Started", "Status", "SoT key", "Documents", "Failed", "Reused", "Facts"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID, run.StartedAt.Format(audit.TimeLayout), string(run.Status), run.SoTKey,
			strconv.Itoa(run.Documents), strconv.Itoa(run.Failed), strconv.Itoa(run.Reused), strconv.Itoa(run.Facts),
		})
	}
	renderTable(r, t)
	return nil
}

func newTable(r *output.Renderer, header table.Row) table.Writer {
	style := table.StyleLight
	if r.EffectiveMode() == output.ModeMarkdown {
		style = table.StyleDefault
	}
	style.Format.Header = text.FormatDefault

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(style)
	t.AppendHeader(header)
	return t
}

func renderTable(r *output.Renderer, t table.Writer) {
	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}
