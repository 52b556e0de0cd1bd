package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/output"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/source"
)

// NewCollectCommand creates the collect command.
func NewCollectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "collect <source> <destination>",
		Short: "Copy workflow documents into one directory",
		Long: `Copy every workflow document found under the source directory, at any
depth, into the destination directory without subdirectories.

Documents with the same file name overwrite each other. A document that
cannot be copied is reported and skipped.`,
		Example: `  # Stage workflows from a share for auditing
  fieldaudit collect /mnt/share/workflows ./workflows

  # Collect only .yxmd files
  fieldaudit collect /mnt/share/workflows ./workflows --extensions .yxmd`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, args[0], args[1])
		},
	}
}

func runCollect(cmd *cobra.Command, src, dest string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	result, err := cmdCtx.Source.Collect(cmd.Context(), src, dest)
	if errors.Is(err, source.ErrNoDocuments) {
		r.Warning(fmt.Sprintf("No workflow documents found in %s", src))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to collect workflows: %w", err)
	}

	out := output.CollectOutput{
		Source:      src,
		Destination: dest,
		Found:       result.Found,
		Copied:      result.Copied,
	}
	for _, f := range result.Failed {
		out.Failed = append(out.Failed, output.CollectError{URL: f.Document.URL, Error: f.Err.Error()})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, "Collect")
	r.KeyValue("Found", strconv.Itoa(out.Found))
	r.KeyValue("Copied", strconv.Itoa(out.Copied))
	r.KeyValue("Failed", strconv.Itoa(len(out.Failed)))
	for _, f := range out.Failed {
		r.StatusLine(f.URL, "failed", f.Error)
	}
	if len(out.Failed) == 0 {
		r.Success(fmt.Sprintf("Copied %d documents to %s", out.Copied, dest))
	}
	return nil
}
