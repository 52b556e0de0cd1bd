package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/audit"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/config"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/output"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/report"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/source"
)

// AuditOptions holds options for the audit command.
type AuditOptions struct {
	NoState bool // Skip the state store
}

// NewAuditCommand creates the audit command.
func NewAuditCommand() *cobra.Command {
	opts := &AuditOptions{}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit field usage across workflow documents",
		Long: `Extract every field usage from the workflow documents in the workflows
directory, mark usages downstream of the source-of-truth inputs, and write
the usages of the target fields to the report.

Documents that cannot be parsed are reported and skipped. A missing
source-of-truth key or target list is reported as a warning; only an
unreadable workflows directory fails the command.`,
		Example: `  # Audit the current directory
  fieldaudit audit --target-fields Amount,Region

  # Restrict to usages downstream of inputs reading golden_customers
  fieldaudit audit -d ./workflows -k golden_customers -f targets.csv

  # Reuse stored results for unchanged documents
  fieldaudit audit --incremental

  # Print the summary as JSON
  fieldaudit audit --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAudit(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoState, "no-state", false, "Do not record the run in the state store")

	return cmd
}

func runAudit(cmd *cobra.Command, opts *AuditOptions) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	logger := cmdCtx.Logger
	r := cmdCtx.Renderer

	if err := cfg.ValidateDirectories(); err != nil {
		return err
	}
	format, err := report.ParseFormat(cfg.ReportFormat)
	if err != nil {
		return err
	}

	docs, err := cmdCtx.Source.List(ctx, cfg.WorkflowsDir)
	if errors.Is(err, source.ErrNoDocuments) {
		r.Warning(fmt.Sprintf("No workflow documents found in %s", cfg.WorkflowsDir))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read workflows directory: %w", err)
	}

	warnings := cfg.Warnings()
	targets, targetWarning := loadTargets(cmd, cfg)
	if targetWarning != nil {
		warnings = append(warnings, targetWarning)
	}
	for _, w := range warnings {
		logger.Warn("configuration", slog.String("field", w.Field), slog.String("reason", w.Reason))
		r.Warning(w.Error())
	}

	procCfg := audit.Config{
		Registry:    cmdCtx.Registry,
		SoTKey:      cfg.SoTKey,
		Workers:     cfg.EffectiveWorkers(),
		Incremental: cfg.Incremental,
		Logger:      logger,
		OnDocument: func(done, total int, res *audit.DocumentResult) {
			logger.Debug("processed document",
				slog.String("document", res.Document.Name),
				slog.Int("done", done), slog.Int("total", total),
				slog.Int("records", len(res.Records)),
				slog.Bool("reused", res.Reused),
				slog.Duration("duration", res.Duration))
		},
	}
	if !opts.NoState && cfg.StatePath != "" {
		store, cleanup, err := cmdCtx.OpenStore()
		if err != nil {
			// The audit does not need the store; run without it.
			logger.Warn("state store unavailable", slog.String("path", cfg.StatePath), slog.Any("error", err))
			r.Warning(err.Error())
			procCfg.Incremental = false
		} else {
			defer cleanup()
			procCfg.Store = store
		}
	} else {
		procCfg.Incremental = false
	}

	proc, err := audit.NewProcessor(cmdCtx.Source, procCfg)
	if err != nil {
		return err
	}
	result, err := proc.Run(ctx, docs)
	if err != nil {
		return err
	}

	reported := report.Filter(result.Records, targets, cfg.SoTKey != "")
	if err := report.WriteFile(ctx, cfg.ReportPath, format, reported); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info("wrote report", slog.String("path", cfg.ReportPath), slog.Int("records", len(reported)))

	summary := output.AuditSummary{
		RunID:        result.Summary.RunID,
		SoTKey:       result.Summary.SoTKey,
		Documents:    result.Summary.Documents,
		Failed:       result.Summary.Failed,
		Reused:       result.Summary.Reused,
		Facts:        result.Summary.Facts,
		Reported:     len(reported),
		ReportPath:   cfg.ReportPath,
		ReportFormat: string(format),
	}
	for _, w := range warnings {
		summary.Warnings = append(summary.Warnings, w.Error())
	}
	for _, doc := range result.Documents {
		if doc.Err != nil {
			summary.FailedDocuments = append(summary.FailedDocuments, doc.Document.Name)
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(summary)
	}
	renderAuditSummary(r, summary, result.Documents)
	return nil
}

// loadTargets merges inline target fields with the target list file. An
// unreadable list is a configuration warning, not a failure.
func loadTargets(cmd *cobra.Command, cfg *config.Config) (report.TargetSet, *config.ConfigurationError) {
	targets := report.NewTargetSet(cfg.TargetFields...)
	if cfg.TargetFieldsFile == "" {
		return targets, nil
	}
	fromFile, err := report.LoadTargets(cmd.Context(), cfg.TargetFieldsFile)
	if err != nil {
		return targets, &config.ConfigurationError{Field: "target_fields_file", Reason: err.Error()}
	}
	targets.Add(fromFile.Names()...)
	if len(fromFile) == 0 {
		return targets, &config.ConfigurationError{
			Field:  "target_fields_file",
			Reason: fmt.Sprintf("%s lists no fields", cfg.TargetFieldsFile),
		}
	}
	return targets, nil
}

func renderAuditSummary(r *output.Renderer, s output.AuditSummary, docs []*audit.DocumentResult) {
	r.Header(1, "Field Usage Audit")

	r.KeyValue("Documents processed", strconv.Itoa(s.Documents))
	r.KeyValue("Documents failed", strconv.Itoa(s.Failed))
	if s.Reused > 0 {
		r.KeyValue("Documents reused", strconv.Itoa(s.Reused))
	}
	r.KeyValue("Usage facts", strconv.Itoa(s.Facts))
	r.KeyValue("Records reported", strconv.Itoa(s.Reported))
	if s.SoTKey != "" {
		r.KeyValue("Source-of-truth key", s.SoTKey)
	}
	r.KeyValue("Report", fmt.Sprintf("%s (%s)", s.ReportPath, s.ReportFormat))
	if s.RunID != "" {
		r.KeyValue("Run", s.RunID)
	}

	if s.Failed > 0 {
		r.Println("")
		r.Header(2, "Failed documents")
		for _, doc := range docs {
			if doc.Err != nil {
				r.StatusLine(doc.Document.Name, "failed", doc.Err.Error())
			}
		}
	}
}
