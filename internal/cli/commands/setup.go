package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/config"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/output"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/grammar"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/source"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/state"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/workflow"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Registry *grammar.Registry
	Source   *source.Store
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
		Registry: grammar.Default(),
		Source: source.New(source.Options{
			Extensions: cfg.Extensions,
			Recursive:  cfg.Recursive,
			Logger:     logger,
		}),
	}
}

// OpenStore opens the state database. Returns the store and a cleanup
// function that must be called (typically via defer).
func (c *CommandContext) OpenStore() (*state.SQLiteStore, func(), error) {
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// LoadDocument reads and parses one workflow document from a path or URL.
func (c *CommandContext) LoadDocument(ctx context.Context, location string) (*workflow.Document, error) {
	doc := source.Document{
		URL:  source.Normalize(location),
		Name: filepath.Base(location),
	}
	reader, err := c.Source.Open(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	return workflow.Parse(reader, doc.Name, time.Time{}, workflow.ParseOptions{
		Registry: c.Registry,
		Logger:   c.Logger,
	})
}

// getConfig returns the current configuration, loading it from the
// environment when the root command has not.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	if cfg, err := config.LoadConfig("", nil); err == nil {
		return cfg
	}
	return &config.Config{
		WorkflowsDir: config.DefaultWorkflowsDir,
		Extensions:   config.DefaultExtensions,
		ReportPath:   config.DefaultReportPath,
		ReportFormat: config.DefaultReportFormat,
		OutputFormat: config.DefaultOutput,
		StatePath:    config.DefaultStateFile,
	}
}
