package config

import (
	"fmt"
	"os"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/cli/output"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/report"
)

// Validate checks values that no command can run with.
func (c *Config) Validate() error {
	if c.WorkflowsDir == "" {
		return fmt.Errorf("workflows_dir is required")
	}
	if _, err := report.ParseFormat(c.ReportFormat); err != nil {
		return fmt.Errorf("report_format: %w", err)
	}
	if !output.ValidMode(c.OutputFormat) {
		return fmt.Errorf("output: unknown mode %q (want one of %v)", c.OutputFormat, output.Modes)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Incremental && c.StatePath == "" {
		return fmt.Errorf("incremental requires state_path")
	}
	return nil
}

// ValidateDirectories checks that the workflows directory exists. Locations
// with a URL scheme are checked when listed.
func (c *Config) ValidateDirectories() error {
	if isURL(c.WorkflowsDir) {
		return nil
	}
	if _, err := os.Stat(c.WorkflowsDir); os.IsNotExist(err) {
		return fmt.Errorf("workflows directory does not exist: %s\nHint: Create the directory or use --workflows-dir to specify a different path", c.WorkflowsDir)
	}
	return nil
}

// Warnings returns the settings the audit degrades without: no
// source-of-truth key disables the reachability filter, and no target fields
// leaves the report empty.
func (c *Config) Warnings() []*ConfigurationError {
	var warnings []*ConfigurationError
	if c.SoTKey == "" {
		warnings = append(warnings, &ConfigurationError{
			Field:  "sot_key",
			Reason: "not set; downstream flags are all 0 and the report is not restricted by lineage",
		})
	}
	if c.TargetFieldsFile == "" && len(c.TargetFields) == 0 {
		warnings = append(warnings, &ConfigurationError{
			Field:  "target_fields",
			Reason: "no target fields configured; the report will be empty",
		})
	}
	return warnings
}
