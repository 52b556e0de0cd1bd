// Package config provides configuration management for the fieldaudit CLI.
//
// Values are layered with koanf: built-in defaults, then fieldaudit.yaml,
// then FIELDAUDIT_* environment variables, then explicitly set flags.
package config

import (
	"fmt"
	"runtime"
)

// Default configuration values.
const (
	DefaultWorkflowsDir = "."
	DefaultReportPath   = "field_usage_report.csv"
	DefaultReportFormat = "csv"
	DefaultStateFile    = ".fieldaudit/state.db"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// DefaultExtensions are the workflow document suffixes audited by default.
var DefaultExtensions = []string{".yxmd", ".xml"}

// Config holds all CLI configuration options.
type Config struct {
	WorkflowsDir     string   `koanf:"workflows_dir"`
	Extensions       []string `koanf:"extensions"`
	Recursive        bool     `koanf:"recursive"`
	SoTKey           string   `koanf:"sot_key"`
	TargetFieldsFile string   `koanf:"target_fields_file"`
	TargetFields     []string `koanf:"target_fields"`
	ReportPath       string   `koanf:"report_path"`
	ReportFormat     string   `koanf:"report_format"`
	OutputFormat     string   `koanf:"output"`
	StatePath        string   `koanf:"state_path"` // empty disables the state store
	Incremental      bool     `koanf:"incremental"`
	Workers          int      `koanf:"workers"`
	Verbose          bool     `koanf:"verbose"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EffectiveWorkers resolves Workers, where 0 means GOMAXPROCS.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// ConfigurationError reports a setting that is missing or unusable. It is
// not fatal: the audit degrades and prints it as a warning.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
