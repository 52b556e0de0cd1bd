package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, set map[string]string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	for name, value := range set {
		require.NoError(t, flags.Set(name, value))
	}
	return flags
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "fieldaudit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Empty(t, GetConfigFileUsed())
	assert.Equal(t, tmpDir, cfg.ProjectRoot)
	assert.Equal(t, tmpDir, cfg.WorkflowsDir)
	assert.Equal(t, []string{".yxmd", ".xml"}, cfg.Extensions)
	assert.Equal(t, filepath.Join(tmpDir, DefaultReportPath), cfg.ReportPath)
	assert.Equal(t, filepath.Join(tmpDir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, DefaultReportFormat, cfg.ReportFormat)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.False(t, cfg.Recursive)
	assert.False(t, cfg.Incremental)
	assert.Empty(t, cfg.SoTKey)
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	tmpDir := t.TempDir()
	cfgPath := writeConfig(t, tmpDir, `workflows_dir: workflows
extensions: [".YXMD"]
recursive: true
sot_key: golden_customers
target_fields_file: targets.csv
target_fields: [Amount, Region]
report_format: json
workers: 4
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(tmpDir, "workflows"), cfg.WorkflowsDir)
	assert.Equal(t, filepath.Join(tmpDir, "targets.csv"), cfg.TargetFieldsFile)
	assert.Equal(t, []string{".yxmd"}, cfg.Extensions)
	assert.Equal(t, []string{"Amount", "Region"}, cfg.TargetFields)
	assert.True(t, cfg.Recursive)
	assert.Equal(t, "golden_customers", cfg.SoTKey)
	assert.Equal(t, "json", cfg.ReportFormat)
	assert.Equal(t, 4, cfg.EffectiveWorkers())
}

func TestLoadConfig_SearchesUpward(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	writeConfig(t, root, "sot_key: upstream\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "upstream", cfg.SoTKey)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, root, cfg.WorkflowsDir)
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		flags map[string]string
		want  string
	}{
		{name: "file only", want: "from_file"},
		{name: "env over file", env: "from_env", want: "from_env"},
		{name: "flag over env", env: "from_env", flags: map[string]string{"sot-key": "from_flag"}, want: "from_flag"},
		{name: "unset flag keeps env", env: "from_env", flags: map[string]string{}, want: "from_env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			cfgPath := writeConfig(t, t.TempDir(), "sot_key: from_file\n")
			if tt.env != "" {
				t.Setenv("FIELDAUDIT_SOT_KEY", tt.env)
			}
			var flags *pflag.FlagSet
			if tt.flags != nil {
				flags = newFlags(t, tt.flags)
			}

			cfg, err := LoadConfig(cfgPath, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.SoTKey)
		})
	}
}

func TestLoadConfig_EnvLists(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, t.TempDir(), "")
	t.Setenv("FIELDAUDIT_TARGET_FIELDS", "Amount, Region,,")
	t.Setenv("FIELDAUDIT_EXTENSIONS", "yxmd,.XML")
	t.Setenv("FIELDAUDIT_RECURSIVE", "true")
	t.Setenv("FIELDAUDIT_WORKERS", "3")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Amount", "Region"}, cfg.TargetFields)
	assert.Equal(t, []string{".yxmd", ".xml"}, cfg.Extensions)
	assert.True(t, cfg.Recursive)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoadConfig_FlagPaths(t *testing.T) {
	ResetConfig()
	projectDir := t.TempDir()
	cfgPath := writeConfig(t, projectDir, "workflows_dir: from_file\n")
	cwd := t.TempDir()
	t.Chdir(cwd)

	flags := newFlags(t, map[string]string{
		"workflows-dir": "flows",
		"state":         "state/audit.db",
		"report-path":   "mem://localhost/report.csv",
		"target-fields": "A,B",
	})

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "flows"), cfg.WorkflowsDir, "flag paths are relative to the current directory")
	assert.Equal(t, filepath.Join(cwd, "state", "audit.db"), cfg.StatePath, "--state maps to state_path")
	assert.Equal(t, "mem://localhost/report.csv", cfg.ReportPath, "URLs are not resolved")
	assert.Equal(t, []string{"A", "B"}, cfg.TargetFields)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"bad report format", "report_format: xlsx\n", "report_format"},
		{"bad output", "output: html\n", "output"},
		{"negative workers", "workers: -1\n", "workers"},
		{"incremental without state", "incremental: true\nstate_path: \"\"\n", "incremental"},
		{"malformed yaml", "sot_key: [\n", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			cfgPath := writeConfig(t, t.TempDir(), tt.content)
			_, err := LoadConfig(cfgPath, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateDirectories(t *testing.T) {
	cfg := &Config{WorkflowsDir: filepath.Join(t.TempDir(), "missing")}
	err := cfg.ValidateDirectories()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--workflows-dir")

	cfg.WorkflowsDir = t.TempDir()
	assert.NoError(t, cfg.ValidateDirectories())

	cfg.WorkflowsDir = "mem://localhost/flows"
	assert.NoError(t, cfg.ValidateDirectories())
}

func TestConfig_Warnings(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		fields []string
	}{
		{"nothing configured", Config{}, []string{"sot_key", "target_fields"}},
		{"key only", Config{SoTKey: "golden"}, []string{"target_fields"}},
		{"inline targets", Config{TargetFields: []string{"A"}}, []string{"sot_key"}},
		{"complete", Config{SoTKey: "golden", TargetFieldsFile: "t.csv"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fields []string
			for _, w := range tt.cfg.Warnings() {
				fields = append(fields, w.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}
}

func TestConfigurationError(t *testing.T) {
	var err error = &ConfigurationError{Field: "sot_key", Reason: "not set"}
	assert.Equal(t, "sot_key: not set", err.Error())

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := NewLogger(&discardWriter{}, true)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.Equal(t, loggerKey{}, LoggerKey())
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
