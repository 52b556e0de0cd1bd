package config

import "github.com/spf13/pflag"

// BindFlags registers the persistent flags that override configuration keys.
func BindFlags(fs *pflag.FlagSet) {
	fs.StringP("workflows-dir", "d", "", "Directory or URL holding workflow documents")
	fs.StringSlice("extensions", nil, "Workflow document suffixes (default .yxmd,.xml)")
	fs.BoolP("recursive", "r", false, "Include documents in subdirectories")
	fs.StringP("sot-key", "k", "", "Source-of-truth key matched against input tool source identifiers")
	fs.StringP("target-fields-file", "f", "", "CSV file whose first column lists the target fields")
	fs.StringSlice("target-fields", nil, "Target field names, comma-separated")
	fs.String("report-path", "", "Report destination path or URL (default field_usage_report.csv)")
	fs.String("report-format", "", "Report format (csv|json|yaml|markdown|table)")
	fs.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	fs.String("state", "", "Path to state database (default .fieldaudit/state.db)")
	fs.Bool("incremental", false, "Reuse stored results for unchanged documents")
	fs.IntP("workers", "j", 0, "Documents processed concurrently (0 = GOMAXPROCS)")
	fs.BoolP("verbose", "v", false, "Verbose output")
}
