// Package report selects the usage records of target fields and writes them
// in a fixed column layout.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"gopkg.in/yaml.v3"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/audit"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/source"
)

// Format is a report encoding.
type Format string

// Supported formats.
const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatTable    Format = "table"
)

// Formats lists the supported formats.
var Formats = []Format{FormatCSV, FormatJSON, FormatYAML, FormatMarkdown, FormatTable}

// ParseFormat validates a format name. "md" and "yml" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "table":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Columns is the fixed column order of every report.
var Columns = []string{
	"FileName", "LastModified", "ToolID", "Tool", "FieldName",
	"UsageContext", "FieldUsage", "IsDownstreamSOT", "UsageCriticality",
}

// Row is a report line as written.
type Row struct {
	FileName         string `json:"FileName" yaml:"FileName"`
	LastModified     string `json:"LastModified" yaml:"LastModified"`
	ToolID           string `json:"ToolID" yaml:"ToolID"`
	Tool             string `json:"Tool" yaml:"Tool"`
	FieldName        string `json:"FieldName" yaml:"FieldName"`
	UsageContext     string `json:"UsageContext" yaml:"UsageContext"`
	FieldUsage       string `json:"FieldUsage" yaml:"FieldUsage"`
	IsDownstreamSOT  int    `json:"IsDownstreamSOT" yaml:"IsDownstreamSOT"`
	UsageCriticality int    `json:"UsageCriticality" yaml:"UsageCriticality"`
}

// NewRow converts a record to its written form.
func NewRow(r audit.Record) Row {
	return Row{
		FileName:         r.FileName,
		LastModified:     r.LastModifiedString(),
		ToolID:           r.ToolID,
		Tool:             r.Tool,
		FieldName:        r.FieldName,
		UsageContext:     r.UsageContext,
		FieldUsage:       r.FieldUsage,
		IsDownstreamSOT:  r.DownstreamFlag(),
		UsageCriticality: r.UsageCriticality,
	}
}

func (r Row) values() []string {
	return []string{
		r.FileName, r.LastModified, r.ToolID, r.Tool, r.FieldName,
		r.UsageContext, r.FieldUsage,
		strconv.Itoa(r.IsDownstreamSOT), strconv.Itoa(r.UsageCriticality),
	}
}

// Filter keeps the records whose field is a target. When sotActive is set,
// only records flagged downstream of the source of truth are kept. An empty
// target set selects nothing.
func Filter(records []audit.Record, targets TargetSet, sotActive bool) []audit.Record {
	if len(targets) == 0 {
		return nil
	}
	var out []audit.Record
	for _, r := range records {
		if !targets.Has(r.FieldName) {
			continue
		}
		if sotActive && !r.IsDownstreamSOT {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Write encodes records to w.
func Write(w io.Writer, format Format, records []audit.Record) error {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = NewRow(r)
	}

	switch format {
	case FormatCSV, "":
		return writeCSV(w, rows)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown:
		newTable(w, rows, table.StyleDefault).RenderMarkdown()
		return nil
	case FormatTable:
		newTable(w, rows, table.StyleLight).Render()
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteFile encodes records and stores them at an afs location, replacing
// any existing file.
func WriteFile(ctx context.Context, location string, format Format, records []audit.Record) error {
	var buf bytes.Buffer
	if err := Write(&buf, format, records); err != nil {
		return err
	}
	location = source.Normalize(location)
	fs := afs.New()
	if err := fs.Upload(ctx, location, file.DefaultFileOsMode, &buf); err != nil {
		return fmt.Errorf("write report %s: %w", location, err)
	}
	return nil
}

func writeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// newTable keeps column names as written; go-pretty upper-cases headers by default.
func newTable(w io.Writer, rows []Row, style table.Style) table.Writer {
	style.Format.Header = text.FormatDefault

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(style)

	header := make(table.Row, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, r := range rows {
		vals := r.values()
		row := make(table.Row, len(vals))
		for i, v := range vals {
			row[i] = v
		}
		t.AppendRow(row)
	}
	return t
}
