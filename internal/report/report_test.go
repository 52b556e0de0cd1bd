package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/audit"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/grammar"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/testutil"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/workflow"
)

// =============================================================================
// Test Helpers
// =============================================================================

func sampleRecords() []audit.Record {
	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	return []audit.Record{
		{FileName: "a.yxmd", LastModified: modified, ToolID: "1", Tool: grammar.ToolFilter,
			FieldName: "Amount", UsageContext: "filter_expression_input", FieldUsage: `[Amount] > 0, "big"`,
			IsDownstreamSOT: true, UsageCriticality: 5},
		{FileName: "a.yxmd", ToolID: "2", Tool: grammar.ToolSort,
			FieldName: "Region", UsageContext: "sort_key_field", FieldUsage: "Order: Ascending",
			UsageCriticality: 2},
		{FileName: "b.yxmd", LastModified: modified, ToolID: "7", Tool: grammar.ToolSelect,
			FieldName: "Amount", UsageContext: "select_input_field", FieldUsage: "Selected, renamed to: N/A"},
	}
}

// =============================================================================
// Filter
// =============================================================================

func TestFilter(t *testing.T) {
	records := sampleRecords()

	tests := []struct {
		name      string
		targets   TargetSet
		sotActive bool
		wantTools []string
	}{
		{"target match, sot inactive", NewTargetSet("Amount"), false, []string{"1", "7"}},
		{"target match, sot active", NewTargetSet("Amount"), true, []string{"1"}},
		{"two targets", NewTargetSet("Amount", "Region"), false, []string{"1", "2", "7"}},
		{"no match", NewTargetSet("Missing"), false, nil},
		{"empty target set", NewTargetSet(), false, nil},
		{"nil target set", nil, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range Filter(records, tt.targets, tt.sotActive) {
				got = append(got, r.ToolID)
			}
			assert.Equal(t, tt.wantTools, got)
		})
	}
}

func TestFilter_RenameScenario(t *testing.T) {
	wf := testutil.NewWorkflow().
		Node("1", grammar.ToolSelect, `<SelectFields><SelectField field="A" selected="True" rename="B"/></SelectFields>`).
		Node("2", grammar.ToolSummarize, `<SummarizeFields><SummarizeField field="B" action="GroupBy"/></SummarizeFields>`).
		Connect("1", "2")
	doc, err := workflow.ParseBytes(wf.Bytes(), "flow.yxmd", time.Time{}, workflow.ParseOptions{})
	require.NoError(t, err)

	got := Filter(audit.Aggregate(doc, nil), NewTargetSet("B"), false)

	var selectorOutput, aggregationInput bool
	for _, r := range got {
		assert.Equal(t, "B", r.FieldName)
		if r.ToolID == "1" && r.IsOutput {
			selectorOutput = true
		}
		if r.ToolID == "2" && !r.IsOutput {
			aggregationInput = true
		}
	}
	assert.True(t, selectorOutput)
	assert.True(t, aggregationInput)
}

// =============================================================================
// Targets
// =============================================================================

func TestReadTargets(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"header skipped", "FieldName\nAmount\nRegion\n", []string{"Amount", "Region"}},
		{"blank lines and cells ignored", "Field\n\nAmount\n ,x\n  Region  \n", []string{"Amount", "Region"}},
		{"first column only", "Field,Note\nAmount,money\nRegion,geo\n", []string{"Amount", "Region"}},
		{"utf-8 bom", "\xef\xbb\xbfField\nAmount\n", []string{"Amount"}},
		{"header only", "Field\n", []string{}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ReadTargets(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.Names())
		})
	}
}

func TestReadTargets_BOMNotPartOfFirstField(t *testing.T) {
	// Without a header row the BOM would otherwise stick to the first name.
	set, err := ReadTargets(strings.NewReader("\xef\xbb\xbfAmount\nRegion\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Region"}, set.Names())
	assert.False(t, set.Has("\ufeffAmount"))
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.csv")
	require.NoError(t, os.WriteFile(path, []byte("Field\nAmount\n"), 0o644))

	set, err := LoadTargets(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, set.Has("Amount"))

	_, err = LoadTargets(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

// =============================================================================
// Writers
// =============================================================================

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{
		"a.yxmd", "2024-01-02 03:04:05", "1", grammar.ToolFilter, "Amount",
		"filter_expression_input", `[Amount] > 0, "big"`, "1", "5",
	}, rows[1])
	assert.Equal(t, "N/A", rows[2][1], "unknown modification time")
	assert.Equal(t, "0", rows[2][7])
}

func TestWrite_CSVHeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, nil))
	assert.Equal(t, strings.Join(Columns, ",")+"\n", buf.String())
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleRecords()))

	var rows []Row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].IsDownstreamSOT)
	assert.Equal(t, "Region", rows[1].FieldName)
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sampleRecords()))

	var rows []Row
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, 5, rows[0].UsageCriticality)
}

func TestWrite_MarkdownAndTable(t *testing.T) {
	for _, format := range []Format{FormatMarkdown, FormatTable} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, format, sampleRecords()))
			out := buf.String()
			assert.Contains(t, out, "UsageCriticality")
			assert.Contains(t, out, "sort_key_field")
		})
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("xlsx"), nil))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"md", FormatMarkdown, false},
		{"yml", FormatYAML, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"xlsx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	require.NoError(t, WriteFile(context.Background(), path, FormatCSV, sampleRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "FileName,LastModified,"))
}
