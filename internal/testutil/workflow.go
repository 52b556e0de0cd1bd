package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/grammar"
)

// WorkflowBuilder assembles workflow XML for tests.
//
//	xml := testutil.NewWorkflow().
//		CalgaryInput("1", `\\share\customers.cydb`).
//		Filter("2", "[Region] = 'West'").
//		Connect("1", "2").
//		String()
type WorkflowBuilder struct {
	nodes []string
	conns []string
}

// NewWorkflow starts an empty workflow.
func NewWorkflow() *WorkflowBuilder {
	return &WorkflowBuilder{}
}

// Node adds a tool. config is the inner XML of Properties/Configuration;
// an empty config omits the Properties element entirely.
func (b *WorkflowBuilder) Node(id, plugin, config string) *WorkflowBuilder {
	var sb strings.Builder
	if id == "" {
		sb.WriteString("<Node>")
	} else {
		fmt.Fprintf(&sb, `<Node ToolID="%s">`, id)
	}
	if plugin != "" {
		fmt.Fprintf(&sb, `<GuiSettings Plugin="%s"/>`, plugin)
	}
	if config != "" {
		fmt.Fprintf(&sb, "<Properties><Configuration>%s</Configuration></Properties>", config)
	}
	sb.WriteString("</Node>")
	b.nodes = append(b.nodes, sb.String())
	return b
}

// Container adds a tool container whose child nodes come from inner.
func (b *WorkflowBuilder) Container(id string, inner *WorkflowBuilder) *WorkflowBuilder {
	b.nodes = append(b.nodes, fmt.Sprintf(
		`<Node ToolID="%s"><GuiSettings Plugin="AlteryxGuiToolkit.ToolContainer.ToolContainer"/><ChildNodes>%s</ChildNodes></Node>`,
		id, strings.Join(inner.nodes, "")))
	return b
}

// CalgaryInput adds a Calgary input reading rootFile.
func (b *WorkflowBuilder) CalgaryInput(id, rootFile string) *WorkflowBuilder {
	return b.Node(id, grammar.ToolCalgaryInput,
		fmt.Sprintf("<RootFileName>%s</RootFileName>", rootFile))
}

// Select adds a Select tool keeping the given fields.
func (b *WorkflowBuilder) Select(id string, fields ...string) *WorkflowBuilder {
	var sb strings.Builder
	sb.WriteString("<SelectFields>")
	for _, f := range fields {
		fmt.Fprintf(&sb, `<SelectField field="%s" selected="True"/>`, f)
	}
	sb.WriteString("</SelectFields>")
	return b.Node(id, grammar.ToolSelect, sb.String())
}

// Filter adds a Filter tool with the given expression.
func (b *WorkflowBuilder) Filter(id, expr string) *WorkflowBuilder {
	return b.Node(id, grammar.ToolFilter,
		fmt.Sprintf("<Expression>%s</Expression>", escape(expr)))
}

// Formula adds a Formula tool writing field from expr.
func (b *WorkflowBuilder) Formula(id, field, expr string) *WorkflowBuilder {
	return b.Node(id, grammar.ToolFormula,
		fmt.Sprintf(`<FormulaFields><FormulaField field="%s" expression="%s"/></FormulaFields>`, field, escape(expr)))
}

// Connect adds a connection from origin to destination.
func (b *WorkflowBuilder) Connect(origin, destination string) *WorkflowBuilder {
	b.conns = append(b.conns, fmt.Sprintf(
		`<Connection><Origin ToolID="%s" Connection="Output"/><Destination ToolID="%s" Connection="Input"/></Connection>`,
		origin, destination))
	return b
}

// String renders the workflow document.
func (b *WorkflowBuilder) String() string {
	return fmt.Sprintf(`<?xml version="1.0"?><AlteryxDocument yxmdVer="2020.1"><Nodes>%s</Nodes><Connections>%s</Connections></AlteryxDocument>`,
		strings.Join(b.nodes, ""), strings.Join(b.conns, ""))
}

// Bytes renders the workflow document.
func (b *WorkflowBuilder) Bytes() []byte {
	return []byte(b.String())
}

// WriteFile writes the workflow to dir/name, sets its modification time when
// modified is non-zero, and returns the path.
func (b *WorkflowBuilder) WriteFile(t testing.TB, dir, name string, modified time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if !modified.IsZero() {
		if err := os.Chtimes(path, modified, modified); err != nil {
			t.Fatalf("set mtime on %s: %v", name, err)
		}
	}
	return path
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
