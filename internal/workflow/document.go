package workflow

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/grammar"
)

// errNoRoot is returned for input without a root element.
var errNoRoot = errors.New("document has no root element")

// Edge is a data connection between two tools.
type Edge struct {
	Origin      string
	Destination string
}

// Document is a parsed workflow: its tools in document order plus the
// connections between them.
type Document struct {
	Name         string
	LastModified time.Time // zero when unknown

	Nodes []*ToolNode
	Edges []Edge

	index map[string]int
}

// Node returns the tool with the given id.
func (d *Document) Node(id string) (*ToolNode, bool) {
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return d.Nodes[i], true
}

// ParseOptions configures Parse.
type ParseOptions struct {
	// Registry selects the grammar; nil means grammar.Default().
	Registry *grammar.Registry
	// Logger receives warnings about malformed nodes; nil discards them.
	Logger *slog.Logger
}

// DocumentParseError reports a workflow that is not well-formed XML.
type DocumentParseError struct {
	Document string
	Err      error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("parse workflow %s: %v", e.Document, e.Err)
}

func (e *DocumentParseError) Unwrap() error {
	return e.Err
}

// Parse reads a workflow document. Every <Node> element, including those
// nested inside containers, becomes a ToolNode. Connections are read from the
// top-level <Connections> element; endpoints without a ToolID are skipped.
func Parse(r io.Reader, name string, modified time.Time, opts ParseOptions) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &DocumentParseError{Document: name, Err: err}
	}
	return ParseBytes(data, name, modified, opts)
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte, name string, modified time.Time, opts ParseOptions) (*Document, error) {
	reg := opts.Registry
	if reg == nil {
		reg = grammar.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	xml := etree.NewDocument()
	xml.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := xml.ReadFromBytes(data); err != nil {
		return nil, &DocumentParseError{Document: name, Err: err}
	}
	root := xml.Root()
	if root == nil {
		return nil, &DocumentParseError{Document: name, Err: errNoRoot}
	}

	doc := &Document{
		Name:         name,
		LastModified: modified,
		index:        make(map[string]int),
	}

	for _, el := range root.FindElements(".//Node") {
		node := NewToolNode(el, reg)
		if node.Err != nil {
			logger.Warn("tool configuration not readable",
				"document", name, "tool_id", node.ID, "tool_type", node.ToolType, "error", node.Err)
		}
		if i, dup := doc.index[node.ID]; dup {
			logger.Warn("duplicate tool id, later node wins",
				"document", name, "tool_id", node.ID)
			doc.Nodes[i] = node
			continue
		}
		doc.index[node.ID] = len(doc.Nodes)
		doc.Nodes = append(doc.Nodes, node)
	}

	if conns := root.SelectElement("Connections"); conns != nil {
		for _, c := range conns.SelectElements("Connection") {
			origin := endpointID(c, "Origin")
			dest := endpointID(c, "Destination")
			if origin == "" || dest == "" {
				continue
			}
			doc.Edges = append(doc.Edges, Edge{Origin: origin, Destination: dest})
		}
	}

	logger.Debug("parsed workflow",
		"document", name, "nodes", len(doc.Nodes), "edges", len(doc.Edges))

	return doc, nil
}

func endpointID(conn *etree.Element, side string) string {
	el := conn.SelectElement(side)
	if el == nil {
		return ""
	}
	return el.SelectAttrValue("ToolID", "")
}
