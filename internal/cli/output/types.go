package output

// AuditSummary is the JSON form of an audit run.
type AuditSummary struct {
	RunID           string   `json:"run_id,omitempty"`
	SoTKey          string   `json:"sot_key,omitempty"`
	Documents       int      `json:"documents"`
	Failed          int      `json:"failed"`
	Reused          int      `json:"reused"`
	Facts           int      `json:"facts"`
	Reported        int      `json:"reported"`
	ReportPath      string   `json:"report_path,omitempty"`
	ReportFormat    string   `json:"report_format,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	FailedDocuments []string `json:"failed_documents,omitempty"`
}

// GraphNode is one tool node in graph output.
type GraphNode struct {
	ID       string   `json:"id"`
	Tool     string   `json:"tool"`
	Parents  []string `json:"parents"`
	Children []string `json:"children"`
}

// GraphLevel is one execution level.
type GraphLevel struct {
	Level int         `json:"level"`
	Nodes []GraphNode `json:"nodes"`
}

// GraphOutput is the JSON form of the graph command.
type GraphOutput struct {
	Document   string       `json:"document"`
	Levels     []GraphLevel `json:"levels,omitempty"`
	TotalNodes int          `json:"total_nodes"`
	TotalEdges int          `json:"total_edges"`
	HasCycle   bool         `json:"has_cycle"`
}

// LineageOutput is the JSON form of the lineage command.
type LineageOutput struct {
	Document  string   `json:"document"`
	SoTKey    string   `json:"sot_key"`
	Origins   []string `json:"origins"`
	Reachable []string `json:"reachable"`
}

// ToolInfo describes one registered tool variant.
type ToolInfo struct {
	ToolType    string `json:"tool_type"`
	Criticality int    `json:"criticality"`
	SoTCapable  bool   `json:"sot_capable"`
}

// CollectOutput is the JSON form of the collect command.
type CollectOutput struct {
	Source      string         `json:"source"`
	Destination string         `json:"destination"`
	Found       int            `json:"found"`
	Copied      int            `json:"copied"`
	Failed      []CollectError `json:"failed,omitempty"`
}

// CollectError is one file the collect command could not copy.
type CollectError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// FieldCount is one entry of the usages summary.
type FieldCount struct {
	FieldName string `json:"field_name"`
	Usages    int    `json:"usages"`
	Documents int    `json:"documents"`
}
