// Package audit turns parsed workflows into flat field-usage records and runs
// the extraction over a batch of documents.
package audit

import (
	"strings"
	"time"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/grammar"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/lineage"
	"github.com/ptitty12/AlteryxDependencyTracker/internal/workflow"
)

// TimeLayout formats LastModified in reports.
const TimeLayout = "2006-01-02 15:04:05"

// NotAvailable stands in for an unknown LastModified.
const NotAvailable = "N/A"

// Record is one field usage by one tool in one workflow.
type Record struct {
	FileName         string
	LastModified     time.Time
	ToolID           string
	Tool             string
	FieldName        string
	UsageContext     string
	FieldUsage       string // detail text
	IsOutput         bool
	IsDownstreamSOT  bool
	UsageCriticality int
}

// LastModifiedString formats LastModified in local time, or N/A when unknown.
func (r Record) LastModifiedString() string {
	if r.LastModified.IsZero() {
		return NotAvailable
	}
	return r.LastModified.Local().Format(TimeLayout)
}

// DownstreamFlag is IsDownstreamSOT as 0 or 1.
func (r Record) DownstreamFlag() int {
	if r.IsDownstreamSOT {
		return 1
	}
	return 0
}

// criticality weights tool types by governance importance.
var criticality = map[string]int{
	grammar.ToolSelect:                0,
	grammar.ToolFilter:                5,
	grammar.ToolFormula:               5,
	grammar.ToolJoin:                  5,
	grammar.ToolSort:                  2,
	grammar.ToolSummarize:             1,
	grammar.ToolSummarizeConfigurable: 1,
	grammar.ToolCalgaryLoader:         2,
	grammar.ToolCalgaryInput:          5,
	grammar.ToolCalgaryJoin:           5,
	"TableauOutput_1_3_1":             4,
	"TableauOutput_1_4_0":             4,
}

// tableauDefault scores Tableau output versions missing from the table.
const tableauDefault = 4

// Criticality returns the score of a tool type. Unmapped types score 0.
func Criticality(toolType string) int {
	if score, ok := criticality[toolType]; ok {
		return score
	}
	if strings.HasPrefix(toolType, grammar.ToolTableauOutputPrefix) {
		return tableauDefault
	}
	return 0
}

// Aggregate emits one record per usage fact of every tool in doc, in
// document order. set may be nil or inactive, in which case no record is
// flagged downstream.
func Aggregate(doc *workflow.Document, set *lineage.ReachabilitySet) []Record {
	active := set.Active()

	var records []Record
	for _, node := range doc.Nodes {
		downstream := active && set.Contains(node.ID)
		score := Criticality(node.ToolType)
		for _, u := range node.Usages {
			records = append(records, Record{
				FileName:         doc.Name,
				LastModified:     doc.LastModified,
				ToolID:           node.ID,
				Tool:             node.ToolType,
				FieldName:        u.FieldName,
				UsageContext:     u.Context,
				FieldUsage:       u.Detail,
				IsOutput:         u.IsOutput,
				IsDownstreamSOT:  downstream,
				UsageCriticality: score,
			})
		}
	}
	return records
}
