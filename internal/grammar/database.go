package grammar

import (
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

var databaseRules = []Rule{
	{ToolType: ToolDbFileInput, Name: "Input (database/file)", Extract: extractDbFileInput},
}

// sqlKeywords are never reported as referenced fields.
var sqlKeywords = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "JOIN": {}, "LEFT": {}, "RIGHT": {},
	"ON": {}, "AS": {}, "GROUP": {}, "BY": {}, "ORDER": {}, "AND": {}, "OR": {}, "NOT": {},
}

var (
	selectListPattern = regexp.MustCompile(`(?is)SELECT\s+(.*?)\s+FROM`)
	aliasPattern      = regexp.MustCompile(`(?i)^(\S+)\s+AS\s+(\S+)`)
	identPattern      = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_]*)\b`)
)

// fileQuerySeparator splits a connection string from an embedded query in the
// File element of a database input ("odbc:...|||SELECT ...").
const fileQuerySeparator = "|||"

// extractDbFileInput reads the SQL the tool runs, if any, plus the explicit
// selected-field list. SQL handling is regex based and best effort.
func extractDbFileInput(cfg *etree.Element) (Result, error) {
	var c collector

	if query := queryText(cfg); query != "" {
		c.sqlFields(query)
	}

	for _, field := range cfg.FindElements("SelectedFields/Field") {
		c.output(field.SelectAttrValue("name", ""), "dbfileinput_table_output_field", "Selected from table/view")
	}

	return c.result(), nil
}

// queryText finds the query in the Query element, or embedded in File.
func queryText(cfg *etree.Element) string {
	if q := cfg.FindElement("Query"); q != nil && strings.TrimSpace(q.Text()) != "" {
		return strings.TrimSpace(q.Text())
	}

	file := cfg.FindElement("File")
	if file == nil || file.Text() == "" {
		return ""
	}
	text := file.Text()

	if parts := strings.Split(text, fileQuerySeparator); len(parts) > 1 {
		lower := strings.ToLower(parts[1])
		for _, kw := range []string{"select ", " from ", " where "} {
			if strings.Contains(lower, kw) {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	if strings.Contains(strings.ToLower(text), "select ") {
		return strings.TrimSpace(text)
	}
	return ""
}

// sqlFields emits the select-list outputs (with "expr AS alias" split into a
// source input and an alias output) and every non-keyword identifier in the
// query as a referenced input.
func (c *collector) sqlFields(query string) {
	detail := "SQL Query: " + query

	if m := selectListPattern.FindStringSubmatch(query); m != nil {
		for _, item := range strings.Split(m[1], ",") {
			item = strings.TrimSpace(item)
			if am := aliasPattern.FindStringSubmatch(item); am != nil {
				c.output(trimQuotes(am[2]), "dbfileinput_query_output_field", detail)
				c.input(trimQuotes(am[1]), "dbfileinput_query_source_field", detail)
				continue
			}
			c.output(trimQuotes(item), "dbfileinput_query_output_field", detail)
		}
	}

	for _, ident := range SQLIdentifiers(query) {
		c.input(ident, "dbfileinput_query_referenced_field", detail)
	}
}

// SQLIdentifiers returns the distinct bare identifiers of query that are not
// in the keyword exclusion set, in order of first appearance.
func SQLIdentifiers(query string) []string {
	seen := make(map[string]struct{})
	var idents []string
	for _, m := range identPattern.FindAllStringSubmatch(query, -1) {
		ident := m[1]
		if _, kw := sqlKeywords[strings.ToUpper(ident)]; kw {
			continue
		}
		if _, ok := seen[ident]; ok {
			continue
		}
		seen[ident] = struct{}{}
		idents = append(idents, ident)
	}
	return idents
}

func trimQuotes(s string) string {
	return strings.Trim(s, "[]\"` ")
}
