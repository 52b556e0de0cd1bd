package grammar

// Sentinel field names emitted when a tool passes through a set of fields
// that cannot be enumerated from its configuration.
const (
	UnknownOrDynamicFields = "*UnknownOrDynamicFields*"
	AllIncomingFields      = "*AllIncomingFields*"
	DynamicTemplateFields  = "*FieldsFromDynamicInputTemplate*"
)

// FieldUsage records that a field was read or written by a tool.
type FieldUsage struct {
	FieldName string // Field name as written in the configuration
	Context   string // Tag of the rule that produced the fact, e.g. "join_key_left"
	Detail    string // Free text rationale (expression, SQL, rename info)
	IsOutput  bool   // true if the tool produces or renames the field
}

// Result is everything a rule extracts from one tool configuration.
type Result struct {
	Usages []FieldUsage

	// SourceIdentifier is the root file or source name a tool reads from.
	// Only rules flagged SourceOfTruth set it.
	SourceIdentifier string
}

// collector accumulates usages, dropping facts without a field name.
type collector struct {
	res Result
}

func (c *collector) input(name, context, detail string) {
	c.add(name, context, detail, false)
}

func (c *collector) output(name, context, detail string) {
	c.add(name, context, detail, true)
}

func (c *collector) add(name, context, detail string, isOutput bool) {
	if name == "" {
		return
	}
	c.res.Usages = append(c.res.Usages, FieldUsage{
		FieldName: name,
		Context:   context,
		Detail:    detail,
		IsOutput:  isOutput,
	})
}

func (c *collector) result() Result {
	return c.res
}
