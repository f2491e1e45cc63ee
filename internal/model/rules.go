package model

// RuleEngine discriminates how a rule's query is evaluated.
type RuleEngine string

const (
	// EngineNaming rules carry a regex tested against entity names.
	EngineNaming RuleEngine = "naming"
	// EngineStructural rules carry a comma-separated list of syntax-tree
	// node types to collect.
	EngineStructural RuleEngine = "structural"
	// EngineSemgrep and anything else requires network-side evaluation and
	// is skipped by the local store.
	EngineSemgrep RuleEngine = "semgrep"
)

// Severity ranks rule violations.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Rule is the locally evaluable subset of a naming/structural rule.
type Rule struct {
	ID       string     `json:"id"`
	Scope    string     `json:"scope,omitempty"`
	Severity Severity   `json:"severity"`
	Engine   RuleEngine `json:"engine"`
	// Query is a regex for naming rules, a comma-separated set of node-type
	// names for structural rules.
	Query    string `json:"query"`
	Message  string `json:"message"`
	FileGlob string `json:"fileGlob,omitempty"`
	Enabled  bool   `json:"enabled"`
	// Metadata is the open extension map for genuinely schema-less rule
	// data; everything with fixed meaning has its own field.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Pattern is a named architectural pattern shipped alongside rules in a
// snapshot for local reference.
type Pattern struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Concepts    []string `json:"concepts,omitempty"`
}
