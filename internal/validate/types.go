package validate

// Severity grades a finding.
type Severity string

// Finding severities, worst first.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one validation observation about a document.
type Finding struct {
	// RuleID names the rule that produced the finding. Structural findings
	// carry the reserved IDs "structure" and "schema".
	RuleID string `json:"ruleId"`

	// Severity grades the finding. A document is valid exactly when it has
	// no error-severity finding.
	Severity Severity `json:"severity"`

	// Location is a JSON pointer-style path into the document, when known.
	Location string `json:"location,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`
}

// Document is the unit a rule evaluates: the raw bytes plus the URL the
// document was retrieved from, for rules that check naming conventions.
type Document struct {
	URL   string
	Bytes []byte
}

// Rule is one independent lint check. Rules assume a structurally valid
// document; the engine never runs them on documents that failed the schema.
type Rule interface {
	// ID returns the stable rule identifier used in configuration.
	ID() string

	// Check evaluates the rule and returns its findings. An empty result
	// means the document passes.
	Check(doc Document) []Finding
}

// HasErrors reports whether any finding is of error severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
