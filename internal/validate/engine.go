// Package validate runs structural schema validation and semantic lint rules
// over advisory documents, producing ordered findings.
package validate

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/csaf_2.0.json
var csafSchemaJSON []byte

// Reserved rule IDs for structural findings.
const (
	// StructureRuleID marks findings from documents that are not valid JSON.
	StructureRuleID = "structure"

	// SchemaRuleID marks findings from schema violations.
	SchemaRuleID = "schema"
)

const schemaID = "https://docs.oasis-open.org/csaf/csaf/v2.0/csaf_json_schema.json"

// Engine validates documents: first against the CSAF schema, then with the
// configured semantic rules. Rules only run on structurally valid documents,
// and each rule evaluates independently of the others.
type Engine struct {
	schema  *jsonschema.Schema
	rules   []Rule
	printer *message.Printer
	logger  *zap.Logger
}

// NewEngine compiles the embedded CSAF schema and resolves the requested
// rule set. An unknown rule name is a configuration fault.
func NewEngine(ruleNames []string, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(csafSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded CSAF schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaID, doc); err != nil {
		return nil, fmt.Errorf("failed to register CSAF schema: %w", err)
	}
	schema, err := compiler.Compile(schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to compile CSAF schema: %w", err)
	}

	rules, err := RulesByName(ruleNames)
	if err != nil {
		return nil, err
	}

	return &Engine{
		schema:  schema,
		rules:   rules,
		printer: message.NewPrinter(language.English),
		logger:  logger,
	}, nil
}

// Validate produces the ordered findings for one document.
func (e *Engine) Validate(doc Document) []Finding {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc.Bytes))
	if err != nil {
		return []Finding{{
			RuleID:   StructureRuleID,
			Severity: SeverityError,
			Message:  fmt.Sprintf("document is not valid JSON: %v", err),
		}}
	}

	if err := e.schema.Validate(instance); err != nil {
		return e.schemaFindings(err)
	}

	var findings []Finding
	for _, rule := range e.rules {
		findings = append(findings, rule.Check(doc)...)
	}
	e.logger.Debug("Validated document",
		zap.String("url", doc.URL),
		zap.Int("findings", len(findings)))
	return findings
}

// schemaFindings flattens a schema validation error into one finding per
// leaf cause.
func (e *Engine) schemaFindings(err error) []Finding {
	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []Finding{{
			RuleID:   SchemaRuleID,
			Severity: SeverityError,
			Message:  err.Error(),
		}}
	}

	var findings []Finding
	var collect func(*jsonschema.ValidationError)
	collect = func(ve *jsonschema.ValidationError) {
		if len(ve.Causes) == 0 {
			findings = append(findings, Finding{
				RuleID:   SchemaRuleID,
				Severity: SeverityError,
				Location: "/" + strings.Join(ve.InstanceLocation, "/"),
				Message:  ve.ErrorKind.LocalizedString(e.printer),
			})
			return
		}
		for _, cause := range ve.Causes {
			collect(cause)
		}
	}
	collect(validationErr)
	return findings
}
