package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/manifest.schema.json
var schemaBytes []byte

const schemaURL = "manifest.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
	printer    = message.NewPrinter(language.English)
)

// ValidationResult is the outcome of validating a manifest override.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue is a single schema violation.
type ValidationIssue struct {
	Path    string // instance location, e.g. "/categories/0/root"
	Message string
	Keyword string // failing schema keyword, e.g. "pattern"
}

// Summary joins the issues into one line.
func (r *ValidationResult) Summary() string {
	parts := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		if issue.Path != "" {
			parts = append(parts, issue.Path+": "+issue.Message)
		} else {
			parts = append(parts, issue.Message)
		}
	}
	return strings.Join(parts, "; ")
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			schemaErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		if schema, err = c.Compile(schemaURL); err != nil {
			schemaErr = fmt.Errorf("compiling schema: %w", err)
		}
	})
	return schema, schemaErr
}

// Validate checks raw YAML against the embedded manifest schema. The error
// return covers unparseable input and schema failures; violations are
// reported in the result.
func Validate(data []byte) (*ValidationResult, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{} // empty file means "all defaults"
	}

	// Round-trip through JSON so numbers and maps take the shapes the
	// validator expects.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting to JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("preparing JSON for validation: %w", err)
	}

	err = s.Validate(inst)
	if err == nil {
		return &ValidationResult{Valid: true}, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("unexpected validation error: %w", err)
	}

	issues := leafIssues(ve, nil, make(map[string]bool))
	if len(issues) == 0 {
		issues = []ValidationIssue{{Message: ve.Error()}}
	}
	return &ValidationResult{Issues: issues}, nil
}

// leafIssues collects the most specific causes of ve, skipping combinator
// keywords and duplicates.
func leafIssues(ve *jsonschema.ValidationError, out []ValidationIssue, seen map[string]bool) []ValidationIssue {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			out = leafIssues(cause, out, seen)
		}
		return out
	}
	if ve.ErrorKind == nil {
		return out
	}

	kw := ve.ErrorKind.KeywordPath()
	if len(kw) == 0 {
		return out
	}
	keyword := kw[len(kw)-1]
	switch keyword {
	case "allOf", "anyOf", "oneOf", "$ref":
		return out
	}

	issue := ValidationIssue{
		Message: ve.ErrorKind.LocalizedString(printer),
		Keyword: keyword,
	}
	if len(ve.InstanceLocation) > 0 {
		issue.Path = "/" + strings.Join(ve.InstanceLocation, "/")
	}

	key := issue.Path + "|" + issue.Keyword + "|" + issue.Message
	if seen[key] {
		return out
	}
	seen[key] = true
	return append(out, issue)
}
