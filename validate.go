// FILE: lixenwraith/runconfig/validate.go
package runconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// IssueKind classifies a schema violation.
type IssueKind int

const (
	// IssueCustom covers every violation without a dedicated kind.
	IssueCustom IssueKind = iota
	// IssueInvalidType is a value of the wrong type.
	IssueInvalidType
	// IssueInvalidValue is a value outside an enumeration.
	IssueInvalidValue
	// IssueTooSmall is a value below its lower bound.
	IssueTooSmall
	// IssueTooBig is a value above its upper bound.
	IssueTooBig
)

// String returns the kind name.
func (k IssueKind) String() string {
	switch k {
	case IssueInvalidType:
		return "invalid_type"
	case IssueInvalidValue:
		return "invalid_value"
	case IssueTooSmall:
		return "too_small"
	case IssueTooBig:
		return "too_big"
	default:
		return "custom"
	}
}

// Issue is the first violation reported by a schema check.
type Issue struct {
	// Path is the location of the value inside the checked object.
	Path []string

	// Kind classifies the violation.
	Kind IssueKind

	// Message describes the violation.
	Message string

	// Expected describes the accepted values.
	Expected string
}

// Check validates obj against the schema and returns the first issue, or nil.
// obj must already hold JSON-shaped values.
func (s *Schema) Check(obj map[string]any) *Issue {
	for _, f := range s.fields {
		value, present := obj[f.key]
		if !present || f.schema == nil {
			continue
		}
		if err := f.schema.VisitJSON(value); err != nil {
			if branch := unionBranch(f.schema, value); branch != nil {
				if branchErr := branch.VisitJSON(value); branchErr != nil {
					err = branchErr
				}
			}
			return issueFromError(f.key, err)
		}
	}
	return nil
}

// unionBranch picks the oneOf alternative describing an object or array value,
// so nested violations keep their location. Scalars and ambiguous unions
// return nil and are reported against the union as a whole.
func unionBranch(schema *openapi3.Schema, value any) *openapi3.Schema {
	kind := typeOf(value)
	if kind != "object" && kind != "array" {
		return nil
	}

	var match *openapi3.Schema
	for _, ref := range schema.OneOf {
		if ref == nil || ref.Value == nil || !ref.Value.Type.Includes(kind) {
			continue
		}
		if match != nil {
			return nil
		}
		match = ref.Value
	}
	return match
}

// issueFromError translates a kin-openapi failure into an Issue rooted at key.
func issueFromError(key string, err error) *Issue {
	var schemaErr *openapi3.SchemaError
	if !errors.As(err, &schemaErr) {
		return &Issue{Path: []string{key}, Kind: IssueCustom, Message: err.Error()}
	}

	issue := &Issue{Path: append([]string{key}, schemaErr.JSONPointer()...)}
	schema := schemaErr.Schema
	if schema == nil {
		schema = &openapi3.Schema{}
	}

	switch schemaErr.SchemaField {
	case "type":
		issue.Kind = IssueInvalidType
		issue.Expected = expectedType(schema)
		issue.Message = fmt.Sprintf("Invalid input: expected %s, received %s", issue.Expected, typeOf(schemaErr.Value))
	case "enum":
		issue.Kind = IssueInvalidValue
		allowed := make([]string, len(schema.Enum))
		for i, v := range schema.Enum {
			allowed[i] = displayValue(v)
		}
		issue.Expected = strings.Join(allowed, "|")
		issue.Message = fmt.Sprintf("Invalid option: expected one of %s", issue.Expected)
	case "minimum", "exclusiveMinimum":
		issue.Kind = IssueTooSmall
		issue.Expected = ">=" + formatBound(schema.Min)
		issue.Message = fmt.Sprintf("Too small: expected %s to be %s", expectedType(schema), issue.Expected)
	case "maximum", "exclusiveMaximum":
		issue.Kind = IssueTooBig
		issue.Expected = "<=" + formatBound(schema.Max)
		issue.Message = fmt.Sprintf("Too big: expected %s to be %s", expectedType(schema), issue.Expected)
	case "minLength", "minItems", "minProperties":
		issue.Kind = IssueTooSmall
		issue.Expected = schemaErr.Reason
		issue.Message = "Too small: " + schemaErr.Reason
	case "maxLength", "maxItems", "maxProperties":
		issue.Kind = IssueTooBig
		issue.Expected = schemaErr.Reason
		issue.Message = "Too big: " + schemaErr.Reason
	case "oneOf", "anyOf", "allOf":
		issue.Kind = IssueCustom
		issue.Message = "Invalid input"
	default:
		issue.Kind = IssueCustom
		issue.Message = schemaErr.Reason
		if issue.Message == "" {
			issue.Message = "Invalid input"
		}
	}

	return issue
}

func expectedType(schema *openapi3.Schema) string {
	var types []string
	if schema.Type != nil {
		types = *schema.Type
	}
	if len(types) == 0 {
		return "value"
	}
	return strings.Join(types, " | ")
}

func formatBound(bound *float64) string {
	if bound == nil {
		return "?"
	}
	return fmt.Sprintf("%g", *bound)
}

// typeOf names the JSON type of a value for diagnostics.
func typeOf(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, float32, int, int64, int32, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// displayValue serializes a value for the Received line.
func displayValue(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

// Validator checks merged configurations against a pair of schemas.
type Validator struct {
	schemas Schemas
}

// NewValidator creates a validator. Nil schemas fall back to the defaults.
func NewValidator(schemas Schemas) *Validator {
	defaults := DefaultSchemas()
	if schemas.Config == nil {
		schemas.Config = defaults.Config
	}
	if schemas.Options == nil {
		schemas.Options = defaults.Options
	}
	return &Validator{schemas: schemas}
}

// Validate checks candidate with the default schemas.
func Validate(file string, candidate any) (Fragment, error) {
	return NewValidator(Schemas{}).Validate(file, candidate)
}

// Validate checks candidate and returns it unchanged on success.
// The first violation, in a fixed order, is returned as a *ValidationError:
// the top-level schema, then the config itself as a project (its use object
// first), then every entry of projects, then the tsconfig reference.
func (v *Validator) Validate(file string, candidate any) (Fragment, error) {
	if composed, ok := candidate.(*Composed); ok && composed != nil {
		candidate = composed.Fragment
	}

	config, ok := asMap(candidate)
	if !ok {
		return nil, newValidationError(file, "Configuration must be an object")
	}

	normalized, _ := toJSONValue(config).(map[string]any)

	if issue := v.schemas.Config.Check(normalized); issue != nil {
		return nil, reportIssue(file, "", normalized, issue)
	}

	if err := v.validateProject(file, config, "config"); err != nil {
		return nil, err
	}

	if raw, ok := config["projects"]; ok && raw != nil {
		projects, ok := asList(raw)
		if !ok {
			return nil, newValidationError(file, "config.projects must be an array")
		}
		for i, project := range projects {
			if err := v.validateProject(file, project, fmt.Sprintf("config.projects[%d]", i)); err != nil {
				return nil, err
			}
		}
	}

	if tsconfig, ok := config["tsconfig"].(string); ok {
		dir := "."
		if file != "" && file != DefaultConfigFile {
			dir = filepath.Dir(file)
		}
		path := tsconfig
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, newValidationError(file, fmt.Sprintf("config.tsconfig does not exist: %s", path))
		}
	}

	return Fragment(config), nil
}

// validateProject checks the shape of one project and its use object.
func (v *Validator) validateProject(file string, candidate any, label string) error {
	project, ok := asMap(candidate)
	if !ok {
		return newValidationError(file, fmt.Sprintf("%s must be an object", label))
	}

	for _, key := range []string{"testIgnore", "testMatch"} {
		value, present := project[key]
		if !present || value == nil {
			continue
		}
		if list, ok := patternList(value); ok {
			for i, item := range list {
				if !isStringOrPattern(item) {
					return newValidationError(file, fmt.Sprintf("%s.%s[%d] must be a string or a RegExp", label, key, i))
				}
			}
		} else if !isStringOrPattern(value) {
			return newValidationError(file, fmt.Sprintf("%s.%s must be a string or a RegExp", label, key))
		}
	}

	if use, present := project["use"]; present && use != nil {
		options, ok := asMap(use)
		if !ok {
			return newValidationError(file, fmt.Sprintf("%s.use must be an object", label))
		}
		return v.validateOptions(file, options, label+".use")
	}

	return nil
}

// validateOptions checks a use object against the options schema.
func (v *Validator) validateOptions(file string, use map[string]any, label string) error {
	normalized, _ := toJSONValue(use).(map[string]any)
	if issue := v.schemas.Options.Check(normalized); issue != nil {
		return reportIssue(file, label, normalized, issue)
	}
	return nil
}

// reportIssue renders an issue found in root into a ValidationError.
// Paths are prefixed with label when one is given.
func reportIssue(file, label string, root map[string]any, issue *Issue) *ValidationError {
	parts := make([]string, 0, len(issue.Path)+1)
	if label != "" {
		parts = append(parts, label)
	}
	parts = append(parts, issue.Path...)
	path := strings.Join(parts, ".")

	switch issue.Kind {
	case IssueInvalidType, IssueInvalidValue, IssueTooSmall, IssueTooBig:
		message := strings.TrimPrefix(issue.Message, "Invalid input: ")
		verr := &ValidationError{
			File:    file,
			Path:    path,
			Message: fmt.Sprintf("Configuration option %q %s", path, message),
		}
		if len(issue.Path) > 0 {
			if received, ok := lookupSegments(root, issue.Path); ok {
				verr.Received = received
				verr.HasReceived = true
				verr.Message += "\nReceived: " + displayValue(received)
			}
		}
		return verr
	default:
		if path == "" {
			path = "configuration"
		}
		return &ValidationError{
			File:    file,
			Path:    path,
			Message: fmt.Sprintf("Configuration option %q %s", path, issue.Message),
		}
	}
}

// patternList returns value as a list when it is one.
func patternList(value any) ([]any, bool) {
	if list, ok := asList(value); ok {
		return list, true
	}
	switch v := value.(type) {
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []*regexp.Regexp:
		out := make([]any, len(v))
		for i, re := range v {
			out[i] = re
		}
		return out, true
	}
	return nil, false
}

func isStringOrPattern(value any) bool {
	switch v := value.(type) {
	case string:
		return true
	case *regexp.Regexp:
		return v != nil
	case regexp.Regexp:
		return true
	default:
		return false
	}
}
