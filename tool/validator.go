package tool

import (
	"encoding/json"
	"fmt"

	"github.com/browseragent/agentcore"
)

// Validator checks a tool call's arguments against its ToolSchema,
// extending the teacher's single-error validator into the structured,
// multi-issue report the ToolRegistry's validate() step needs: every
// failure gets a {parameter, message, code} ValidationIssue instead of
// stopping at the first problem.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator { return &Validator{} }

// allowsAdditionalProperties reports whether a schema opts into unknown
// properties. Absent or false means reject (spec default); only an explicit
// true allows them through.
func allowsAdditionalProperties(v *bool) bool {
	return v != nil && *v
}

// Validate checks input against schema and returns every issue found, in
// no particular order. A nil/empty result means input is valid. Unknown
// properties are rejected unless the relevant schema level sets
// AdditionalProperties to true.
func (v *Validator) Validate(schema ToolSchema, input json.RawMessage) []agentcore.ValidationIssue {
	var inputMap map[string]any
	if err := json.Unmarshal(input, &inputMap); err != nil {
		return []agentcore.ValidationIssue{{
			Parameter: "", Message: fmt.Sprintf("invalid JSON input: %v", err), Code: agentcore.CodeTypeMismatch,
		}}
	}

	var issues []agentcore.ValidationIssue

	for _, required := range schema.Required {
		if _, exists := inputMap[required]; !exists {
			issues = append(issues, agentcore.ValidationIssue{
				Parameter: required, Message: "missing required parameter", Code: agentcore.CodeRequired,
			})
		}
	}

	for name, value := range inputMap {
		def, known := schema.Properties[name]
		if !known {
			if !allowsAdditionalProperties(schema.AdditionalProperties) {
				issues = append(issues, agentcore.ValidationIssue{
					Parameter: name, Message: "parameter not declared in schema", Code: agentcore.CodeUnknownParam,
				})
			}
			continue
		}
		issues = append(issues, v.validateProperty(name, def, value)...)
	}

	return issues
}

func (v *Validator) validateProperty(path string, def PropertyDef, value any) []agentcore.ValidationIssue {
	if value == nil {
		return []agentcore.ValidationIssue{{
			Parameter: path, Message: "null is not a valid value", Code: agentcore.CodeNullValue,
		}}
	}

	var issues []agentcore.ValidationIssue

	if issue, ok := v.validateType(path, def.Type, value); !ok {
		return append(issues, issue)
	}

	if len(def.Enum) > 0 {
		strVal, _ := value.(string)
		found := false
		for _, e := range def.Enum {
			if strVal == e {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, agentcore.ValidationIssue{
				Parameter: path, Message: fmt.Sprintf("value %q not among allowed values %v", strVal, def.Enum), Code: agentcore.CodeNotFound,
			})
		}
	}

	switch def.Type {
	case "number", "integer":
		if n, err := toFloat64(value); err == nil {
			if def.Minimum != nil && n < *def.Minimum {
				issues = append(issues, agentcore.ValidationIssue{
					Parameter: path, Message: fmt.Sprintf("%v is less than minimum %v", n, *def.Minimum), Code: agentcore.CodeTypeMismatch,
				})
			}
			if def.Maximum != nil && n > *def.Maximum {
				issues = append(issues, agentcore.ValidationIssue{
					Parameter: path, Message: fmt.Sprintf("%v exceeds maximum %v", n, *def.Maximum), Code: agentcore.CodeTypeMismatch,
				})
			}
		}
	case "string":
		if s, ok := value.(string); ok {
			if def.MinLength != nil && len(s) < *def.MinLength {
				issues = append(issues, agentcore.ValidationIssue{
					Parameter: path, Message: fmt.Sprintf("length %d is less than minimum %d", len(s), *def.MinLength), Code: agentcore.CodeTypeMismatch,
				})
			}
			if def.MaxLength != nil && len(s) > *def.MaxLength {
				issues = append(issues, agentcore.ValidationIssue{
					Parameter: path, Message: fmt.Sprintf("length %d exceeds maximum %d", len(s), *def.MaxLength), Code: agentcore.CodeTypeMismatch,
				})
			}
		}
	case "array":
		if def.Items != nil {
			if arr, ok := value.([]any); ok {
				for i, item := range arr {
					issues = append(issues, v.validateProperty(fmt.Sprintf("%s[%d]", path, i), *def.Items, item)...)
				}
			}
		}
	case "object":
		if def.Properties != nil {
			if obj, ok := value.(map[string]any); ok {
				for name, propVal := range obj {
					nested, known := def.Properties[name]
					if !known {
						if !allowsAdditionalProperties(def.AdditionalProperties) {
							issues = append(issues, agentcore.ValidationIssue{
								Parameter: path + "." + name, Message: "parameter not declared in schema", Code: agentcore.CodeUnknownParam,
							})
						}
						continue
					}
					issues = append(issues, v.validateProperty(path+"."+name, nested, propVal)...)
				}
			}
		}
	}

	return issues
}

func (v *Validator) validateType(path, expected string, value any) (agentcore.ValidationIssue, bool) {
	ok := true
	switch expected {
	case "string":
		_, ok = value.(string)
	case "number":
		switch value.(type) {
		case float64, float32, int, int64, int32, json.Number:
		default:
			ok = false
		}
	case "integer":
		switch n := value.(type) {
		case float64:
			ok = n == float64(int64(n))
		case int, int64, int32:
		default:
			ok = false
		}
	case "boolean":
		_, ok = value.(bool)
	case "array":
		_, ok = value.([]any)
	case "object":
		_, ok = value.(map[string]any)
	default:
		return agentcore.ValidationIssue{
			Parameter: path, Message: fmt.Sprintf("unknown schema type %q", expected), Code: agentcore.CodeUnknownType,
		}, false
	}
	if !ok {
		return agentcore.ValidationIssue{
			Parameter: path, Message: fmt.Sprintf("expected %s, got %T", expected, value), Code: agentcore.CodeTypeMismatch,
		}, false
	}
	return agentcore.ValidationIssue{}, true
}

func toFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case json.Number:
		return val.Float64()
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}
