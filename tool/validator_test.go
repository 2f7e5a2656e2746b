package tool

import (
	"encoding/json"
	"testing"

	"github.com/browseragent/agentcore"
)

func TestValidate(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name       string
		schema     ToolSchema
		input      string
		wantIssues bool
	}{
		{
			name: "valid string",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"name": {Type: "string"},
				},
				Required: []string{"name"},
			},
			input: `{"name": "test"}`,
		},
		{
			name: "wrong type - expected string got number",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"name": {Type: "string"},
				},
			},
			input:      `{"name": 123}`,
			wantIssues: true,
		},
		{
			name: "missing required field",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"name": {Type: "string"},
				},
				Required: []string{"name"},
			},
			input:      `{}`,
			wantIssues: true,
		},
		{
			name: "enum validation pass",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"status": {Type: "string", Enum: []string{"active", "inactive"}},
				},
			},
			input: `{"status": "active"}`,
		},
		{
			name: "enum validation fail",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"status": {Type: "string", Enum: []string{"active", "inactive"}},
				},
			},
			input:      `{"status": "unknown"}`,
			wantIssues: true,
		},
		{
			name: "number minimum pass",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"age": {Type: "number", Minimum: ptr(0.0)},
				},
			},
			input: `{"age": 25}`,
		},
		{
			name: "number minimum fail",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"age": {Type: "number", Minimum: ptr(0.0)},
				},
			},
			input:      `{"age": -5}`,
			wantIssues: true,
		},
		{
			name: "number maximum fail",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"percent": {Type: "number", Maximum: ptr(100.0)},
				},
			},
			input:      `{"percent": 150}`,
			wantIssues: true,
		},
		{
			name: "string minLength pass",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"password": {Type: "string", MinLength: intPtr(8)},
				},
			},
			input: `{"password": "secure123"}`,
		},
		{
			name: "string minLength fail",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"password": {Type: "string", MinLength: intPtr(8)},
				},
			},
			input:      `{"password": "short"}`,
			wantIssues: true,
		},
		{
			name: "string maxLength fail",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"code": {Type: "string", MaxLength: intPtr(4)},
				},
			},
			input:      `{"code": "toolong"}`,
			wantIssues: true,
		},
		{
			name: "array of strings valid",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"tags": {Type: "array", Items: &PropertyDef{Type: "string"}},
				},
			},
			input: `{"tags": ["a", "b", "c"]}`,
		},
		{
			name: "array of strings invalid item",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"tags": {Type: "array", Items: &PropertyDef{Type: "string"}},
				},
			},
			input:      `{"tags": ["a", 123, "c"]}`,
			wantIssues: true,
		},
		{
			name: "integer valid",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"count": {Type: "integer"},
				},
			},
			input: `{"count": 42}`,
		},
		{
			name: "integer invalid - is float",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"count": {Type: "integer"},
				},
			},
			input:      `{"count": 3.14}`,
			wantIssues: true,
		},
		{
			name: "boolean valid",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"enabled": {Type: "boolean"},
				},
			},
			input: `{"enabled": true}`,
		},
		{
			name: "boolean invalid",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"enabled": {Type: "boolean"},
				},
			},
			input:      `{"enabled": "yes"}`,
			wantIssues: true,
		},
		{
			name: "optional field missing is ok",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"name":     {Type: "string"},
					"optional": {Type: "string"},
				},
				Required: []string{"name"},
			},
			input: `{"name": "test"}`,
		},
		{
			name: "null value is rejected",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"value": {Type: "string"},
				},
			},
			input:      `{"value": null}`,
			wantIssues: true,
		},
		{
			name: "invalid JSON",
			schema: ToolSchema{
				Type:       "object",
				Properties: map[string]PropertyDef{},
			},
			input:      `{invalid}`,
			wantIssues: true,
		},
		{
			name: "unknown top-level property rejected by default",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"name": {Type: "string"},
				},
			},
			input:      `{"name": "test", "extra": 1}`,
			wantIssues: true,
		},
		{
			name: "unknown top-level property allowed when additionalProperties true",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"name": {Type: "string"},
				},
				AdditionalProperties: ptrBool(true),
			},
			input: `{"name": "test", "extra": 1}`,
		},
		{
			name: "unknown nested property rejected by default",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"user": {
						Type: "object",
						Properties: map[string]PropertyDef{
							"name": {Type: "string"},
						},
					},
				},
			},
			input:      `{"user": {"name": "Alice", "extra": 1}}`,
			wantIssues: true,
		},
		{
			name: "unknown nested property allowed when additionalProperties true",
			schema: ToolSchema{
				Type: "object",
				Properties: map[string]PropertyDef{
					"user": {
						Type: "object",
						Properties: map[string]PropertyDef{
							"name": {Type: "string"},
						},
						AdditionalProperties: ptrBool(true),
					},
				},
			},
			input: `{"user": {"name": "Alice", "extra": 1}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := validator.Validate(tt.schema, json.RawMessage(tt.input))
			if (len(issues) > 0) != tt.wantIssues {
				t.Errorf("Validate() issues = %+v, wantIssues %v", issues, tt.wantIssues)
			}
		})
	}
}

func TestValidateNestedObject(t *testing.T) {
	validator := NewValidator()

	schema := ToolSchema{
		Type: "object",
		Properties: map[string]PropertyDef{
			"user": {
				Type: "object",
				Properties: map[string]PropertyDef{
					"name": {Type: "string"},
					"age":  {Type: "number", Minimum: ptr(0.0)},
				},
			},
		},
	}

	if issues := validator.Validate(schema, json.RawMessage(`{"user": {"name": "Alice", "age": 30}}`)); len(issues) != 0 {
		t.Errorf("expected no issues, got: %+v", issues)
	}

	issues := validator.Validate(schema, json.RawMessage(`{"user": {"name": "Bob", "age": -5}}`))
	if len(issues) == 0 {
		t.Error("expected an issue for negative age")
	}
}

func TestToolSchemaValidateRejectsNonObjectType(t *testing.T) {
	schema := ToolSchema{Type: "array"}
	if err := schema.Validate(); err == nil {
		t.Error("expected an error for a non-object top-level schema type")
	}
}

func TestValidateIssueCode(t *testing.T) {
	validator := NewValidator()
	issues := validator.Validate(ToolSchema{
		Type:       "object",
		Properties: map[string]PropertyDef{"name": {Type: "string"}},
		Required:   []string{"name"},
	}, json.RawMessage(`{}`))

	if len(issues) != 1 || issues[0].Code != agentcore.CodeRequired {
		t.Errorf("issues = %+v, want one CodeRequired issue", issues)
	}
}

// Helper functions for pointer values
func ptr(f float64) *float64 {
	return &f
}

func intPtr(i int) *int {
	return &i
}

func ptrBool(b bool) *bool {
	return &b
}
