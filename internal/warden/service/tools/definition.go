package tools

import (
	"context"
	"encoding/json"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	jsonutil "github.com/kiosk404/warden/pkg/utils/json"
)

// Definition describes a tool implemented in-process.
// Tools have a single Handler function that is called when the tool is invoked.
type Definition struct {
	// Name is the tool's unique name. (e.g. "shell_exec")
	Name string
	// Description is a brief description of the tool's purpose.
	Description string
	// Parameters defines the input schema for the tool.
	Parameters []ParameterDef
	// RequiresApproval gates every call behind a human decision.
	RequiresApproval bool
	// RequiresPlatformContext rejects calls that carry no platform context.
	RequiresPlatformContext bool
	// Handler is the function that is called when the tool is invoked.
	Handler Handler
}

// ParameterDef defines a single parameter for a tool.
type ParameterDef struct {
	// Name is the parameter's unique name. (e.g. "command")
	Name string
	// Type is the JSON schema type. (e.g. "string", "number", "boolean")
	Type string
	// Description is a brief description of the parameter's purpose.
	Description string
	// Required indicates whether the parameter is mandatory.
	Required bool
	// Enum restricts a string parameter to the listed values.
	Enum []string
}

// Handler runs one tool call. The input has already been validated
// against the parameter schema.
type Handler func(ctx context.Context, input entity.ToolInput, pc entity.PlatformContext) (string, error)

// Build turns the definition into an entity.Tool.
func (d Definition) Build() entity.Tool {
	return &definedTool{def: d, schema: schemaOf(d.Parameters)}
}

type definedTool struct {
	def    Definition
	schema json.RawMessage
}

func (t *definedTool) Name() string                  { return t.def.Name }
func (t *definedTool) Description() string           { return t.def.Description }
func (t *definedTool) Schema() json.RawMessage       { return t.schema }
func (t *definedTool) RequiresApproval() bool        { return t.def.RequiresApproval }
func (t *definedTool) RequiresPlatformContext() bool { return t.def.RequiresPlatformContext }

func (t *definedTool) Execute(ctx context.Context, input entity.ToolInput, pc entity.PlatformContext) (string, error) {
	return t.def.Handler(ctx, input, pc)
}

// schemaOf renders the parameters as a closed JSON schema object.
func schemaOf(params []ParameterDef) json.RawMessage {
	properties := make(map[string]any, len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	raw, err := jsonutil.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return raw
}
