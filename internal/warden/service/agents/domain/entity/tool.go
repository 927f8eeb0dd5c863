package entity

import (
	"context"
	"encoding/json"
)

// Tool is a named side-effecting capability the model may ask to run.
//
// Execute should report expected failures as a textual result or an error;
// a panic is recovered by the caller and recorded as a failed tool call.
type Tool interface {
	Name() string
	Description() string
	// Schema is the JSON schema of the tool input object.
	Schema() json.RawMessage
	// RequiresApproval reports whether every call must be approved by a human.
	RequiresApproval() bool
	// RequiresPlatformContext reports whether Execute needs a non-empty PlatformContext.
	RequiresPlatformContext() bool
	Execute(ctx context.Context, input ToolInput, pc PlatformContext) (string, error)
}

// Toolkit is a container tool exposing a set of tools. Registries expand
// toolkits into their members and never expose the container itself.
type Toolkit interface {
	Tool
	Tools() []Tool
}
