package tool

import "errors"

// Registry errors, distinct from the ToolErrorCode-carrying dispatch errors
// in agentcore.ToolError: Register returns ErrNilTool, ErrEmptyName and
// ErrDuplicateName, and Unregister returns ErrUnknownTool. No function in
// this package returns ErrInvalidSchema; Register passes on the error from
// ToolSchema.Validate instead.
var (
	ErrNilTool         = errors.New("tool: cannot register a nil tool")
	ErrEmptyName       = errors.New("tool: name cannot be empty")
	ErrDuplicateName   = errors.New("tool: name already registered")
	ErrInvalidSchema   = errors.New("tool: schema type must be \"object\"")
	ErrUnknownTool     = errors.New("tool: not registered")
)
