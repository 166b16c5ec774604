package mcpserver

import "fmt"

// ConfigError reports an MCP configuration document that is missing,
// unreadable or malformed. It is fatal: nothing is launched when it occurs.
type ConfigError struct {
	Path string // Empty when parsing in-memory data
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid MCP configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid MCP configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
