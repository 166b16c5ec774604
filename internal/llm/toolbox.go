package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"mcpask/pkg/logging"
)

// ToolSession is a live MCP session whose tools can be offered to the model.
type ToolSession interface {
	Name() string
	ListTools(ctx context.Context) ([]mcp.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// Toolbox maps tool names to the session that serves them.
type Toolbox struct {
	specs  []ToolSpec
	owners map[string]ToolSession
}

// NewToolbox lists the tools of every session. When two sessions offer a tool
// with the same name the earlier session keeps it. A session whose tools
// cannot be listed is skipped.
func NewToolbox(ctx context.Context, sessions []ToolSession) (*Toolbox, error) {
	tb := &Toolbox{owners: make(map[string]ToolSession)}
	for _, session := range sessions {
		tools, err := session.ListTools(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Warn("Toolbox", "Skipping tools of %s: %v", session.Name(), err)
			continue
		}
		for _, tool := range tools {
			if owner, exists := tb.owners[tool.Name]; exists {
				logging.Warn("Toolbox", "Tool %s from %s shadowed by %s", tool.Name, session.Name(), owner.Name())
				continue
			}
			tb.owners[tool.Name] = session
			tb.specs = append(tb.specs, ToolSpec{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: inputSchema(tool),
			})
		}
		logging.Debug("Toolbox", "%s offers %d tool(s)", session.Name(), len(tools))
	}
	return tb, nil
}

// Specs returns the tools in session order.
func (tb *Toolbox) Specs() []ToolSpec {
	if tb == nil {
		return nil
	}
	return tb.specs
}

// Owner returns the name of the session serving tool.
func (tb *Toolbox) Owner(tool string) (string, bool) {
	if tb == nil {
		return "", false
	}
	session, ok := tb.owners[tool]
	if !ok {
		return "", false
	}
	return session.Name(), true
}

// Call dispatches a tool call to its session and renders the result as text
// for the model. Failures are reported to the model rather than returned.
func (tb *Toolbox) Call(ctx context.Context, call ToolCall) (string, bool) {
	session, ok := tb.owners[call.Name]
	if !ok {
		return fmt.Sprintf("unknown tool %q", call.Name), true
	}

	logging.Debug("Toolbox", "Calling %s on %s", call.Name, session.Name())
	result, err := session.CallTool(ctx, call.Name, call.Arguments)
	if err != nil {
		logging.Warn("Toolbox", "Tool %s on %s failed: %v", call.Name, session.Name(), err)
		return fmt.Sprintf("tool call failed: %v", err), true
	}
	return renderContent(result.Content), result.IsError
}

func renderContent(contents []mcp.Content) string {
	parts := make([]string, 0, len(contents))
	for _, content := range contents {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
			continue
		}
		data, err := json.Marshal(content)
		if err != nil {
			parts = append(parts, fmt.Sprintf("%v", content))
			continue
		}
		parts = append(parts, string(data))
	}
	return strings.Join(parts, "\n")
}

// inputSchema returns the tool's schema as a JSON object, preferring the raw
// schema when the server sent one.
func inputSchema(tool mcp.Tool) map[string]any {
	if len(tool.RawInputSchema) > 0 {
		var schema map[string]any
		if err := json.Unmarshal(tool.RawInputSchema, &schema); err == nil && schema != nil {
			return schema
		}
	}

	properties := tool.InputSchema.Properties
	if properties == nil {
		properties = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(tool.InputSchema.Required) > 0 {
		schema["required"] = tool.InputSchema.Required
	}
	return schema
}
