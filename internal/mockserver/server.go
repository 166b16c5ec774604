// Package mockserver provides a small MCP tool server speaking stdio. It backs
// the hidden mock-server command and the orchestrator's tests, so a registry
// can point at a real tool server without network access or extra installs.
package mockserver

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"mcpask/pkg/logging"
)

// DefaultName is the server name reported in the initialize response.
const DefaultName = "mcpask-mock"

// Server is an MCP server with a fixed set of demonstration tools.
type Server struct {
	name   string
	server *server.MCPServer
}

// New creates a mock server advertising the echo, add and fail tools.
func New(name, version string) *Server {
	if name == "" {
		name = DefaultName
	}
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
	)

	s := &Server{name: name, server: mcpServer}
	mcpServer.AddTools(s.tools()...)
	return s
}

// MCPServer exposes the underlying server, for example to register more tools.
func (s *Server) MCPServer() *server.MCPServer {
	return s.server
}

// ServeStdio serves MCP requests read from in and writes responses to out
// until in is exhausted or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	logging.Debug("MockServer", "Serving %s over stdio", s.name)
	stdio := server.NewStdioServer(s.server)
	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() == nil && err != io.EOF {
		return fmt.Errorf("mock server %s: %w", s.name, err)
	}
	return nil
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("echo",
				mcp.WithDescription("Echo the given text back"),
				mcp.WithString("text", mcp.Required(), mcp.Description("Text to echo")),
			),
			Handler: handleEcho,
		},
		{
			Tool: mcp.NewTool("add",
				mcp.WithDescription("Add two numbers"),
				mcp.WithNumber("a", mcp.Required(), mcp.Description("First addend")),
				mcp.WithNumber("b", mcp.Required(), mcp.Description("Second addend")),
			),
			Handler: handleAdd,
		},
		{
			Tool: mcp.NewTool("fail",
				mcp.WithDescription("Always return a tool error"),
				mcp.WithString("reason", mcp.Description("Error message to return")),
			),
			Handler: handleFail,
		},
	}
}

func handleEcho(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, ok := request.GetArguments()["text"].(string)
	if !ok {
		return mcp.NewToolResultError("text parameter is required"), nil
	}
	return mcp.NewToolResultText(text), nil
}

func handleAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	a, okA := args["a"].(float64)
	b, okB := args["b"].(float64)
	if !okA || !okB {
		return mcp.NewToolResultError("a and b must be numbers"), nil
	}
	return mcp.NewToolResultText(strconv.FormatFloat(a+b, 'f', -1, 64)), nil
}

func handleFail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reason, _ := request.GetArguments()["reason"].(string)
	if reason == "" {
		reason = "tool failed"
	}
	return mcp.NewToolResultError(reason), nil
}
