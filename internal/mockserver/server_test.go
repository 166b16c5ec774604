package mockserver

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startClient(t *testing.T) *client.Client {
	t.Helper()

	clientToServerR, clientToServerW := io.Pipe()
	serverToClientR, serverToClientW := io.Pipe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = New("", "test").ServeStdio(ctx, clientToServerR, serverToClientW)
		serverToClientW.Close()
	}()

	c := client.NewClient(transport.NewIO(serverToClientR, clientToServerW, io.NopCloser(strings.NewReader(""))))
	require.NoError(t, c.Start(ctx))

	t.Cleanup(func() {
		c.Close()
		cancel()
		clientToServerR.Close()
		serverToClientR.Close()
		<-done
	})

	initCtx, initCancel := context.WithTimeout(ctx, 5*time.Second)
	defer initCancel()
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "0"}
	result, err := c.Initialize(initCtx, req)
	require.NoError(t, err)
	assert.Equal(t, DefaultName, result.ServerInfo.Name)

	return c
}

func callText(t *testing.T, c *client.Client, name string, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text, result.IsError
}

func TestServer_ListTools(t *testing.T) {
	c := startClient(t)

	result, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"echo", "add", "fail"}, names)
}

func TestServer_CallTools(t *testing.T) {
	c := startClient(t)

	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		want    string
		isError bool
	}{
		{name: "echo", tool: "echo", args: map[string]any{"text": "hello"}, want: "hello"},
		{name: "echo missing text", tool: "echo", args: map[string]any{}, want: "text parameter is required", isError: true},
		{name: "add integers", tool: "add", args: map[string]any{"a": 2, "b": 3}, want: "5"},
		{name: "add fractions", tool: "add", args: map[string]any{"a": 0.5, "b": 0.25}, want: "0.75"},
		{name: "add bad input", tool: "add", args: map[string]any{"a": "x"}, want: "a and b must be numbers", isError: true},
		{name: "fail default", tool: "fail", args: nil, want: "tool failed", isError: true},
		{name: "fail reason", tool: "fail", args: map[string]any{"reason": "boom"}, want: "boom", isError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isError := callText(t, c, tt.tool, tt.args)
			assert.Equal(t, tt.want, text)
			assert.Equal(t, tt.isError, isError)
		})
	}
}
