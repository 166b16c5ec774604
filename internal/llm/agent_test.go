package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns canned responses in order and records requests.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*Response
	errs      []error
	requests  []Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req.Messages = append([]Message(nil), req.Messages...)
	p.requests = append(p.requests, req)

	i := len(p.requests) - 1
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i >= len(p.responses) {
		return &Response{Text: "done"}, nil
	}
	return p.responses[i], nil
}

// stubSession serves tools from a map of handlers.
type stubSession struct {
	name    string
	tools   []mcp.Tool
	listErr error
	handler func(name string, args map[string]any) (*mcp.CallToolResult, error)
	calls   []string
}

func (s *stubSession) Name() string { return s.name }

func (s *stubSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return s.tools, s.listErr
}

func (s *stubSession) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	s.calls = append(s.calls, name)
	if s.handler == nil {
		return mcp.NewToolResultText(s.name + ":" + name), nil
	}
	return s.handler(name, args)
}

func newStub(name string, tools ...string) *stubSession {
	s := &stubSession{name: name}
	for _, tool := range tools {
		s.tools = append(s.tools, mcp.NewTool(tool,
			mcp.WithDescription(tool+" tool"),
			mcp.WithString("text", mcp.Required()),
		))
	}
	return s
}

func TestAgent_AskWithoutTools(t *testing.T) {
	provider := &scriptedProvider{responses: []*Response{{Text: "4", Usage: Usage{InputTokens: 3, OutputTokens: 1}}}}
	agent := NewAgent(provider, WithModel("m"), WithTemperature(0), WithMaxTokens(100), WithSystemPrompt("be brief"))

	answer, err := agent.Ask(context.Background(), "2+2?", nil)
	require.NoError(t, err)
	assert.Equal(t, "4", answer)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Equal(t, "m", req.Model)
	assert.Equal(t, "be brief", req.System)
	assert.Equal(t, 0.0, req.Temperature)
	assert.Equal(t, 100, req.MaxTokens)
	assert.Empty(t, req.Tools)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "2+2?"}}, req.Messages)
}

func TestConversation_ToolLoop(t *testing.T) {
	weather := newStub("weather", "forecast")
	notes := newStub("notes", "save")
	provider := &scriptedProvider{responses: []*Response{
		{ToolCalls: []ToolCall{
			{ID: "c1", Name: "forecast", Arguments: map[string]any{"text": "Oslo"}},
			{ID: "c2", Name: "save", Arguments: map[string]any{"text": "rain"}},
		}},
		{Text: "Rain in Oslo, noted."},
	}}

	chat, err := NewAgent(provider).StartChat(context.Background(), []ToolSession{weather, notes})
	require.NoError(t, err)
	require.Len(t, chat.Tools(), 2)
	assert.Equal(t, "forecast", chat.Tools()[0].Name)
	assert.Equal(t, "save", chat.Tools()[1].Name)

	answer, err := chat.Send(context.Background(), "weather?")
	require.NoError(t, err)
	assert.Equal(t, "Rain in Oslo, noted.", answer)

	assert.Equal(t, []string{"forecast"}, weather.calls)
	assert.Equal(t, []string{"save"}, notes.calls)

	require.Len(t, provider.requests, 2)
	second := provider.requests[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, RoleAssistant, second[1].Role)
	assert.Equal(t, Message{Role: RoleTool, Content: "weather:forecast", ToolCallID: "c1"}, second[2])
	assert.Equal(t, Message{Role: RoleTool, Content: "notes:save", ToolCallID: "c2"}, second[3])

	conv := chat.(*Conversation)
	assert.Len(t, conv.History(), 5)
}

func TestConversation_MultiTurnKeepsHistory(t *testing.T) {
	provider := &scriptedProvider{responses: []*Response{{Text: "hi"}, {Text: "Ada"}}}
	chat, err := NewAgent(provider).StartChat(context.Background(), nil)
	require.NoError(t, err)

	_, err = chat.Send(context.Background(), "I am Ada")
	require.NoError(t, err)
	answer, err := chat.Send(context.Background(), "who am I?")
	require.NoError(t, err)
	assert.Equal(t, "Ada", answer)

	require.Len(t, provider.requests, 2)
	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "I am Ada"},
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleUser, Content: "who am I?"},
	}, provider.requests[1].Messages)
}

func TestConversation_ToolErrorsGoBackToModel(t *testing.T) {
	broken := newStub("broken", "explode", "refuse")
	broken.handler = func(name string, args map[string]any) (*mcp.CallToolResult, error) {
		if name == "explode" {
			return nil, errors.New("connection reset")
		}
		return mcp.NewToolResultError("not allowed"), nil
	}
	provider := &scriptedProvider{responses: []*Response{
		{ToolCalls: []ToolCall{
			{ID: "1", Name: "explode"},
			{ID: "2", Name: "refuse"},
			{ID: "3", Name: "nonexistent"},
		}},
		{Text: "sorry"},
	}}

	answer, err := NewAgent(provider).Ask(context.Background(), "go", []ToolSession{broken})
	require.NoError(t, err)
	assert.Equal(t, "sorry", answer)

	results := provider.requests[1].Messages[2:]
	require.Len(t, results, 3)
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Content, "connection reset")
	assert.True(t, results[1].IsError)
	assert.Equal(t, "not allowed", results[1].Content)
	assert.True(t, results[2].IsError)
	assert.Equal(t, `unknown tool "nonexistent"`, results[2].Content)
}

func TestConversation_MaxToolRounds(t *testing.T) {
	looping := &Response{Text: "still working", ToolCalls: []ToolCall{{ID: "x", Name: "echo"}}}
	provider := &scriptedProvider{responses: []*Response{looping, looping, looping, looping}}

	chat, err := NewAgent(provider, WithMaxToolRounds(2)).StartChat(context.Background(), []ToolSession{newStub("s", "echo")})
	require.NoError(t, err)

	answer, err := chat.Send(context.Background(), "loop")
	require.NoError(t, err)
	assert.Equal(t, "still working", answer)
	assert.Len(t, provider.requests, 2)

	// The history ends with tool results, so a next turn is valid.
	history := chat.(*Conversation).History()
	assert.Equal(t, RoleTool, history[len(history)-1].Role)
}

func TestConversation_RemoteCallError(t *testing.T) {
	errAPI := errors.New("quota exceeded")
	provider := &scriptedProvider{
		errs:      []error{errAPI},
		responses: []*Response{nil, {Text: "recovered"}},
	}
	chat, err := NewAgent(provider).StartChat(context.Background(), nil)
	require.NoError(t, err)

	_, err = chat.Send(context.Background(), "first")
	var remoteErr *RemoteCallError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "scripted", remoteErr.Provider)
	assert.ErrorIs(t, err, errAPI)
	assert.Empty(t, chat.(*Conversation).History())

	answer, err := chat.Send(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "second"}}, provider.requests[1].Messages)
}

func TestNewToolbox_DuplicatesAndListFailures(t *testing.T) {
	first := newStub("first", "search", "fetch")
	second := newStub("second", "search", "summarize")
	failing := newStub("failing", "anything")
	failing.listErr = errors.New("boom")

	tb, err := NewToolbox(context.Background(), []ToolSession{first, failing, second})
	require.NoError(t, err)

	var names []string
	for _, spec := range tb.Specs() {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{"search", "fetch", "summarize"}, names)

	owner, ok := tb.Owner("search")
	require.True(t, ok)
	assert.Equal(t, "first", owner)
	owner, _ = tb.Owner("summarize")
	assert.Equal(t, "second", owner)
	_, ok = tb.Owner("anything")
	assert.False(t, ok)
}

func TestNewToolbox_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newStub("s", "x")
	s.listErr = context.Canceled

	_, err := NewToolbox(ctx, []ToolSession{s})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInputSchema(t *testing.T) {
	t.Run("structured", func(t *testing.T) {
		tool := mcp.NewTool("t", mcp.WithString("q", mcp.Required()), mcp.WithNumber("n"))
		schema := inputSchema(tool)
		assert.Equal(t, "object", schema["type"])
		assert.Contains(t, schema["properties"], "q")
		assert.Contains(t, schema["properties"], "n")
		assert.Equal(t, []string{"q"}, schema["required"])
	})

	t.Run("no parameters", func(t *testing.T) {
		schema := inputSchema(mcp.NewTool("t"))
		assert.Equal(t, map[string]any{}, schema["properties"])
		assert.NotContains(t, schema, "required")
	})

	t.Run("raw schema", func(t *testing.T) {
		tool := mcp.NewToolWithRawSchema("t", "raw", []byte(`{"type":"object","properties":{"x":{"type":"integer"}}}`))
		schema := inputSchema(tool)
		assert.Equal(t, map[string]any{"x": map[string]any{"type": "integer"}}, schema["properties"])
	})
}

func TestRenderContent(t *testing.T) {
	contents := []mcp.Content{
		mcp.NewTextContent("line one"),
		mcp.NewTextContent("line two"),
		mcp.NewImageContent("aGk=", "image/png"),
	}
	rendered := renderContent(contents)
	assert.Contains(t, rendered, "line one\nline two\n")
	assert.Contains(t, rendered, `"mimeType":"image/png"`)
}
