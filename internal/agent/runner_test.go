package agent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpask/internal/color"
	"mcpask/internal/llm"
	"mcpask/internal/mcpserver"
	"mcpask/internal/mockserver"
	"mcpask/internal/orchestrator"
	"mcpask/internal/reporting"
)

// memStream connects the MCP client to an in-process mock server.
type memStream struct {
	stdoutR *io.PipeReader
	stdinW  *io.PipeWriter
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func newMemStream(name string) *memStream {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	s := &memStream{stdoutR: stdoutR, stdinW: stdinW, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		_ = mockserver.New(name, "test").ServeStdio(ctx, stdinR, stdoutW)
		stdinR.Close()
		stdoutW.Close()
	}()
	return s
}

func (s *memStream) Stdout() io.Reader     { return s.stdoutR }
func (s *memStream) Stdin() io.WriteCloser { return s.stdinW }
func (s *memStream) PID() int              { return 0 }
func (s *memStream) Done() <-chan struct{} { return s.done }
func (s *memStream) Err() error            { return nil }
func (s *memStream) Close() error {
	s.once.Do(func() {
		s.stdinW.Close()
		s.stdoutR.Close()
		s.cancel()
		<-s.done
	})
	return nil
}

// memLauncher serves every spec with a mock server unless its command does
// not exist.
type memLauncher struct {
	mu       sync.Mutex
	launched []string
	streams  []*memStream
}

func (l *memLauncher) Launch(ctx context.Context, spec mcpserver.LaunchSpec) (orchestrator.Stream, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launched = append(l.launched, spec.Name)
	if spec.Command == "/does/not/exist" {
		return nil, &orchestrator.LaunchError{Server: spec.Name, Command: spec.Command, Err: exec.ErrNotFound}
	}
	s := newMemStream(spec.Name)
	l.streams = append(l.streams, s)
	return s, nil
}

func (l *memLauncher) allClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.streams {
		select {
		case <-s.done:
		default:
			return false
		}
	}
	return true
}

// scriptedProvider replays responses and keeps every request.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.Response
	err       error
	requests  []llm.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req.Messages = append([]llm.Message(nil), req.Messages...)
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	i := len(p.requests) - 1
	if i >= len(p.responses) {
		return &llm.Response{Text: "done"}, nil
	}
	return p.responses[i], nil
}

// recordingModel remembers the sessions each conversation was opened with.
type recordingModel struct {
	inner    Model
	sessions [][]string
}

func (m *recordingModel) StartChat(ctx context.Context, sessions []llm.ToolSession) (llm.Chat, error) {
	names := []string{}
	for _, s := range sessions {
		names = append(names, s.Name())
	}
	m.sessions = append(m.sessions, names)
	return m.inner.StartChat(ctx, sessions)
}

func mustParse(t *testing.T, doc string) *mcpserver.Registry {
	t.Helper()
	reg, err := mcpserver.Parse([]byte(doc))
	require.NoError(t, err)
	return reg
}

func newTestRunner(launcher orchestrator.Launcher, provider llm.Provider, status io.Writer) (*Runner, *recordingModel, *bytes.Buffer) {
	model := &recordingModel{inner: llm.NewAgent(provider, llm.WithModel("test-model"))}
	orch := orchestrator.New(
		orchestrator.WithLauncher(launcher),
		orchestrator.WithReporter(reporting.NewConsoleReporter(status, false)),
	)
	out := &bytes.Buffer{}
	return NewRunner(orch, model, out, color.Plain()), model, out
}

func TestRunner_Ask_SkipsMissingServer(t *testing.T) {
	launcher := &memLauncher{}
	provider := &scriptedProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "echo", Arguments: map[string]any{"text": "hello from a"}}}},
		{Text: "a said: hello from a"},
	}}
	status := &bytes.Buffer{}
	runner, model, out := newTestRunner(launcher, provider, status)

	reg := mustParse(t, `{"mcpServers": {"a": {"command": "echo"}, "b": {"command": "/does/not/exist"}}}`)
	err := runner.Ask(context.Background(), reg, "say hello")
	require.NoError(t, err)

	assert.Equal(t, "a said: hello from a\n", out.String())
	assert.Equal(t, [][]string{{"a"}}, model.sessions)
	assert.Equal(t, []string{"a", "b"}, launcher.launched)

	require.Len(t, provider.requests, 2)
	assert.NotEmpty(t, provider.requests[0].Tools)
	toolResult := provider.requests[1].Messages[2]
	assert.Equal(t, llm.RoleTool, toolResult.Role)
	assert.Equal(t, "hello from a", toolResult.Content)
	assert.False(t, toolResult.IsError)

	assert.Contains(t, status.String(), "✅ Connected to MCP server: a")
	assert.Contains(t, status.String(), "❌ Failed to connect to MCP server b")
	assert.Contains(t, status.String(), "continuing with the others: [b]")
	assert.True(t, launcher.allClosed(), "every server is torn down after the run")
}

func TestRunner_Ask_EmptyConfigCallsModelWithoutTools(t *testing.T) {
	launcher := &memLauncher{}
	provider := &scriptedProvider{responses: []*llm.Response{{Text: "4"}}}
	status := &bytes.Buffer{}
	runner, model, out := newTestRunner(launcher, provider, status)

	err := runner.Ask(context.Background(), mustParse(t, `{}`), "2+2?")
	require.NoError(t, err)

	assert.Equal(t, "4\n", out.String())
	assert.Empty(t, launcher.launched)
	assert.Equal(t, [][]string{{}}, model.sessions)
	require.Len(t, provider.requests, 1)
	assert.Empty(t, provider.requests[0].Tools)
	assert.Empty(t, status.String())
}

func TestRunner_Ask_NoServerConnects(t *testing.T) {
	launcher := &memLauncher{}
	provider := &scriptedProvider{responses: []*llm.Response{{Text: "without tools"}}}
	status := &bytes.Buffer{}
	runner, model, out := newTestRunner(launcher, provider, status)

	reg := mustParse(t, `{"mcpServers": {"b": {"command": "/does/not/exist"}}}`)
	require.NoError(t, runner.Ask(context.Background(), reg, "hi"))

	assert.Equal(t, "without tools\n", out.String())
	assert.Equal(t, [][]string{{}}, model.sessions)
	assert.Empty(t, provider.requests[0].Tools)
	assert.Contains(t, status.String(), "continuing without tools")
}

func TestRunner_Ask_RemoteCallErrorTearsDown(t *testing.T) {
	launcher := &memLauncher{}
	errQuota := errors.New("quota exceeded")
	provider := &scriptedProvider{err: errQuota}
	runner, _, out := newTestRunner(launcher, provider, io.Discard)

	reg := mustParse(t, `{"mcpServers": {"a": {"command": "echo"}}}`)
	err := runner.Ask(context.Background(), reg, "hi")

	var remoteErr *llm.RemoteCallError
	require.ErrorAs(t, err, &remoteErr)
	assert.ErrorIs(t, err, errQuota)
	assert.Empty(t, out.String())
	assert.True(t, launcher.allClosed())
}

func TestRunner_Chat(t *testing.T) {
	launcher := &memLauncher{}
	provider := &scriptedProvider{responses: []*llm.Response{{Text: "hello"}, {Text: "bye"}}}
	runner, model, out := newTestRunner(launcher, provider, io.Discard)

	lines := &scriptedLines{lines: []string{"hi", "", "   ", "see you", "quit", "never read"}}
	reg := mustParse(t, `{"mcpServers": {"a": {"command": "echo"}}}`)
	require.NoError(t, runner.Chat(context.Background(), reg, func() (LineReader, error) { return lines, nil }))

	assert.Equal(t, [][]string{{"a"}}, model.sessions)
	assert.Len(t, provider.requests, 2)
	assert.Len(t, provider.requests[1].Messages, 3, "the second turn carries the first one")
	assert.Contains(t, out.String(), "hello\n")
	assert.Contains(t, out.String(), "bye\n")
	assert.Contains(t, out.String(), "Conversation ended")
	assert.True(t, lines.closed)
	assert.True(t, launcher.allClosed())
}

func TestRunner_Chat_LineReaderFailure(t *testing.T) {
	launcher := &memLauncher{}
	runner, _, _ := newTestRunner(launcher, &scriptedProvider{}, io.Discard)

	errNoTTY := errors.New("not a terminal")
	reg := mustParse(t, `{"mcpServers": {"a": {"command": "echo"}}}`)
	err := runner.Chat(context.Background(), reg, func() (LineReader, error) { return nil, errNoTTY })

	assert.ErrorIs(t, err, errNoTTY)
	assert.True(t, launcher.allClosed())
}
