package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"mcpask/pkg/logging"
)

const exitSettleDelay = 250 * time.Millisecond

// ToolSession is an initialized MCP client session with one tool server.
// Sessions are only handed out after a successful handshake and stay valid
// until the owning Result is closed.
type ToolSession struct {
	name   string
	client *client.Client
	stream Stream

	mu          sync.RWMutex
	initialized bool
	info        *mcp.InitializeResult

	closeOnce sync.Once
	closeErr  error
}

// newToolSession builds an MCP client over the stream's stdio. The stream's
// stderr is drained by the launcher, so the transport gets an empty reader.
func newToolSession(name string, stream Stream) *ToolSession {
	stdio := transport.NewIO(stream.Stdout(), stream.Stdin(), io.NopCloser(strings.NewReader("")))
	return &ToolSession{
		name:   name,
		client: client.NewClient(stdio),
		stream: stream,
	}
}

// Name returns the server's registry key.
func (s *ToolSession) Name() string {
	return s.name
}

// Initialized reports whether the initialize handshake has completed.
func (s *ToolSession) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// ServerInfo returns the implementation info the server sent in its
// initialize response.
func (s *ToolSession) ServerInfo() mcp.Implementation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.info == nil {
		return mcp.Implementation{}
	}
	return s.info.ServerInfo
}

// ProtocolVersion returns the protocol version the server agreed to.
func (s *ToolSession) ProtocolVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.info == nil {
		return ""
	}
	return s.info.ProtocolVersion
}

// PID returns the server's process id, 0 if it has none.
func (s *ToolSession) PID() int {
	return s.stream.PID()
}

// initialize starts the transport and runs the handshake. It returns early if
// the server exits before answering.
func (s *ToolSession) initialize(ctx context.Context, clientInfo mcp.Implementation) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("start client transport: %w", err)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = clientInfo
	req.Params.Capabilities = mcp.ClientCapabilities{}

	type outcome struct {
		result *mcp.InitializeResult
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		result, err := s.client.Initialize(ctx, req)
		ch <- outcome{result: result, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			// A broken pipe usually means the server died; wait briefly for
			// the exit so the failure is attributed to it.
			timer := time.NewTimer(exitSettleDelay)
			defer timer.Stop()
			select {
			case <-s.stream.Done():
				return s.exitedError()
			case <-timer.C:
				return out.err
			}
		}
		s.mu.Lock()
		s.initialized = true
		s.info = out.result
		s.mu.Unlock()
		logging.Debug("ToolSession", "%s initialized: %s %s (protocol %s)",
			s.name, out.result.ServerInfo.Name, out.result.ServerInfo.Version, out.result.ProtocolVersion)
		return nil
	case <-s.stream.Done():
		return s.exitedError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ToolSession) exitedError() error {
	if exitErr := s.stream.Err(); exitErr != nil {
		return fmt.Errorf("%w: %v", ErrExitedBeforeHandshake, exitErr)
	}
	return ErrExitedBeforeHandshake
}

// ListTools returns every tool the server advertises, following pagination
// cursors until the list is exhausted.
func (s *ToolSession) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	var tools []mcp.Tool
	var cursor mcp.Cursor
	for {
		req := mcp.ListToolsRequest{}
		req.Params.Cursor = cursor
		result, err := s.client.ListTools(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("list tools on %s: %w", s.name, err)
		}
		tools = append(tools, result.Tools...)
		if result.NextCursor == "" || result.NextCursor == cursor {
			return tools, nil
		}
		cursor = result.NextCursor
	}
}

// CallTool invokes a tool on the server with the given arguments.
func (s *ToolSession) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call tool %s on %s: %w", name, s.name, err)
	}
	return result, nil
}

// close shuts the client down, which closes the server's stdin. The stream
// itself is released separately.
func (s *ToolSession) close() error {
	s.closeOnce.Do(func() {
		err := s.client.Close()
		// Stdin may already be gone if the server exited on its own.
		if err != nil && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, os.ErrClosed) {
			s.closeErr = fmt.Errorf("close session %s: %w", s.name, err)
		}
		s.mu.Lock()
		s.initialized = false
		s.mu.Unlock()
	})
	return s.closeErr
}
