package orchestrator

import (
	"context"
	"io"

	"mcpask/internal/mcpserver"
)

// Stream is the duplex byte stream to a launched tool server together with
// the handle that terminates it.
type Stream interface {
	// Stdout is read by the MCP client; it carries the server's responses.
	Stdout() io.Reader
	// Stdin is written by the MCP client. Closing it signals end of input.
	Stdin() io.WriteCloser
	// PID is the server's process id, or 0 for streams without a process.
	PID() int
	// Done is closed once the server has exited.
	Done() <-chan struct{}
	// Err returns the exit error after Done is closed.
	Err() error
	// Close terminates the server and waits for it to exit. It is safe to
	// call more than once.
	Close() error
}

// Launcher starts the tool server described by a launch spec.
type Launcher interface {
	Launch(ctx context.Context, spec mcpserver.LaunchSpec) (Stream, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, spec mcpserver.LaunchSpec) (Stream, error)

func (f LauncherFunc) Launch(ctx context.Context, spec mcpserver.LaunchSpec) (Stream, error) {
	return f(ctx, spec)
}
