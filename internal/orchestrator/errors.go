package orchestrator

import (
	"errors"
	"fmt"
)

// ErrExitedBeforeHandshake is wrapped by a LaunchError when the subprocess
// exits before it answers the initialize request.
var ErrExitedBeforeHandshake = errors.New("process exited before completing the handshake")

// LaunchError reports a tool server whose subprocess could not be started.
type LaunchError struct {
	Server  string
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// HandshakeError reports a failed or timed out initialize exchange.
type HandshakeError struct {
	Server   string
	TimedOut bool
	Err      error
}

func (e *HandshakeError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("initialize handshake timed out: %v", e.Err)
	}
	return fmt.Sprintf("initialize handshake failed: %v", e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}
