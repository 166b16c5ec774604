package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"

	"mcpask/internal/mcpserver"
	"mcpask/pkg/logging"
)

// DefaultShutdownGrace is how long a server gets to exit on its own after its
// stdin is closed, and again after SIGTERM, before it is killed.
const DefaultShutdownGrace = 2 * time.Second

// For mocking in tests
var execLookPath = exec.LookPath

// ProcessLauncher starts tool servers as local subprocesses.
type ProcessLauncher struct {
	// ShutdownGrace overrides DefaultShutdownGrace when positive.
	ShutdownGrace time.Duration
	// Environ returns the parent environment the server's env is laid over.
	// Defaults to os.Environ.
	Environ func() []string
}

// Launch resolves spec.Command through PATH and starts it in its own process
// group with piped stdin, stdout and stderr. The process is not tied to ctx:
// its lifetime belongs to whoever closes the returned Stream.
func (l *ProcessLauncher) Launch(ctx context.Context, spec mcpserver.LaunchSpec) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := execLookPath(spec.Command)
	if err != nil {
		return nil, &LaunchError{Server: spec.Name, Command: spec.Command, Err: err}
	}

	environ := os.Environ
	if l.Environ != nil {
		environ = l.Environ
	}

	cmd := exec.Command(path, spec.Args...)
	cmd.Env = mergeEnv(environ(), spec.Env)
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &LaunchError{Server: spec.Name, Command: spec.Command, Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, &LaunchError{Server: spec.Name, Command: spec.Command, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	grace := l.ShutdownGrace
	if grace <= 0 {
		grace = DefaultShutdownGrace
	}

	// Something the server spawned outside its process group can hold stderr
	// open after the server is gone. Wait gives up on the pipe after grace.
	stderr := &stderrLog{name: spec.Name}
	cmd.Stderr = stderr
	cmd.WaitDelay = grace

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, &LaunchError{Server: spec.Name, Command: spec.Command, Err: err}
	}

	p := &process{
		name:   spec.Name,
		cmd:    cmd,
		stdin:  stdin,
		stdout: closedAsEOF{stdout},
		stderr: stderr,
		grace:  grace,
		done:   make(chan struct{}),
	}

	logging.Debug("ProcessLauncher", "Started %s (PID: %d): %s", spec.Name, cmd.Process.Pid, spec)

	go p.wait()

	return p, nil
}

// process implements Stream for an exec.Cmd.
type process struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr *stderrLog
	grace  time.Duration

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
}

func (p *process) Stdout() io.Reader     { return p.stdout }
func (p *process) Stdin() io.WriteCloser { return p.stdin }
func (p *process) PID() int              { return p.cmd.Process.Pid }
func (p *process) Done() <-chan struct{} { return p.done }

func (p *process) Err() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// wait is the only caller of cmd.Wait.
func (p *process) wait() {
	p.waitErr = p.cmd.Wait()
	p.stderr.flush()
	if errors.Is(p.waitErr, exec.ErrWaitDelay) {
		logging.Debug("ProcessLauncher", "%s (PID: %d) exited but its stderr is still held open by another process", p.name, p.cmd.Process.Pid)
	}
	logging.Debug("ProcessLauncher", "%s (PID: %d) exited: %v", p.name, p.cmd.Process.Pid, p.waitErr)
	close(p.done)
}

// Close closes stdin, then escalates to SIGTERM and SIGKILL on the whole
// process group, waiting up to the grace period between steps. It always
// waits for the process to be reaped.
func (p *process) Close() error {
	var err error
	p.closeOnce.Do(func() {
		// The MCP client may already have closed stdin.
		_ = p.stdin.Close()
		if p.waitFor(p.grace) {
			return
		}

		logging.Debug("ProcessLauncher", "%s (PID: %d) still running after stdin closed, sending SIGTERM", p.name, p.PID())
		if termErr := terminateProcessGroup(p.cmd); termErr != nil {
			logging.Debug("ProcessLauncher", "SIGTERM to %s failed: %v", p.name, termErr)
		}
		if p.waitFor(p.grace) {
			return
		}

		logging.Warn("ProcessLauncher", "%s (PID: %d) ignored SIGTERM, killing it", p.name, p.PID())
		if killErr := killProcessGroup(p.cmd); killErr != nil {
			err = fmt.Errorf("kill %s (PID: %d): %w", p.name, p.PID(), killErr)
		}
		<-p.done
	})
	return err
}

func (p *process) waitFor(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.done:
		return true
	case <-timer.C:
		return false
	}
}

// closedAsEOF reports a stdout pipe closed by cmd.Wait as the end of the
// stream. The MCP client's reader may still be blocked on it when the server
// is reaped, and treats anything but io.EOF as a failure worth printing.
type closedAsEOF struct {
	r io.Reader
}

func (c closedAsEOF) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	if errors.Is(err, os.ErrClosed) {
		err = io.EOF
	}
	return n, err
}

// maxStderrLine bounds a partial line kept while waiting for its newline.
const maxStderrLine = 64 * 1024

// stderrLog writes each line a server prints on stderr to the debug log.
type stderrLog struct {
	name string

	mu  sync.Mutex
	buf []byte
}

func (w *stderrLog) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.log(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) > maxStderrLine {
		w.log(w.buf)
		w.buf = nil
	}
	return len(b), nil
}

func (w *stderrLog) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.log(w.buf)
		w.buf = nil
	}
}

func (w *stderrLog) log(line []byte) {
	logging.Debug("MCPServer-"+w.name, "[STDERR] %s", bytes.TrimRight(line, "\r"))
}

// mergeEnv overlays env on base. Overlay keys are applied in sorted order so
// the resulting environment is deterministic.
func mergeEnv(base []string, env map[string]string) []string {
	merged := slices.Clone(base)
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		merged = append(merged, k+"="+env[k])
	}
	return merged
}
