package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"mcpask/internal/mcpserver"
	"mcpask/internal/reporting"
	"mcpask/pkg/logging"
)

// DefaultHandshakeTimeout bounds the initialize exchange with one server.
const DefaultHandshakeTimeout = 30 * time.Second

// Orchestrator turns a registry into live tool sessions.
type Orchestrator struct {
	launcher         Launcher
	reporter         reporting.Reporter
	handshakeTimeout time.Duration
	clientInfo       mcp.Implementation
	parallelism      int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLauncher replaces the subprocess launcher.
func WithLauncher(l Launcher) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.launcher = l
		}
	}
}

// WithReporter replaces the console reporter.
func WithReporter(r reporting.Reporter) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithHandshakeTimeout bounds each initialize exchange. Zero or a negative
// duration disables the bound.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.handshakeTimeout = d
	}
}

// WithClientInfo sets the implementation info sent in the initialize request.
func WithClientInfo(name, version string) Option {
	return func(o *Orchestrator) {
		o.clientInfo = mcp.Implementation{Name: name, Version: version}
	}
}

// WithParallelism allows up to n servers to be attempted at once. Values
// below 1 mean sequential.
func WithParallelism(n int) Option {
	return func(o *Orchestrator) {
		if n < 1 {
			n = 1
		}
		o.parallelism = n
	}
}

// New returns an Orchestrator that launches servers as subprocesses and
// reports progress on stdout.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		launcher:         &ProcessLauncher{},
		reporter:         reporting.NewConsoleReporter(os.Stdout, false),
		handshakeTimeout: DefaultHandshakeTimeout,
		clientInfo:       mcp.Implementation{Name: "mcpask", Version: "dev"},
		parallelism:      1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result holds the outcome of one orchestration run and owns every resource
// acquired during it.
type Result struct {
	// Sessions are the initialized sessions in registry order.
	Sessions []*ToolSession
	// FailedNames lists the servers that failed, in registry order.
	FailedNames []string
	// Failures maps each failed server to the reason.
	Failures map[string]error

	stack *ResourceStack
}

// Attempted returns the number of servers that were attempted.
func (r *Result) Attempted() int {
	if r == nil {
		return 0
	}
	return len(r.Sessions) + len(r.FailedNames)
}

// Session returns the session for the named server, if it connected.
func (r *Result) Session(name string) (*ToolSession, bool) {
	if r == nil {
		return nil, false
	}
	for _, s := range r.Sessions {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// Close releases every session and subprocess in reverse order of
// acquisition. It is idempotent.
func (r *Result) Close() error {
	if r == nil || r.stack == nil {
		return nil
	}
	return r.stack.Close()
}

type attempt struct {
	session *ToolSession
	err     error
}

// Orchestrate attempts every server in the registry and returns the sessions
// that came up. Individual failures are recorded in the Result, never
// returned. The only error is ctx's, in which case everything acquired so far
// has already been released.
func (o *Orchestrator) Orchestrate(ctx context.Context, reg *mcpserver.Registry) (*Result, error) {
	result := &Result{
		Sessions:    []*ToolSession{},
		FailedNames: []string{},
		Failures:    map[string]error{},
		stack:       NewResourceStack(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	specs := reg.Specs()
	if len(specs) == 0 {
		logging.Debug("Orchestrator", "Registry is empty, nothing to launch")
		return result, nil
	}

	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
	}
	o.reporter.Starting(names)
	logging.Info("Orchestrator", "Connecting to %d MCP server(s) with parallelism %d", len(specs), o.parallelism)

	attempts := make([]attempt, len(specs))
	var reportMu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(o.parallelism)
	for i, spec := range specs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			session, err := o.connect(ctx, spec, result.stack)
			attempts[i] = attempt{session: session, err: err}
			if ctx.Err() != nil {
				return nil
			}

			reportMu.Lock()
			defer reportMu.Unlock()
			if err != nil {
				logging.Warn("Orchestrator", "MCP server %s failed: %v", spec.Name, err)
				o.reporter.Failed(spec.Name, err)
			} else {
				logging.Info("Orchestrator", "MCP server %s connected", spec.Name)
				o.reporter.Connected(spec.Name)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		logging.Warn("Orchestrator", "Orchestration cancelled, releasing %d resource(s)", result.stack.Len())
		if closeErr := result.stack.Close(); closeErr != nil {
			logging.Error("Orchestrator", closeErr, "Failed to release resources after cancellation")
		}
		return nil, err
	}

	for i, spec := range specs {
		a := attempts[i]
		if a.err != nil {
			result.FailedNames = append(result.FailedNames, spec.Name)
			result.Failures[spec.Name] = a.err
			continue
		}
		result.Sessions = append(result.Sessions, a.session)
	}

	if len(result.Sessions) == 0 {
		o.reporter.NoSessions(len(specs))
	} else if len(result.FailedNames) > 0 {
		o.reporter.PartialFailure(result.FailedNames)
	}

	return result, nil
}

// connect launches one server and runs its handshake. On success the stream
// and then the session are pushed onto stack, so the session is released
// first. On failure whatever was acquired is released before returning.
func (o *Orchestrator) connect(ctx context.Context, spec mcpserver.LaunchSpec, stack *ResourceStack) (*ToolSession, error) {
	stream, err := o.launcher.Launch(ctx, spec)
	if err != nil {
		var launchErr *LaunchError
		if errors.As(err, &launchErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &LaunchError{Server: spec.Name, Command: spec.Command, Err: err}
	}

	hsCtx, cancel := o.handshakeContext(ctx)
	defer cancel()

	session := newToolSession(spec.Name, stream)
	if err := session.initialize(hsCtx, o.clientInfo); err != nil {
		_ = session.close()
		if closeErr := stream.Close(); closeErr != nil {
			logging.Debug("Orchestrator", "Releasing %s after failed handshake: %v", spec.Name, closeErr)
		}
		return nil, o.classify(ctx, hsCtx, spec, err)
	}

	if err := stack.Push(spec.Name+" process", stream.Close); err != nil {
		_ = session.close()
		return nil, err
	}
	if err := stack.Push(spec.Name+" session", session.close); err != nil {
		return nil, err
	}
	return session, nil
}

func (o *Orchestrator) handshakeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.handshakeTimeout > 0 {
		return context.WithTimeout(ctx, o.handshakeTimeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) classify(ctx, hsCtx context.Context, spec mcpserver.LaunchSpec, err error) error {
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrExitedBeforeHandshake):
		return &LaunchError{Server: spec.Name, Command: spec.Command, Err: err}
	case errors.Is(hsCtx.Err(), context.DeadlineExceeded):
		return &HandshakeError{Server: spec.Name, TimedOut: true, Err: fmt.Errorf("no response within %s", o.handshakeTimeout)}
	default:
		return &HandshakeError{Server: spec.Name, Err: err}
	}
}

// WithSessions orchestrates reg, hands the result to fn, and releases every
// resource when fn returns, whether it fails or not.
func (o *Orchestrator) WithSessions(ctx context.Context, reg *mcpserver.Registry, fn func(context.Context, *Result) error) (err error) {
	result, err := o.Orchestrate(ctx, reg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := result.Close(); closeErr != nil {
			logging.Warn("Orchestrator", "Teardown reported errors: %v", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}()
	return fn(ctx, result)
}

// Orchestrate is a shorthand for New(opts...).Orchestrate(ctx, reg).
func Orchestrate(ctx context.Context, reg *mcpserver.Registry, opts ...Option) (*Result, error) {
	return New(opts...).Orchestrate(ctx, reg)
}
