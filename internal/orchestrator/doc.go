// Package orchestrator launches MCP tool servers and turns them into live
// sessions for one run.
//
// The orchestrator walks a mcpserver.Registry in configuration order. For each
// entry it starts the subprocess through a Launcher, performs the MCP
// initialize handshake over the subprocess's stdin/stdout, and classifies the
// outcome as connected or failed. A failure of one server never stops the
// others: it is recorded in Result.FailedNames and reported, and whatever was
// acquired for that server is released on the spot.
//
// # Resource Ownership
//
// Every subprocess and client that survives its handshake is pushed onto a
// ResourceStack owned by the Result. Result.Close releases them in reverse
// order of acquisition: the session's client first, which closes the
// server's stdin, then the subprocess, which is given a grace period before
// SIGTERM and finally SIGKILL. No subprocess outlives Result.Close.
//
// WithSessions wraps the whole lifecycle in a scope:
//
//	orch := orchestrator.New(orchestrator.WithHandshakeTimeout(10 * time.Second))
//	err := orch.WithSessions(ctx, registry, func(ctx context.Context, res *orchestrator.Result) error {
//	    for _, s := range res.Sessions {
//	        tools, err := s.ListTools(ctx)
//	        ...
//	    }
//	    return nil
//	})
//
// # Failure Semantics
//
// LaunchError and HandshakeError are soft: they end up in Result.Failures.
// Cancelling ctx while servers are being attempted is fatal: the stack is
// unwound and ctx.Err() is returned.
//
// # Concurrency
//
// Attempts are sequential by default. WithParallelism allows a bounded number
// of attempts in flight; Sessions and FailedNames keep configuration order
// either way.
package orchestrator
