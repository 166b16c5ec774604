package orchestrator

import (
	"errors"
	"fmt"
	"sync"

	"mcpask/pkg/logging"
)

// ErrStackClosed is returned by Push after the stack has been closed. The
// resource handed to Push has already been released when it is returned.
var ErrStackClosed = errors.New("resource stack already closed")

type resource struct {
	name    string
	release func() error
}

// ResourceStack owns a set of resources and releases them in reverse order of
// acquisition. It is safe for concurrent use.
type ResourceStack struct {
	mu      sync.Mutex
	entries []resource
	closed  bool
}

// NewResourceStack returns an empty, open stack.
func NewResourceStack() *ResourceStack {
	return &ResourceStack{}
}

// Push registers release to run when the stack is closed. Pushing onto a
// closed stack releases the resource immediately.
func (s *ResourceStack) Push(name string, release func() error) error {
	s.mu.Lock()
	if !s.closed {
		s.entries = append(s.entries, resource{name: name, release: release})
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := release(); err != nil {
		return errors.Join(ErrStackClosed, fmt.Errorf("release %s: %w", name, err))
	}
	return ErrStackClosed
}

// Len returns the number of resources still owned by the stack.
func (s *ResourceStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close releases every resource, last pushed first. Every release runs even
// if an earlier one fails; the failures are joined. Close is idempotent.
func (s *ResourceStack) Close() error {
	s.mu.Lock()
	entries := s.entries
	s.entries = nil
	s.closed = true
	s.mu.Unlock()

	var errs []error
	for i := len(entries) - 1; i >= 0; i-- {
		entry := entries[i]
		logging.Debug("ResourceStack", "Releasing %s", entry.name)
		if err := entry.release(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", entry.name, err))
		}
	}
	return errors.Join(errs...)
}
