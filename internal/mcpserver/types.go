package mcpserver

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// DefaultCommand is the launcher used for entries that do not name a command.
const DefaultCommand = "uvx"

// LaunchSpec describes how to start one MCP tool server as a subprocess.
// Values are copied out of the Registry, so callers can't mutate the registry
// through them.
type LaunchSpec struct {
	Name     string            // Unique key from the mcpServers mapping
	Command  string            // Executable, resolved through PATH at launch time
	Args     []string          // Arguments in configuration order
	Env      map[string]string // Overlay on top of the parent environment
	Disabled bool
}

// String returns the command line for log and error messages.
func (s LaunchSpec) String() string {
	if len(s.Args) == 0 {
		return s.Command
	}
	return fmt.Sprintf("%s %v", s.Command, s.Args)
}

func (s LaunchSpec) clone() LaunchSpec {
	out := s
	out.Args = slices.Clone(s.Args)
	if out.Args == nil {
		out.Args = []string{}
	}
	out.Env = maps.Clone(s.Env)
	if out.Env == nil {
		out.Env = map[string]string{}
	}
	return out
}

// Registry is the ordered set of enabled launch specs for one run.
// It is built once by Parse or LoadFile and is read-only afterwards.
type Registry struct {
	order    []string
	specs    map[string]LaunchSpec
	disabled []string
}

func newRegistry() *Registry {
	return &Registry{specs: make(map[string]LaunchSpec)}
}

// NewRegistry builds a registry from specs in the given order, with the same
// rules as Parse: an empty command becomes DefaultCommand, a repeated name
// keeps its first position but takes the last spec, and disabled specs are
// left out.
func NewRegistry(specs ...LaunchSpec) *Registry {
	var order []string
	all := make(map[string]LaunchSpec)
	for _, spec := range specs {
		if spec.Command == "" {
			spec.Command = DefaultCommand
		}
		if _, seen := all[spec.Name]; !seen {
			order = append(order, spec.Name)
		}
		all[spec.Name] = spec.clone()
	}
	return buildRegistry(order, all)
}

func buildRegistry(order []string, all map[string]LaunchSpec) *Registry {
	registry := newRegistry()
	for _, name := range order {
		spec := all[name]
		if spec.Disabled {
			registry.disabled = append(registry.disabled, name)
			continue
		}
		registry.order = append(registry.order, name)
		registry.specs[name] = spec
	}
	return registry
}

// Len returns the number of enabled servers. A nil registry is empty.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Names returns the enabled server names in configuration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.order)
}

// Disabled returns the names of entries that were filtered out because they
// were marked disabled.
func (r *Registry) Disabled() []string {
	if r == nil {
		return nil
	}
	return slices.Clone(r.disabled)
}

// Get returns the launch spec registered under name.
func (r *Registry) Get(name string) (LaunchSpec, bool) {
	if r == nil {
		return LaunchSpec{}, false
	}
	spec, ok := r.specs[name]
	if !ok {
		return LaunchSpec{}, false
	}
	return spec.clone(), true
}

// Specs returns copies of all enabled launch specs in configuration order.
func (r *Registry) Specs() []LaunchSpec {
	if r == nil {
		return nil
	}
	out := make([]LaunchSpec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name].clone())
	}
	return out
}

// Equal reports whether both registries hold the same specs in the same order.
func (r *Registry) Equal(other *Registry) bool {
	if r.Len() != other.Len() {
		return false
	}
	if r.Len() == 0 {
		return true
	}
	return slices.Equal(r.order, other.order) && reflect.DeepEqual(r.specs, other.specs)
}
