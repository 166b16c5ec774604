package mcpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"mcpask/pkg/logging"

	"gopkg.in/yaml.v3"
)

const serversKey = "mcpServers"

// serverEntry mirrors one value of the mcpServers mapping. Command is a
// pointer so an absent field can be told apart from an empty one.
type serverEntry struct {
	Command  *string           `yaml:"command"`
	Args     []string          `yaml:"args"`
	Env      map[string]string `yaml:"env"`
	Disabled bool              `yaml:"disabled"`
}

func (e serverEntry) launchSpec(name string) LaunchSpec {
	spec := LaunchSpec{
		Name:     name,
		Command:  DefaultCommand,
		Args:     e.Args,
		Env:      e.Env,
		Disabled: e.Disabled,
	}
	if e.Command != nil {
		spec.Command = *e.Command
	}
	return spec.clone()
}

// LoadFile reads and parses the MCP configuration at path.
// A missing or unreadable file is a *ConfigError.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	registry, err := Parse(data)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return nil, err
	}

	logging.Info("MCPServerLoader", "Loaded %d MCP server definitions from %s (%d disabled)",
		registry.Len(), path, len(registry.disabled))
	return registry, nil
}

// Parse builds a Registry from a JSON or YAML configuration document. Both
// keep the mcpServers insertion order. A key repeated within one mapping
// takes its last value.
//
// An absent, null or empty mcpServers value yields an empty registry.
// Entries with disabled: true are left out.
func Parse(data []byte) (*Registry, error) {
	registry := newRegistry()

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return registry, nil
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	if len(doc.Content) == 0 {
		return registry, nil
	}

	root := doc.Content[0]
	if isNull(root) {
		return registry, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigError{Err: fmt.Errorf("line %d: top-level document must be a mapping", root.Line)}
	}

	servers := lookup(root, serversKey)
	if servers == nil || isNull(servers) {
		return registry, nil
	}
	if servers.Kind != yaml.MappingNode {
		return nil, &ConfigError{Err: fmt.Errorf("line %d: %s must be a mapping of server name to definition", servers.Line, serversKey)}
	}

	// Collect every entry first: a repeated name keeps its first position but
	// takes the last definition, and may be disabled by that definition.
	var order []string
	all := make(map[string]LaunchSpec)
	for i := 0; i+1 < len(servers.Content); i += 2 {
		keyNode, valueNode := servers.Content[i], servers.Content[i+1]
		name := keyNode.Value

		var entry serverEntry
		if !isNull(valueNode) {
			if valueNode.Kind != yaml.MappingNode {
				return nil, &ConfigError{Err: fmt.Errorf("line %d: server %q must be a mapping", valueNode.Line, name)}
			}
			lastKeyWins(valueNode)
			if err := valueNode.Decode(&entry); err != nil {
				return nil, &ConfigError{Err: fmt.Errorf("server %q: %w", name, err)}
			}
		}

		if _, seen := all[name]; !seen {
			order = append(order, name)
		} else {
			logging.Warn("MCPServerLoader", "Server %q is defined more than once; the last definition wins", name)
		}
		all[name] = entry.launchSpec(name)
	}

	return buildRegistry(order, all), nil
}

// parseDocument reads JSON through encoding/json so its escapes and
// duplicate keys behave as in any JSON reader. Everything else is YAML.
func parseDocument(data []byte) (*yaml.Node, error) {
	if data[0] == '{' && json.Valid(data) {
		return jsonDocument(data)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// lookup returns the last value stored under key.
func lookup(mapping *yaml.Node, key string) *yaml.Node {
	var found *yaml.Node
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			found = mapping.Content[i+1]
		}
	}
	return found
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
