package mcpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// jsonDocument converts a JSON document into a yaml node tree with the key
// order of the source. Values are decoded with JSON escaping rules, so
// escapes like \/ that YAML does not know are accepted.
func jsonDocument(data []byte) (*yaml.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := jsonValue(dec, data)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("line %d: unexpected data after the top-level value", lineAt(data, dec.InputOffset()))
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}, nil
}

func jsonValue(dec *json.Decoder, data []byte) (*yaml.Node, error) {
	line := lineAt(data, dec.InputOffset())
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		kind, tag := yaml.SequenceNode, "!!seq"
		if v == '{' {
			kind, tag = yaml.MappingNode, "!!map"
		}
		node := &yaml.Node{Kind: kind, Tag: tag, Line: line}
		for dec.More() {
			if kind == yaml.MappingNode {
				keyLine := lineAt(data, dec.InputOffset())
				key, err := dec.Token()
				if err != nil {
					return nil, err
				}
				node.Content = append(node.Content, scalar("!!str", key.(string), keyLine))
			}
			child, err := jsonValue(dec, data)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		// Closing delimiter.
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return node, nil
	case string:
		return scalar("!!str", v, line), nil
	case json.Number:
		s := v.String()
		if strings.ContainsAny(s, ".eE") {
			return scalar("!!float", s, line), nil
		}
		return scalar("!!int", s, line), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(v), line), nil
	case nil:
		return scalar("!!null", "null", line), nil
	}
	return nil, fmt.Errorf("line %d: unexpected token %v", line, tok)
}

func scalar(tag, value string, line int) *yaml.Node {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value, Line: line}
	if tag == "!!str" {
		node.Style = yaml.DoubleQuotedStyle
	}
	return node
}

// lineAt returns the 1-based line of the first non-blank byte at or after
// offset.
func lineAt(data []byte, offset int64) int {
	i := int(min(offset, int64(len(data))))
	for i < len(data) && strings.IndexByte(" \t\r\n,:", data[i]) >= 0 {
		i++
	}
	return bytes.Count(data[:i], []byte("\n")) + 1
}

// lastKeyWins rewrites every mapping under n so a repeated key keeps its
// first position and takes its last value, as JSON decoders do.
func lastKeyWins(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		index := make(map[string]int, len(n.Content)/2)
		content := n.Content[:0:0]
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if at, seen := index[key.Value]; seen {
				content[at+1] = value
				continue
			}
			index[key.Value] = len(content)
			content = append(content, key, value)
		}
		n.Content = content
	}
	for _, child := range n.Content {
		lastKeyWins(child)
	}
}
