package source

import (
	"encoding/json"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// jsonNumber matches float literals that are also valid JSON numbers.
var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// yamlValue converts a YAML node into the generic tree Decode accepts.
// Floats written as plain decimal literals become json.Number so "1.0"
// is not shortened to "1".
func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		return yamlMapping(n)
	case yaml.ScalarNode:
		if n.ShortTag() == "!!float" && jsonNumber.MatchString(n.Value) {
			return json.Number(n.Value), nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
	}
}

// yamlMapping converts a mapping node. Merge keys ("<<") contribute entries
// that are not set explicitly.
func yamlMapping(n *yaml.Node) (map[string]any, error) {
	out := make(map[string]any, len(n.Content)/2)
	var merged []map[string]any

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		value, err := yamlValue(v)
		if err != nil {
			return nil, err
		}

		if k.ShortTag() == "!!merge" {
			switch m := value.(type) {
			case map[string]any:
				merged = append(merged, m)
			case []any:
				for _, item := range m {
					mm, ok := item.(map[string]any)
					if !ok {
						return nil, fmt.Errorf("line %d: merge value must be a mapping", k.Line)
					}
					merged = append(merged, mm)
				}
			default:
				return nil, fmt.Errorf("line %d: merge value must be a mapping", k.Line)
			}
			continue
		}

		var key any
		if err := k.Decode(&key); err != nil {
			return nil, fmt.Errorf("line %d: %w", k.Line, err)
		}
		out[fmt.Sprint(key)] = value
	}

	for _, m := range merged {
		for k, v := range m {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	return out, nil
}
