package source

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/roach88/kconfsync/internal/kconf"
)

// Decode converts a generic tree, as produced by a JSON, YAML or CUE decoder,
// into a Document.
func Decode(raw any) (Document, error) {
	if raw == nil {
		return Document{}, nil
	}

	files, err := asMap(raw, "document")
	if err != nil {
		return nil, err
	}

	doc := make(Document, len(files))
	for path, rawFile := range files {
		groups, err := asMap(rawFile, fmt.Sprintf("file %q", path))
		if err != nil {
			return nil, err
		}

		file := make(File, len(groups))
		for groupName, rawGroup := range groups {
			where := fmt.Sprintf("file %q, group %q", path, groupName)
			keys, err := asMap(rawGroup, where)
			if err != nil {
				return nil, err
			}

			group := make(Group, len(keys))
			for key, rawDesc := range keys {
				desc, err := decodeDescriptor(rawDesc)
				if err != nil {
					return nil, fmt.Errorf("%s, key %q: %w", where, key, err)
				}
				group[key] = desc
			}
			file[groupName] = group
		}
		doc[path] = file
	}

	return doc, nil
}

// decodeDescriptor decodes a descriptor object. Anything that is not an
// object is taken as the value itself.
func decodeDescriptor(raw any) (kconf.Descriptor, error) {
	fields, ok := toStringMap(raw)
	if !ok {
		return kconf.Descriptor{Value: raw}, nil
	}

	var desc kconf.Descriptor
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &desc,
		// Field names are case sensitive so "shellexpand" is reported.
		MatchName: func(mapKey, fieldName string) bool { return mapKey == fieldName },
	})
	if err != nil {
		return kconf.Descriptor{}, err
	}
	if err := decoder.Decode(fields); err != nil {
		return kconf.Descriptor{}, fmt.Errorf("invalid descriptor: %w", err)
	}

	return desc, nil
}

func asMap(raw any, what string) (map[string]any, error) {
	if raw == nil {
		return map[string]any{}, nil
	}
	m, ok := toStringMap(raw)
	if !ok {
		return nil, fmt.Errorf("%s: expected an object, got %T", what, raw)
	}
	return m, nil
}

// toStringMap accepts the map shapes produced by encoding/json and yaml.v3.
func toStringMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}
