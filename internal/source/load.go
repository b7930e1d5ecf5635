package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Format identifies a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// ErrUnknownFormat is returned for files whose extension is not recognized.
var ErrUnknownFormat = errors.New("unknown document format")

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads a document from path. The path "-" reads JSON from stdin.
func Load(path string) (Document, error) {
	if path == "-" {
		return Read(os.Stdin, FormatJSON, "<stdin>")
	}

	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return Parse(data, format, path)
}

// Read parses a document from r.
func Read(r io.Reader, format Format, name string) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", name, err)
	}
	return Parse(data, format, name)
}

// Parse decodes data in the given format. name is used in error messages.
func Parse(data []byte, format Format, name string) (Document, error) {
	var (
		doc Document
		err error
	)
	switch format {
	case FormatJSON:
		doc, err = ParseJSON(data)
	case FormatYAML:
		doc, err = ParseYAML(data)
	case FormatCUE:
		doc, err = ParseCUE(data, name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return doc, nil
}

// ParseJSON decodes a JSON document. Numbers keep their literal text.
func ParseJSON(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, nil
		}
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("parse JSON: trailing data after document")
	}
	return Decode(raw)
}

// ParseYAML decodes a YAML document. Float literals keep their text, as
// JSON numbers do.
func ParseYAML(data []byte) (Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	raw, err := yamlValue(&root)
	if err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return Decode(raw)
}

// ParseCUE evaluates a CUE document. The result must be concrete; it is
// exported to JSON and decoded from there.
func ParseCUE(data []byte, name string) (Document, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile CUE: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate CUE: %w", err)
	}

	exported, err := value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("export CUE: %w", err)
	}
	return ParseJSON(exported)
}
