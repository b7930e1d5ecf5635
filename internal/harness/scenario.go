package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	ImmutableByDefault bool `yaml:"immutable_by_default,omitempty"`

	// ResetFiles are reset patterns relative to the sandbox.
	ResetFiles []string `yaml:"reset_files,omitempty"`

	DryRun bool `yaml:"dry_run,omitempty"`

	// Files holds the initial sandbox contents, keyed by relative path.
	Files map[string]string `yaml:"files,omitempty"`

	// Source is an inline declarative document.
	Source map[string]any `yaml:"source,omitempty"`

	// SourceFile names a document file. Relative paths are resolved
	// against the scenario file's directory by LoadScenario.
	SourceFile string `yaml:"source_file,omitempty"`

	// Idempotent applies the scenario twice and requires the second run
	// to change nothing.
	Idempotent bool `yaml:"idempotent,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the sandbox after a run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is the sandbox-relative file (file_* assertions).
	Path string `yaml:"path,omitempty"`

	// Content is the exact expected file content (file_equals).
	Content string `yaml:"content,omitempty"`

	// Line is a whole line to look for (file_contains, file_lacks).
	Line string `yaml:"line,omitempty"`

	// Paths are the expected deletions (deleted).
	Paths []string `yaml:"paths,omitempty"`

	// Code is an expected validation error code (error_code).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertFileEquals   = "file_equals"
	AssertFileAbsent   = "file_absent"
	AssertFileContains = "file_contains"
	AssertFileLacks    = "file_lacks"
	AssertDeleted      = "deleted"
	AssertErrorCode    = "error_code"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.SourceFile != "" && !filepath.IsAbs(scenario.SourceFile) {
		scenario.SourceFile = filepath.Join(filepath.Dir(path), scenario.SourceFile)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	hasInline := s.Source != nil
	hasFile := s.SourceFile != ""
	if hasInline == hasFile {
		return fmt.Errorf("exactly one of source and source_file is required")
	}

	if s.Idempotent && s.DryRun {
		return fmt.Errorf("idempotent cannot be combined with dry_run")
	}

	for path := range s.Files {
		if err := checkRelative(path); err != nil {
			return fmt.Errorf("files: %w", err)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFileEquals, AssertFileAbsent:
		return checkRelative(a.Path)
	case AssertFileContains, AssertFileLacks:
		if a.Line == "" {
			return fmt.Errorf("%s requires line", a.Type)
		}
		return checkRelative(a.Path)
	case AssertDeleted:
		for _, p := range a.Paths {
			if err := checkRelative(p); err != nil {
				return err
			}
		}
		return nil
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("error_code requires code")
		}
		return nil
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// checkRelative rejects paths that would escape the sandbox.
func checkRelative(path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("path %q must be relative", path)
	}
	if !filepath.IsLocal(path) {
		return fmt.Errorf("path %q leaves the sandbox", path)
	}
	return nil
}
