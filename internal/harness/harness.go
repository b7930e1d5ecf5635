package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/roach88/kconfsync/internal/apply"
	"github.com/roach88/kconfsync/internal/kconf"
	"github.com/roach88/kconfsync/internal/source"
)

// Harness executes one scenario inside a sandbox directory.
type Harness struct {
	scenario *Scenario
	sandbox  string
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh temporary directory that is removed
// afterwards. An error is returned only when the scenario could not be
// executed at all; failed expectations are reported in Result.Errors.
//
// Execution flow:
// 1. Create the sandbox and write the initial files
// 2. Load the declarative source and resolve it against the sandbox
// 3. Apply it (twice when idempotent)
// 4. Evaluate assertions against the final sandbox
func Run(scenario *Scenario) (*Result, error) {
	sandbox, err := os.MkdirTemp("", "kconfsync-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}
	defer os.RemoveAll(sandbox)

	h := &Harness{
		scenario: scenario,
		sandbox:  sandbox,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background())
}

func (h *Harness) run(ctx context.Context) (*Result, error) {
	if err := h.writeInitialFiles(); err != nil {
		return nil, err
	}

	doc, err := h.loadSource()
	if err != nil {
		return nil, err
	}

	reset, err := apply.NewResetSet(h.sandbox, h.scenario.ResetFiles...)
	if err != nil {
		return nil, fmt.Errorf("invalid reset_files: %w", err)
	}
	opts := apply.Options{
		ImmutableByDefault: h.scenario.ImmutableByDefault,
		Reset:              reset,
		DryRun:             h.scenario.DryRun,
		Logger:             h.logger,
	}

	result := NewResult()

	first, err := apply.Apply(ctx, doc, opts)
	if err != nil {
		var verrs kconf.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("apply failed: %w", err)
		}
		for _, e := range verrs {
			result.ErrorCodes = append(result.ErrorCodes, e.Code)
		}
		slices.Sort(result.ErrorCodes)
		result.ErrorCodes = slices.Compact(result.ErrorCodes)
	}
	for _, p := range first.Deleted {
		result.Deleted = append(result.Deleted, h.rel(p))
	}

	result.Files, err = h.collectFiles()
	if err != nil {
		return nil, err
	}

	if h.scenario.Idempotent && len(result.ErrorCodes) == 0 {
		if err := h.reapply(ctx, doc, opts, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range evaluateAssertions(result, h.scenario.Assertions) {
		result.AddError("%s", msg)
	}
	return result, nil
}

func (h *Harness) writeInitialFiles() error {
	for rel, content := range h.scenario.Files {
		path := h.abs(rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}
	return nil
}

func (h *Harness) loadSource() (source.Document, error) {
	var (
		doc source.Document
		err error
	)
	if h.scenario.SourceFile != "" {
		doc, err = source.Load(h.scenario.SourceFile)
	} else {
		doc, err = source.Decode(h.scenario.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load source: %w", err)
	}

	for path := range doc {
		if err := checkRelative(path); err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
	}
	return doc.Resolve(h.sandbox)
}

// reapply runs the scenario a second time and records every change it
// makes as a failure.
func (h *Harness) reapply(ctx context.Context, doc source.Document, opts apply.Options, result *Result) error {
	second, err := apply.Apply(ctx, doc, opts)
	if err != nil {
		return fmt.Errorf("second apply failed: %w", err)
	}

	for _, p := range second.Deleted {
		result.AddError("idempotence: second run deleted %s", h.rel(p))
	}
	for _, f := range second.Files {
		if f.Outcome.Changed {
			result.AddError("idempotence: second run changed %s", h.rel(f.Path))
		}
	}

	after, err := h.collectFiles()
	if err != nil {
		return err
	}
	for _, p := range sortedKeys(after) {
		if before, ok := result.Files[p]; !ok || before != after[p] {
			result.AddError("idempotence: %s differs after second run", p)
		}
	}
	for _, p := range sortedKeys(result.Files) {
		if _, ok := after[p]; !ok {
			result.AddError("idempotence: %s missing after second run", p)
		}
	}
	return nil
}

// collectFiles reads every regular file in the sandbox.
func (h *Harness) collectFiles() (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(h.sandbox, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[h.rel(path)] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read sandbox: %w", err)
	}
	return files, nil
}

func (h *Harness) abs(rel string) string {
	return filepath.Join(h.sandbox, filepath.FromSlash(rel))
}

func (h *Harness) rel(path string) string {
	rel, err := filepath.Rel(h.sandbox, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
