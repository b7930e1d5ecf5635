package apply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/kconfsync/internal/kconf"
	"github.com/roach88/kconfsync/internal/source"
)

// Recorder observes the changes Apply makes.
type Recorder interface {
	FileDeleted(ctx context.Context, path string) error
	FileWritten(ctx context.Context, path, sourceDigest string, outcome kconf.Outcome) error
}

// Options controls a run.
type Options struct {
	// ImmutableByDefault applies to descriptors without an explicit
	// immutable marking.
	ImmutableByDefault bool

	// Reset names the files owned by the document.
	Reset ResetSet

	// DryRun renders every file but deletes and writes nothing.
	DryRun bool

	Logger   *slog.Logger
	Recorder Recorder
}

// FileResult describes one declared file after the merge.
type FileResult struct {
	Path         string
	SourceDigest string
	Outcome      kconf.Outcome
	Stats        kconf.ReadStats
	Reset        bool

	// Content is the rendered file. Only set on dry runs.
	Content []byte
}

// Result is the summary of a run.
type Result struct {
	// Deleted lists files removed by the reset phase, or that would have
	// been removed on a dry run.
	Deleted []string
	Files   []FileResult
}

// Changed counts the files whose content changed or was created.
func (r Result) Changed() int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome.Changed {
			n++
		}
	}
	return n
}

// Plan builds and validates a Manager for every file in doc, in path order.
// Validation errors from all files are returned together as
// kconf.ValidationErrors; no file is touched.
func Plan(doc source.Document, opts Options) ([]*kconf.Manager, error) {
	var (
		managers []*kconf.Manager
		all      kconf.ValidationErrors
	)

	for _, path := range doc.Paths() {
		m := kconf.NewManager(path, kconf.Policy{
			Reset:              opts.Reset.Owns(path),
			ImmutableByDefault: opts.ImmutableByDefault,
		})
		if err := m.Validate(doc.Groups(path)); err != nil {
			var verrs kconf.ValidationErrors
			if errors.As(err, &verrs) {
				all = append(all, verrs...)
				continue
			}
			return nil, err
		}
		managers = append(managers, m)
	}

	if len(all) > 0 {
		return nil, all
	}
	return managers, nil
}

// Apply synchronizes doc to disk. Paths in doc must already be absolute
// (see source.Document.Resolve).
func Apply(ctx context.Context, doc source.Document, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	managers, err := Plan(doc, opts)
	if err != nil {
		return Result{}, err
	}
	logger.Debug("plan validated", "files", len(managers), "reset_patterns", len(opts.Reset.Patterns()))

	var result Result

	if opts.DryRun {
		result.Deleted, err = opts.Reset.Undeclared(doc.Declares)
		if err != nil {
			return result, err
		}
		for _, p := range result.Deleted {
			logger.Info("would delete undeclared file", "path", p)
		}
	} else {
		result.Deleted, err = opts.Reset.DeleteUndeclared(doc.Declares, logger)
		if err != nil {
			return result, err
		}
		if opts.Recorder != nil {
			for _, p := range result.Deleted {
				if err := opts.Recorder.FileDeleted(ctx, p); err != nil {
					return result, fmt.Errorf("record deletion of %s: %w", p, err)
				}
			}
		}
	}

	for _, m := range managers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fr, err := mergeFile(ctx, m, doc, opts, logger)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, fr)
	}

	return result, nil
}

func mergeFile(ctx context.Context, m *kconf.Manager, doc source.Document, opts Options, logger *slog.Logger) (FileResult, error) {
	path := m.Path()
	fr := FileResult{Path: path, Reset: m.Policy().Reset}

	digest, err := doc.Digest(path)
	if err != nil {
		return fr, err
	}
	fr.SourceDigest = digest

	if err := m.Read(); err != nil {
		return fr, err
	}
	fr.Stats = m.Stats()
	if fr.Stats.Skipped > 0 {
		logger.Debug("skipped malformed lines", "path", path, "count", fr.Stats.Skipped)
	}
	if fr.Stats.Discarded > 0 {
		logger.Debug("reset discarded keys", "path", path, "count", fr.Stats.Discarded)
	}

	if err := m.Run(); err != nil {
		return fr, err
	}

	if opts.DryRun {
		outcome, content, err := m.Preview()
		if err != nil {
			return fr, err
		}
		fr.Outcome = outcome
		fr.Content = content
		logger.Debug("rendered file", "path", path, "changed", outcome.Changed)
		return fr, nil
	}

	outcome, err := m.Save()
	if err != nil {
		return fr, err
	}
	fr.Outcome = outcome
	logger.Info("wrote file", "path", path, "changed", outcome.Changed, "created", outcome.Created)

	if opts.Recorder != nil {
		if err := opts.Recorder.FileWritten(ctx, path, digest, outcome); err != nil {
			return fr, fmt.Errorf("record write of %s: %w", path, err)
		}
	}
	return fr, nil
}
