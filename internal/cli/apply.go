package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kconfsync/internal/apply"
	"github.com/roach88/kconfsync/internal/config"
	"github.com/roach88/kconfsync/internal/journal"
	"github.com/roach88/kconfsync/internal/kconf"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	ConfigHome         string
	Reset              []string
	ImmutableByDefault bool
	DryRun             bool
	Journal            string
}

// FileSummary describes one declared file in the apply output.
type FileSummary struct {
	Path         string `json:"path"`
	Changed      bool   `json:"changed"`
	Created      bool   `json:"created"`
	Reset        bool   `json:"reset"`
	Digest       string `json:"digest"`
	SourceDigest string `json:"source_digest"`
	Skipped      int    `json:"skipped_lines,omitempty"`
	Discarded    int    `json:"discarded_keys,omitempty"`
	Content      string `json:"content,omitempty"`
}

// ApplyResult is the apply command output.
type ApplyResult struct {
	DryRun  bool          `json:"dry_run"`
	Deleted []string      `json:"deleted"`
	Files   []FileSummary `json:"files"`
	Changed int           `json:"changed"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <source>",
		Short: "Merge a declarative source into KDE config files",
		Long: `Merge a declarative source into KDE config files.

The source is a JSON, YAML or CUE document mapping file paths to groups,
keys and descriptors. "-" reads JSON from stdin. Relative file paths are
resolved against the config home.

All declarations are validated before any file is touched. Files matching
a --reset pattern are owned by the source: keys not declared there are
dropped, and matching files that are no longer declared are deleted.

Exit codes:
  0 - Applied
  1 - Validation failed, nothing was changed
  2 - Command error (unreadable source, write failure, etc.)

Examples:
  kconfsync apply plasma.json
  kconfsync apply plasma.yaml --reset kdeglobals --reset 'k*rc'
  kconfsync apply plasma.cue --dry-run --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigHome, "config-home", "", "directory relative paths resolve against (default $XDG_CONFIG_HOME)")
	cmd.Flags().StringArrayVar(&opts.Reset, "reset", nil, "glob of files owned by the source (repeatable)")
	cmd.Flags().BoolVar(&opts.ImmutableByDefault, "immutable-by-default", false, "mark keys immutable unless declared otherwise")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "render files without deleting or writing")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal to record the run in")

	return cmd
}

// mergeSettings applies command-line overrides to the file settings.
func (o *ApplyOptions) mergeSettings(cmd *cobra.Command, settings config.Settings) config.Settings {
	if o.ConfigHome != "" {
		settings.ConfigHome = o.ConfigHome
	}
	if cmd.Flags().Changed("reset") {
		settings.ResetFiles = o.Reset
	}
	if cmd.Flags().Changed("immutable-by-default") {
		settings.ImmutableByDefault = o.ImmutableByDefault
	}
	if o.Journal != "" {
		settings.Journal = o.Journal
	}
	return settings
}

func runApply(opts *ApplyOptions, sourcePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	settings, err := loadSettings(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	settings = opts.mergeSettings(cmd, settings)

	doc, err := loadDocument(sourcePath, settings.ConfigHome, formatter)
	if err != nil {
		return err
	}

	reset, err := apply.NewResetSet(settings.ConfigHome, settings.ResetFiles...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid reset pattern", err)
	}

	applyOpts := apply.Options{
		ImmutableByDefault: settings.ImmutableByDefault,
		Reset:              reset,
		DryRun:             opts.DryRun,
		Logger:             logger,
	}

	var run *journal.Run
	if settings.Journal != "" {
		j, err := journal.Open(settings.Journal)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		run, err = j.BeginRun(ctx, sourcePath, opts.DryRun)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to record run", err)
		}
		applyOpts.Recorder = run
		logger.Debug("journal run started", "run_id", run.ID(), "journal", settings.Journal)
	}

	result, applyErr := apply.Apply(ctx, doc, applyOpts)
	if run != nil {
		if err := run.Finish(ctx, applyErr); err != nil {
			logger.Error("failed to finish journal run", "run_id", run.ID(), "error", err)
		}
	}

	if applyErr != nil {
		var verrs kconf.ValidationErrors
		if errors.As(applyErr, &verrs) {
			return formatter.Validation(verrs, len(doc))
		}
		return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "apply failed", applyErr)
	}

	out := buildApplyResult(result, opts.DryRun)
	runID := ""
	if run != nil {
		runID = run.ID()
	}

	if opts.Format == "json" {
		return formatter.respond(CLIResponse{Status: "ok", Data: out, RunID: runID})
	}
	return outputApplyText(formatter, out, runID)
}

func buildApplyResult(result apply.Result, dryRun bool) ApplyResult {
	out := ApplyResult{
		DryRun:  dryRun,
		Deleted: result.Deleted,
		Files:   make([]FileSummary, 0, len(result.Files)),
		Changed: result.Changed(),
	}
	if out.Deleted == nil {
		out.Deleted = []string{}
	}
	for _, f := range result.Files {
		out.Files = append(out.Files, FileSummary{
			Path:         f.Path,
			Changed:      f.Outcome.Changed,
			Created:      f.Outcome.Created,
			Reset:        f.Reset,
			Digest:       f.Outcome.Digest,
			SourceDigest: f.SourceDigest,
			Skipped:      f.Stats.Skipped,
			Discarded:    f.Stats.Discarded,
			Content:      string(f.Content),
		})
	}
	return out
}

func outputApplyText(formatter *OutputFormatter, out ApplyResult, runID string) error {
	w := formatter.Writer

	deleteVerb, writeVerb := "deleted", "wrote"
	if out.DryRun {
		deleteVerb, writeVerb = "would delete", "would write"
	}

	for _, p := range out.Deleted {
		fmt.Fprintf(w, "- %s %s\n", deleteVerb, p)
	}
	for _, f := range out.Files {
		switch {
		case f.Created:
			fmt.Fprintf(w, "+ %s %s (new)\n", writeVerb, f.Path)
		case f.Changed:
			fmt.Fprintf(w, "~ %s %s\n", writeVerb, f.Path)
		default:
			fmt.Fprintf(w, "  unchanged %s\n", f.Path)
		}
		if out.DryRun && f.Changed {
			fmt.Fprintf(w, "--- %s\n%s", f.Path, f.Content)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "✓ %d file(s), %d changed, %d deleted\n", len(out.Files), out.Changed, len(out.Deleted))
	if runID != "" {
		fmt.Fprintf(w, "  run %s\n", runID)
	}
	return nil
}
