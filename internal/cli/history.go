package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/kconfsync/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
	RunID   string
}

// HistoryResult is the history command output. Runs is set when listing,
// Events when a single run was requested.
type HistoryResult struct {
	Runs   []journal.RunRecord `json:"runs,omitempty"`
	RunID  string              `json:"run_id,omitempty"`
	Events []journal.FileEvent `json:"events,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List runs recorded in the journal",
		Long: `List apply runs recorded in the journal, newest first.

With --run, show the files a single run deleted or wrote.

Examples:
  kconfsync history --journal ~/.local/state/kconfsync/journal.db
  kconfsync history --limit 5
  kconfsync history --run 01935c7e-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal (default from settings)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the file events of one run")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	settings, err := loadSettings(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	path := opts.Journal
	if path == "" {
		path = settings.Journal
	}
	if path == "" {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "no journal configured (use --journal or set journal in the settings file)", nil)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("journal not found: %s", path), nil)
	}

	j, err := journal.Open(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to open journal", err)
	}
	defer j.Close()

	if opts.RunID != "" {
		events, err := j.RunEvents(ctx, opts.RunID)
		if errors.Is(err, journal.ErrRunNotFound) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to read run", err)
		}
		if opts.Format == "json" {
			return formatter.Success(HistoryResult{RunID: opts.RunID, Events: events})
		}
		return outputEventsText(formatter, opts.RunID, events)
	}

	runs, err := j.ListRuns(ctx, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, "failed to list runs", err)
	}
	if opts.Format == "json" {
		if runs == nil {
			runs = []journal.RunRecord{}
		}
		return formatter.Success(HistoryResult{Runs: runs})
	}
	return outputRunsText(formatter, runs)
}

func outputRunsText(formatter *OutputFormatter, runs []journal.RunRecord) error {
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tFILES\tSOURCE")
	for _, r := range runs {
		status := r.Status
		if r.DryRun {
			status += " (dry run)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.StartedAt, status, r.Files, r.Source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range runs {
		if r.Error != "" {
			formatter.VerboseLog("%s: %s", r.ID, r.Error)
		}
	}
	return nil
}

func outputEventsText(formatter *OutputFormatter, runID string, events []journal.FileEvent) error {
	w := formatter.Writer
	fmt.Fprintf(w, "Run %s\n", runID)
	if len(events) == 0 {
		fmt.Fprintln(w, "  (no file events)")
		return nil
	}
	for _, e := range events {
		switch e.Action {
		case journal.ActionDeleted:
			fmt.Fprintf(w, "  %d. deleted %s\n", e.Seq, e.Path)
		default:
			state := "unchanged"
			if e.Created {
				state = "created"
			} else if e.Changed {
				state = "changed"
			}
			fmt.Fprintf(w, "  %d. wrote %s (%s)\n", e.Seq, e.Path, state)
			formatter.VerboseLog("     source %s content %s", e.SourceDigest, e.ContentDigest)
		}
	}
	return nil
}
