package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/kconfsync/internal/kconf"
)

// Run status values.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// File event actions.
const (
	ActionWritten = "written"
	ActionDeleted = "deleted"
)

// ErrRunFinished is returned by Finish when the run was already closed.
var ErrRunFinished = errors.New("run already finished")

// Run is an open journal run. It records file events until Finish.
type Run struct {
	j   *Journal
	id  string
	seq int64
}

// ID returns the run ID.
func (r *Run) ID() string { return r.id }

// BeginRun inserts a new run with status running.
func (j *Journal) BeginRun(ctx context.Context, source string, dryRun bool) (*Run, error) {
	id := j.ids.Generate()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, source, dry_run, started_at, status)
		VALUES (?, ?, ?, ?, ?)
	`, id, source, dryRun, j.timestamp(), StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return &Run{j: j, id: id}, nil
}

// FileDeleted records a file removed by the reset phase.
func (r *Run) FileDeleted(ctx context.Context, path string) error {
	r.seq++
	_, err := r.j.db.ExecContext(ctx, `
		INSERT INTO file_events (run_id, seq, path, action, changed)
		VALUES (?, ?, ?, ?, 1)
	`, r.id, r.seq, path, ActionDeleted)
	if err != nil {
		return fmt.Errorf("record deletion: %w", err)
	}
	return nil
}

// FileWritten records a file saved by the merge phase.
func (r *Run) FileWritten(ctx context.Context, path, sourceDigest string, outcome kconf.Outcome) error {
	r.seq++
	_, err := r.j.db.ExecContext(ctx, `
		INSERT INTO file_events (run_id, seq, path, action, source_digest, content_digest, changed, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.id, r.seq, path, ActionWritten, sourceDigest, outcome.Digest, outcome.Changed, outcome.Created)
	if err != nil {
		return fmt.Errorf("record write: %w", err)
	}
	return nil
}

// Finish closes the run. A nil runErr marks it succeeded, anything else
// failed with the error text stored.
func (r *Run) Finish(ctx context.Context, runErr error) error {
	status := StatusSucceeded
	var msg sql.NullString
	if runErr != nil {
		status = StatusFailed
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}

	res, err := r.j.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ?, error = ?
		WHERE id = ? AND status = ?
	`, status, r.j.timestamp(), msg, r.id, StatusRunning)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", r.id, ErrRunFinished)
	}
	return nil
}
