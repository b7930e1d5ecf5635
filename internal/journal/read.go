package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RunRecord is a run as stored in the journal.
type RunRecord struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	DryRun     bool   `json:"dry_run"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Files      int    `json:"files"`
}

// FileEvent is one file deletion or write within a run.
type FileEvent struct {
	Seq           int64  `json:"seq"`
	Path          string `json:"path"`
	Action        string `json:"action"`
	SourceDigest  string `json:"source_digest,omitempty"`
	ContentDigest string `json:"content_digest,omitempty"`
	Changed       bool   `json:"changed"`
	Created       bool   `json:"created"`
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT r.id, r.source, r.dry_run, r.started_at, r.finished_at, r.status, r.error,
		       (SELECT COUNT(*) FROM file_events e WHERE e.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC, r.id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec      RunRecord
			finished sql.NullString
			errText  sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.DryRun, &rec.StartedAt, &finished, &rec.Status, &errText, &rec.Files); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		rec.FinishedAt = finished.String
		rec.Error = errText.String
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// RunEvents returns the file events of a run in order.
func (j *Journal) RunEvents(ctx context.Context, runID string) ([]FileEvent, error) {
	var exists int
	err := j.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("run events: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, path, action, source_digest, content_digest, changed, created
		FROM file_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run events: %w", err)
	}
	defer rows.Close()

	var events []FileEvent
	for rows.Next() {
		var (
			ev      FileEvent
			srcHash sql.NullString
			outHash sql.NullString
		)
		if err := rows.Scan(&ev.Seq, &ev.Path, &ev.Action, &srcHash, &outHash, &ev.Changed, &ev.Created); err != nil {
			return nil, fmt.Errorf("run events: %w", err)
		}
		ev.SourceDigest = srcHash.String
		ev.ContentDigest = outHash.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run events: %w", err)
	}
	return events, nil
}
