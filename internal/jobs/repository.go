package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/intake/internal/db"
)

// DeadLetter is a job that exhausted its attempts.
type DeadLetter struct {
	ID        int64
	JobID     int64
	Type      string
	Payload   json.RawMessage
	Attempts  int
	LastError string
	FailedAt  time.Time
}

type Repository struct {
	db  *db.DB
	now func() time.Time
}

func NewRepository(d *db.DB) *Repository {
	return &Repository{db: d, now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue inserts a job into the jobs table and returns the new ID
func (r *Repository) Enqueue(ctx context.Context, j *Job) (int64, error) {
	if j.MaxAttempts <= 0 {
		j.MaxAttempts = 5
	}
	now := r.now()
	if j.ScheduledAt.IsZero() {
		j.ScheduledAt = now
	}
	q := `INSERT INTO jobs(type, payload, status, attempts, max_attempts, priority, scheduled_at, created, updated) VALUES(?,?,?,?,?,?,?,?,?)`
	res, err := r.db.Exec(ctx, q, j.Type, string(j.Payload), StatusQueued, j.Attempts, j.MaxAttempts, j.Priority, j.ScheduledAt.UTC().UnixMilli(), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return res.LastInsertId()
}

// FetchNext claims the next due job, marking it running. It returns nil when
// nothing is due.
func (r *Repository) FetchNext(ctx context.Context) (*Job, error) {
	now := r.now().UnixMilli()
	q := `UPDATE jobs SET status = ?, updated = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE status IN (?, ?) AND (next_try_at IS NULL OR next_try_at <= ?) AND scheduled_at <= ?
			ORDER BY priority ASC, scheduled_at ASC, id ASC LIMIT 1
		)
		RETURNING id, type, payload, status, attempts, max_attempts, priority, scheduled_at, next_try_at, last_error, created, updated`
	row := r.db.QueryRow(ctx, q, StatusRunning, now, StatusQueued, StatusRetry, now, now)

	var (
		j         Job
		payload   sql.NullString
		nextTry   sql.NullInt64
		lastError sql.NullString
		scheduled int64
		created   int64
		updated   int64
	)
	err := row.Scan(&j.ID, &j.Type, &payload, &j.Status, &j.Attempts, &j.MaxAttempts, &j.Priority, &scheduled, &nextTry, &lastError, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch next job: %w", err)
	}

	j.ScheduledAt = time.UnixMilli(scheduled).UTC()
	j.Created = time.UnixMilli(created).UTC()
	j.Updated = time.UnixMilli(updated).UTC()
	if payload.Valid {
		j.Payload = json.RawMessage(payload.String)
	}
	if nextTry.Valid {
		t := time.UnixMilli(nextTry.Int64).UTC()
		j.NextTryAt = &t
	}
	j.LastError = lastError.String

	return &j, nil
}

// UpdateJob updates attempts, status, next_try_at, last_error
func (r *Repository) UpdateJob(ctx context.Context, j *Job) error {
	var nextTry any
	if j.NextTryAt != nil {
		nextTry = j.NextTryAt.UTC().UnixMilli()
	}
	q := `UPDATE jobs SET status = ?, attempts = ?, next_try_at = ?, last_error = ?, updated = ? WHERE id = ?`
	if _, err := r.db.Exec(ctx, q, j.Status, j.Attempts, nextTry, j.LastError, r.now().UnixMilli(), j.ID); err != nil {
		return fmt.Errorf("update job %d: %w", j.ID, err)
	}
	return nil
}

// MoveToDeadLetter moves a job to dead_letter_jobs and deletes the original
func (r *Repository) MoveToDeadLetter(ctx context.Context, j *Job) error {
	tx, err := r.db.GetConn().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	insert := `INSERT INTO dead_letter_jobs(job_id, type, payload, attempts, last_error, failed_at) VALUES(?,?,?,?,?,?)`
	if _, err := tx.ExecContext(ctx, insert, j.ID, j.Type, string(j.Payload), j.Attempts, j.LastError, r.now().UnixMilli()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert dead letter: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, j.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete job %d: %w", j.ID, err)
	}
	return tx.Commit()
}

// GetJob loads a job by id. It returns nil when the job is gone.
func (r *Repository) GetJob(ctx context.Context, id int64) (*Job, error) {
	q := `SELECT id, type, status, attempts, max_attempts, last_error FROM jobs WHERE id = ?`
	var (
		j         Job
		lastError sql.NullString
	)
	err := r.db.QueryRow(ctx, q, id).Scan(&j.ID, &j.Type, &j.Status, &j.Attempts, &j.MaxAttempts, &lastError)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	j.LastError = lastError.String
	return &j, nil
}

// ListDeadLetters returns dead-lettered jobs, oldest first.
func (r *Repository) ListDeadLetters(ctx context.Context) ([]DeadLetter, error) {
	rows, err := r.db.QueryRows(ctx, `SELECT id, job_id, type, payload, attempts, last_error, failed_at FROM dead_letter_jobs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []DeadLetter
	for rows.Next() {
		var (
			d         DeadLetter
			payload   sql.NullString
			lastError sql.NullString
			failed    int64
		)
		if err := rows.Scan(&d.ID, &d.JobID, &d.Type, &payload, &d.Attempts, &lastError, &failed); err != nil {
			return nil, err
		}
		d.Payload = json.RawMessage(payload.String)
		d.LastError = lastError.String
		d.FailedAt = time.UnixMilli(failed).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}
