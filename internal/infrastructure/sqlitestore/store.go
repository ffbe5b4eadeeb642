package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/queuectl/queuectl/internal/domain"
)

// Store is the Persistent Store, backed by a single SQLite file accessed
// through database/sql. The claim protocol relies on SQLite's
// single-writer semantics: a BEGIN IMMEDIATE transaction takes the write
// lock up front, so the conditional UPDATE that follows cannot race with
// another claim.
type Store struct {
	db *sql.DB
}

// New wraps an already-opened, already-migrated *sql.DB. Use Open (db.go)
// to construct one against a data directory.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Enqueue(ctx context.Context, job *domain.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs(id, command, state, attempts, max_retries, created_at, updated_at, next_run_at, priority)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Command, string(job.State), job.Attempts, job.MaxRetries,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt), formatTime(job.NextRunAt), job.Priority,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateID
		}
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// ClaimNext opens a dedicated connection and drives the transaction with
// explicit BEGIN IMMEDIATE / COMMIT / ROLLBACK statements — database/sql's
// BeginTx always issues a deferred BEGIN, which would let two concurrent
// claimants both pass the read before either takes the write lock. A
// raw connection plus BEGIN IMMEDIATE takes the write lock before the
// read, matching the original implementation's claim_next_job.
func (s *Store) ClaimNext(ctx context.Context, now time.Time, leaseDuration time.Duration) (*domain.Job, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim: conn: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, fmt.Errorf("claim: begin immediate: %w", err)
	}
	rollback := func() { _, _ = conn.ExecContext(ctx, "ROLLBACK") }

	nowStr := formatTime(now)
	var id string
	err = conn.QueryRowContext(ctx, `
		SELECT id FROM jobs
		WHERE state = 'pending' AND next_run_at <= ?
		ORDER BY priority DESC, created_at ASC
		LIMIT 1`, nowStr).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		_, err := conn.ExecContext(ctx, "COMMIT")
		return nil, err
	}
	if err != nil {
		rollback()
		return nil, fmt.Errorf("claim: select candidate: %w", err)
	}

	leaseUntil := formatTime(now.Add(leaseDuration))
	res, err := conn.ExecContext(ctx, `
		UPDATE jobs SET state = 'processing', updated_at = ?, lease_expires_at = ?
		WHERE id = ? AND state = 'pending'`, nowStr, leaseUntil, id)
	if err != nil {
		rollback()
		return nil, fmt.Errorf("claim: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return nil, fmt.Errorf("claim: rows affected: %w", err)
	}
	if n != 1 {
		// Lost the race to another claimant between the read and the update.
		_, err := conn.ExecContext(ctx, "COMMIT")
		return nil, err
	}

	job, err := scanJobRow(conn.QueryRowContext(ctx, selectJobByID, id))
	if err != nil {
		rollback()
		return nil, fmt.Errorf("claim: reread: %w", err)
	}
	_, err = conn.ExecContext(ctx, "COMMIT")
	return job, err
}

func (s *Store) MarkCompleted(ctx context.Context, id string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = 'completed', updated_at = ?, lease_expires_at = NULL WHERE id = ?`,
		formatTime(now), id)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (s *Store) MarkRetry(ctx context.Context, id string, attempts int, nextRunAt, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = 'pending', attempts = ?, next_run_at = ?, updated_at = ?, lease_expires_at = NULL WHERE id = ?`,
		attempts, formatTime(nextRunAt), formatTime(now), id)
	if err != nil {
		return fmt.Errorf("mark retry: %w", err)
	}
	return nil
}

func (s *Store) MoveToDLQ(ctx context.Context, id, command, reason string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("move to dlq: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dlq(id, command, reason, created_at) VALUES(?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET command = excluded.command, reason = excluded.reason, created_at = excluded.created_at`,
		id, command, reason, formatTime(now)); err != nil {
		return fmt.Errorf("move to dlq: insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("move to dlq: delete: %w", err)
	}
	return tx.Commit()
}

func (s *Store) RetryFromDLQ(ctx context.Context, id string, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("retry from dlq: begin: %w", err)
	}
	defer tx.Rollback()

	var command string
	err = tx.QueryRowContext(ctx, `SELECT command FROM dlq WHERE id = ?`, id).Scan(&command)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("retry from dlq: select: %w", err)
	}

	maxRetries := 3
	if v, ok, err := configGetTx(ctx, tx, domain.ConfigMaxRetries); err == nil && ok {
		if n, convErr := strconv.Atoi(v); convErr == nil {
			maxRetries = n
		}
	}

	nowStr := formatTime(now)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO jobs(id, command, state, attempts, max_retries, created_at, updated_at, next_run_at, priority)
		VALUES(?, ?, 'pending', 0, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			command = excluded.command,
			state = 'pending',
			attempts = 0,
			updated_at = excluded.updated_at,
			next_run_at = excluded.next_run_at,
			priority = 0,
			lease_expires_at = NULL`,
		id, command, maxRetries, nowStr, nowStr, nowStr); err != nil {
		return fmt.Errorf("retry from dlq: upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dlq WHERE id = ?`, id); err != nil {
		return fmt.Errorf("retry from dlq: delete: %w", err)
	}
	return tx.Commit()
}

// ReapExpiredLeases selects Processing jobs whose lease has expired and, one
// at a time inside its own transaction (a deferred BEGIN via BeginTx, not
// the claim path's BEGIN IMMEDIATE), re-reads the row, skips it if it is no
// longer Processing, and applies fn's decision.
// It mirrors the teacher's RescheduleStale/FailStale pair but folds both
// outcomes into a single caller-supplied decision function, since this
// domain's retry/DLQ policy already lives in the executor's outcome
// dispatch and should not be duplicated here.
func (s *Store) ReapExpiredLeases(ctx context.Context, now time.Time, limit int, fn func(job *domain.Job) (retry bool, reason string)) (int, error) {
	nowStr := formatTime(now)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM jobs
		WHERE state = 'processing' AND lease_expires_at IS NOT NULL AND lease_expires_at < ?
		ORDER BY lease_expires_at ASC
		LIMIT ?`, nowStr, limit)
	if err != nil {
		return 0, fmt.Errorf("reap: select stale: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("reap: scan: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	reaped := 0
	for _, id := range ids {
		ok, err := s.reapOne(ctx, id, now, fn)
		if err != nil {
			return reaped, err
		}
		if ok {
			reaped++
		}
	}
	return reaped, nil
}

func (s *Store) reapOne(ctx context.Context, id string, now time.Time, fn func(job *domain.Job) (retry bool, reason string)) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("reap: begin: %w", err)
	}
	defer tx.Rollback()

	job, err := scanJobRow(tx.QueryRowContext(ctx, selectJobByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reap: reread: %w", err)
	}
	if job.State != domain.StateProcessing {
		return false, tx.Commit()
	}

	retry, reason := fn(job)
	nowStr := formatTime(now)
	if retry {
		base := 2
		if v, ok, _ := configGetTx(ctx, tx, domain.ConfigBackoffBase); ok {
			if n, convErr := strconv.Atoi(v); convErr == nil {
				base = n
			}
		}
		attempts := job.Attempts + 1
		nextRunAt := now.Add(backoffDelay(base, attempts))
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET state = 'pending', attempts = ?, next_run_at = ?, updated_at = ?, lease_expires_at = NULL WHERE id = ?`,
			attempts, formatTime(nextRunAt), nowStr, id); err != nil {
			return false, fmt.Errorf("reap: retry: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dlq(id, command, reason, created_at) VALUES(?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET command = excluded.command, reason = excluded.reason, created_at = excluded.created_at`,
			id, job.Command, reason, nowStr); err != nil {
			return false, fmt.Errorf("reap: dlq insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
			return false, fmt.Errorf("reap: dlq delete: %w", err)
		}
	}
	return true, tx.Commit()
}

func (s *Store) ListJobs(ctx context.Context, state string) ([]*domain.Job, error) {
	var rows *sql.Rows
	var err error
	if state == "" || strings.EqualFold(state, "any") {
		rows, err = s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY priority DESC, created_at ASC`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE state = ? ORDER BY priority DESC, created_at ASC`, state)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		j, err := scanJobRow(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: scan: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *Store) ListDLQ(ctx context.Context) ([]*domain.DLQEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, command, reason, created_at FROM dlq ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list dlq: %w", err)
	}
	defer rows.Close()

	var entries []*domain.DLQEntry
	for rows.Next() {
		var e domain.DLQEntry
		var reason sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Command, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("list dlq: scan: %w", err)
		}
		e.Reason = reason.String
		e.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("list dlq: parse created_at: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *Store) SnapshotStatus(ctx context.Context) (domain.StatusSnapshot, error) {
	snap := domain.StatusSnapshot{Counts: make(map[domain.State]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM jobs GROUP BY state`)
	if err != nil {
		return snap, fmt.Errorf("snapshot status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return snap, fmt.Errorf("snapshot status: scan: %w", err)
		}
		snap.Counts[domain.State(state)] = count
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	stop, _, err := s.ConfigGet(ctx, domain.ConfigStop)
	if err != nil {
		return snap, fmt.Errorf("snapshot status: stop flag: %w", err)
	}
	snap.StopFlag = stop == "1"
	return snap, nil
}

func (s *Store) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("config get: %w", err)
	}
	return value, true, nil
}

func (s *Store) ConfigSet(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("config set: %w", err)
	}
	return nil
}

func configGetTx(ctx context.Context, tx *sql.Tx, key string) (string, bool, error) {
	var value string
	err := tx.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func backoffDelay(base, attempts int) time.Duration {
	return domain.Backoff(base, attempts)
}

const jobColumns = "id, command, state, attempts, max_retries, created_at, updated_at, next_run_at, priority, lease_expires_at"

const selectJobByID = `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobRow(row rowScanner) (*domain.Job, error) {
	var j domain.Job
	var state, createdAt, updatedAt, nextRunAt string
	var leaseExpiresAt sql.NullString

	if err := row.Scan(&j.ID, &j.Command, &state, &j.Attempts, &j.MaxRetries,
		&createdAt, &updatedAt, &nextRunAt, &j.Priority, &leaseExpiresAt); err != nil {
		return nil, err
	}

	j.State = domain.State(state)
	var err error
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if j.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if j.NextRunAt, err = parseTime(nextRunAt); err != nil {
		return nil, fmt.Errorf("parse next_run_at: %w", err)
	}
	if leaseExpiresAt.Valid {
		t, err := parseTime(leaseExpiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse lease_expires_at: %w", err)
		}
		j.LeaseExpiresAt = &t
	}
	return &j, nil
}

// isUniqueViolation reports whether err is a primary-key/unique constraint
// failure. modernc.org/sqlite surfaces this as a *sqlite.Error whose
// message contains SQLite's own wording; matching on that text avoids
// importing the driver's internal error type.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
