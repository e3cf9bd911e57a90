package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "ledger.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path reports the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new queued job and returns it.
func (s *Store) Create(ctx context.Context, kind Kind, paramsJSON string) (*Job, error) {
	if !KnownKind(kind) {
		return nil, services.Wrap(services.ErrValidation, "ledger", "create",
			fmt.Sprintf("unknown job kind %q", kind), nil)
	}
	if strings.TrimSpace(paramsJSON) == "" {
		paramsJSON = "{}"
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (id, kind, status, params_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id, kind, StatusQueued, paramsJSON, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, id)
}

const jobColumns = `id, kind, status, stage, progress, params_json,
	error_code, error_message, cost_cents, claimed_by, total_segments,
	processing_seconds, created_at, updated_at, started_at, completed_at,
	last_heartbeat`

// Get fetches one job by ID. A missing job returns (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return job, err
}

// List returns jobs newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Claim atomically moves the oldest queued job to processing on behalf of a
// worker. The conditional update loses cleanly when another worker claims the
// same row first; the caller just polls again. Returns (nil, nil) when the
// queue is empty.
func (s *Store) Claim(ctx context.Context, workerID string) (*Job, error) {
	for {
		row := s.db.QueryRowContext(ctx,
			`SELECT id FROM jobs WHERE status = ? ORDER BY created_at ASC LIMIT 1`,
			StatusQueued)
		var id string
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("next queued job: %w", err)
		}

		timestamp := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, claimed_by = ?, started_at = ?,
			        last_heartbeat = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			StatusProcessing, workerID, timestamp, timestamp, timestamp,
			id, StatusQueued)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim job rows affected: %w", err)
		}
		if affected == 1 {
			return s.Get(ctx, id)
		}
		// Lost the race for this row. Try the next queued job.
	}
}

// Update applies a partial mutation. Status may only move forward through the
// lifecycle and never out of a terminal status; progress never decreases.
func (s *Store) Update(ctx context.Context, id string, m Mutation) (*Job, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, services.Wrap(services.ErrValidation, "ledger", "update",
			fmt.Sprintf("job %s not found", id), nil)
	}

	if current.Status.Terminal() {
		return nil, services.Wrap(services.ErrValidation, "ledger", "update",
			fmt.Sprintf("job already %s", current.Status), nil)
	}
	if m.Status != nil && *m.Status != current.Status {
		if err := validateTransition(current.Status, *m.Status); err != nil {
			return nil, err
		}
	}

	sets := []string{"updated_at = ?"}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	args := []any{timestamp}

	if m.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *m.Status)
		if m.Status.Terminal() {
			sets = append(sets, "completed_at = ?")
			args = append(args, timestamp)
		}
	}
	if m.Stage != nil {
		sets = append(sets, "stage = ?")
		args = append(args, *m.Stage)
	}
	if m.Progress != nil {
		// MAX keeps reported progress monotonic under out-of-order writes.
		sets = append(sets, "progress = MAX(progress, ?)")
		args = append(args, clampPercent(*m.Progress))
	}
	if m.ErrorCode != nil {
		sets = append(sets, "error_code = ?")
		args = append(args, nullableString(*m.ErrorCode))
	}
	if m.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, nullableString(*m.ErrorMessage))
	}
	if m.TotalSegments != nil {
		sets = append(sets, "total_segments = ?")
		args = append(args, *m.TotalSegments)
	}
	if m.ProcessingSeconds != nil {
		sets = append(sets, "processing_seconds = ?")
		args = append(args, *m.ProcessingSeconds)
	}
	if m.CostCentsDelta != 0 {
		sets = append(sets, "cost_cents = cost_cents + ?")
		args = append(args, m.CostCentsDelta)
	}

	// Condition on the status just read so a sweeper or another worker moving
	// the job concurrently cannot have its write silently overwritten.
	args = append(args, id, current.Status)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update job rows affected: %w", err)
	}
	if affected == 0 {
		return nil, services.Wrap(services.ErrValidation, "ledger", "update",
			fmt.Sprintf("job %s changed status concurrently", id), nil)
	}
	return s.Get(ctx, id)
}

func validateTransition(from, to Status) error {
	fromRank, ok := statusRank[from]
	if !ok {
		return services.Wrap(services.ErrValidation, "ledger", "update",
			fmt.Sprintf("unknown status %q", from), nil)
	}
	toRank, ok := statusRank[to]
	if !ok {
		return services.Wrap(services.ErrValidation, "ledger", "update",
			fmt.Sprintf("unknown status %q", to), nil)
	}
	if from.Terminal() {
		return services.Wrap(services.ErrValidation, "ledger", "update",
			fmt.Sprintf("job already %s", from), nil)
	}
	if toRank <= fromRank {
		return services.Wrap(services.ErrValidation, "ledger", "update",
			fmt.Sprintf("illegal transition %s -> %s", from, to), nil)
	}
	return nil
}

// UpdateHeartbeat stamps the processing job as alive.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET last_heartbeat = ? WHERE id = ? AND status = ?`,
		timestamp, id, StatusProcessing)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// Retry re-queues failed jobs so the pipeline picks them up again. Error
// detail and claim state are cleared; accumulated cost is kept.
func (s *Store) Retry(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	args := []any{StatusQueued, timestamp}
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, stage = '', progress = 0, error_code = NULL,
		        error_message = NULL, claimed_by = NULL, started_at = NULL,
		        completed_at = NULL, last_heartbeat = NULL, updated_at = ?
		 WHERE id IN (`+makePlaceholders(len(ids))+`) AND status = ?`, args...)
	if err != nil {
		return 0, fmt.Errorf("retry jobs: %w", err)
	}
	return res.RowsAffected()
}

// SweepStuck fails processing jobs whose runtime exceeds the per-job ceiling.
// The ceiling callback sees the job so limits can scale with its parameters.
// Returns the jobs that were marked failed.
func (s *Store) SweepStuck(ctx context.Context, now time.Time, ceiling func(Job) time.Duration) ([]Job, error) {
	processing, err := s.List(ctx, StatusProcessing)
	if err != nil {
		return nil, err
	}

	var swept []Job
	for _, job := range processing {
		started := job.CreatedAt
		if job.StartedAt != nil {
			started = *job.StartedAt
		}
		if now.Sub(started) <= ceiling(*job) {
			continue
		}
		msg := fmt.Sprintf("processing exceeded %s; worker likely ran out of memory",
			ceiling(*job).Round(time.Minute))
		updated, err := s.Update(ctx, job.ID, Mutation{
			Status:       StatusPtr(StatusFailed),
			ErrorCode:    StringPtr(string(services.CodeStuck)),
			ErrorMessage: StringPtr(msg),
		})
		if err != nil {
			return swept, err
		}
		swept = append(swept, *updated)
	}
	return swept, nil
}

// Stats returns job counts grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}

// InsertSegment records one produced segment for a job.
func (s *Store) InsertSegment(ctx context.Context, seg Segment) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO segments (job_id, idx, start_seconds, end_seconds, score, title, result_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (job_id, idx) DO UPDATE SET
		   start_seconds = excluded.start_seconds,
		   end_seconds = excluded.end_seconds,
		   score = excluded.score,
		   title = excluded.title,
		   result_key = excluded.result_key`,
		seg.JobID, seg.Index, seg.Start, seg.End, seg.Score, seg.Title, seg.ResultKey, timestamp)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

// SegmentsForJob lists a job's segments in index order.
func (s *Store) SegmentsForJob(ctx context.Context, jobID string) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, idx, start_seconds, end_seconds, score, title, result_key, created_at
		 FROM segments WHERE job_id = ? ORDER BY idx ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var out []Segment
	for rows.Next() {
		var seg Segment
		var createdAt string
		if err := rows.Scan(&seg.JobID, &seg.Index, &seg.Start, &seg.End,
			&seg.Score, &seg.Title, &seg.ResultKey, &createdAt); err != nil {
			return nil, err
		}
		if seg.CreatedAt, err = parseTimeString(createdAt); err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job           Job
		errorCode     sql.NullString
		errorMessage  sql.NullString
		claimedBy     sql.NullString
		createdAt     string
		updatedAt     string
		startedAt     sql.NullString
		completedAt   sql.NullString
		lastHeartbeat sql.NullString
	)
	err := scanner.Scan(
		&job.ID, &job.Kind, &job.Status, &job.Stage, &job.Progress,
		&job.ParamsJSON, &errorCode, &errorMessage, &job.CostCents,
		&claimedBy, &job.TotalSegments, &job.ProcessingSeconds,
		&createdAt, &updatedAt, &startedAt, &completedAt, &lastHeartbeat,
	)
	if err != nil {
		return nil, err
	}

	job.ErrorCode = errorCode.String
	job.ErrorMessage = errorMessage.String
	job.ClaimedBy = claimedBy.String
	if job.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, err
	}
	if job.StartedAt, err = parseNullableTime(startedAt); err != nil {
		return nil, err
	}
	if job.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return nil, err
	}
	if job.LastHeartbeat, err = parseNullableTime(lastHeartbeat); err != nil {
		return nil, err
	}
	return &job, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func parseNullableTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.Repeat("?, ", count-1) + "?"
}
