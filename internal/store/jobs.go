package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stillmind/api/internal/model"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("job not found")

const jobColumns = "id, track_id, user_id, status, progress, stage, payload_json, error_message, output_url, started_at, created_at, updated_at"

// Enqueue inserts a new pending job carrying the immutable render payload.
func (s *Store) Enqueue(ctx context.Context, trackID, userID string, payload []byte) (*model.AudioJob, error) {
	id := uuid.New().String()
	now := formatTime(time.Now())

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO audio_jobs (
            id, track_id, user_id, status, progress, payload_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		id,
		trackID,
		userID,
		model.JobStatusPending,
		string(payload),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier.
func (s *Store) GetJob(ctx context.Context, id string) (*model.AudioJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM audio_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// LatestJobForTrack returns the most recent job for a track, or nil.
func (s *Store) LatestJobForTrack(ctx context.Context, trackID string) (*model.AudioJob, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM audio_jobs WHERE track_id = ? ORDER BY created_at DESC LIMIT 1`,
		trackID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest job for track: %w", err)
	}
	return job, nil
}

// PendingJobIDs returns up to limit pending job ids in insertion order.
func (s *Store) PendingJobIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM audio_jobs WHERE status = ? ORDER BY created_at LIMIT ?`,
		model.JobStatusPending,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ClaimJob atomically transitions one pending job to processing. The
// conditional UPDATE is the sole concurrency primitive: when two dispatch
// cycles race on the same row, exactly one observes RowsAffected == 1 and
// receives the job; the other gets (nil, nil) and skips it.
func (s *Store) ClaimJob(ctx context.Context, id string) (*model.AudioJob, error) {
	now := time.Now()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE audio_jobs
         SET status = ?, started_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		model.JobStatusProcessing,
		formatTime(now),
		formatTime(now),
		id,
		model.JobStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetJob(ctx, id)
}

// UpdateJobProgress writes a progress/stage checkpoint. The write is fenced
// on the claimant's lease: it requires both processing status and the
// started_at the claimant observed, so after a reap-and-reclaim the old
// worker's checkpoints silently no-op instead of landing on the new
// claimant's row.
func (s *Store) UpdateJobProgress(ctx context.Context, id string, leaseStart time.Time, progress int, stage string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE audio_jobs SET progress = ?, stage = ?, updated_at = ?
         WHERE id = ? AND status = ? AND started_at = ?`,
		progress,
		nullableString(stage),
		formatTime(time.Now()),
		id,
		model.JobStatusProcessing,
		formatTime(leaseStart),
	)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// CompleteJob transitions a processing job to completed with its artifact URL.
func (s *Store) CompleteJob(ctx context.Context, id, outputURL string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE audio_jobs
         SET status = ?, progress = 100, stage = NULL, output_url = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		model.JobStatusCompleted,
		outputURL,
		formatTime(time.Now()),
		id,
		model.JobStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("complete job %s: no longer processing", id)
	}
	return nil
}

// FailJob transitions a processing job to failed, persisting the provider or
// pipeline message so the edit flow can inspect failure history.
func (s *Store) FailJob(ctx context.Context, id, message string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE audio_jobs
         SET status = ?, stage = NULL, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		model.JobStatusFailed,
		message,
		formatTime(time.Now()),
		id,
		model.JobStatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("fail job %s: no longer processing", id)
	}
	return nil
}

// ReapStuck resets processing jobs whose lease expired back to pending. This
// is the only recovery path for a worker that died mid-render; a slow but
// alive worker past the lease will have its job stolen.
func (s *Store) ReapStuck(ctx context.Context, leaseTimeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-leaseTimeout)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE audio_jobs
         SET status = ?, progress = 0, stage = NULL, started_at = NULL, updated_at = ?
         WHERE status = ? AND started_at IS NOT NULL AND started_at < ?`,
		model.JobStatusPending,
		formatTime(time.Now()),
		model.JobStatusProcessing,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reap stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// CountJobsByStatus returns the number of jobs in a given status.
func (s *Store) CountJobsByStatus(ctx context.Context, status model.JobStatus) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM audio_jobs WHERE status = ?`,
		status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*model.AudioJob, error) {
	var (
		id         string
		trackID    string
		userID     string
		statusStr  string
		progress   int
		stage      sql.NullString
		payload    string
		errMessage sql.NullString
		outputURL  sql.NullString
		startedRaw sql.NullString
		createdRaw string
		updatedRaw string
	)

	if err := scanner.Scan(
		&id,
		&trackID,
		&userID,
		&statusStr,
		&progress,
		&stage,
		&payload,
		&errMessage,
		&outputURL,
		&startedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &model.AudioJob{
		ID:           id,
		TrackID:      trackID,
		UserID:       userID,
		Status:       model.JobStatus(statusStr),
		Progress:     progress,
		Stage:        stage.String,
		Payload:      []byte(payload),
		ErrorMessage: errMessage.String,
		OutputURL:    outputURL.String,
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}
