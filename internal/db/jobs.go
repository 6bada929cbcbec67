package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonathan/meeting-reporter/internal/types"
)

// PostgreSQL error code for foreign key violations
const pgForeignKeyViolation = "23503"

// CreateJob persists a new job in the created state and returns its ID
func (db *DB) CreateJob(ctx context.Context, audioID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO audio_processing_jobs (audio_id, status)
		 VALUES ($1, $2)
		 RETURNING id`,
		audioID, string(types.JobStatusCreated),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return uuid.Nil, fmt.Errorf("failed to create job: %w", ErrAudioNotFound)
		}
		return uuid.Nil, fmt.Errorf("failed to create job: %w", err)
	}
	return id, nil
}

// GetJob retrieves a job together with its audio file
func (db *DB) GetJob(ctx context.Context, jobID uuid.UUID) (*types.Job, error) {
	var (
		job       types.Job
		status    string
		audioID   *uuid.UUID
		userID    *uuid.UUID
		filename  *string
		filePath  *string
		audioTime *time.Time
	)

	err := db.pool.QueryRow(ctx,
		`SELECT j.id, j.audio_id, j.status, j.error_message, j.created_at, j.updated_at,
		        a.id, a.user_id, a.filename, a.file_path, a.created_at
		 FROM audio_processing_jobs j
		 LEFT JOIN audio_files a ON a.id = j.audio_id
		 WHERE j.id = $1`,
		jobID,
	).Scan(&job.ID, &job.AudioID, &status, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
		&audioID, &userID, &filename, &filePath, &audioTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	job.Status = types.JobStatus(status)
	if audioID != nil {
		job.Audio = &types.AudioFile{
			ID:        *audioID,
			UserID:    *userID,
			Filename:  *filename,
			FilePath:  *filePath,
			CreatedAt: *audioTime,
		}
	}
	return &job, nil
}

// ClaimJob sets claimed_at on a created, unclaimed job in one conditional UPDATE.
func (db *DB) ClaimJob(ctx context.Context, jobID uuid.UUID) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE audio_processing_jobs
		 SET claimed_at = NOW()
		 WHERE id = $1 AND status = $2 AND claimed_at IS NULL`,
		jobID, string(types.JobStatusCreated),
	)
	if err != nil {
		return fmt.Errorf("failed to claim job: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = db.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM audio_processing_jobs WHERE id = $1)`, jobID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to read job: %w", err)
	}
	if !exists {
		return ErrJobNotFound
	}
	return fmt.Errorf("%w: %s", types.ErrJobClaimed, jobID)
}

// UpdateJobStatus writes status, error message and updated_at in one statement.
// The row only changes when its current status may move to the new one.
func (db *DB) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status types.JobStatus, errMsg *string) error {
	errMsg, err := checkStatusWrite(jobID, status, errMsg)
	if err != nil {
		return err
	}

	var from []string
	for _, s := range types.AllowedPredecessors(status) {
		from = append(from, string(s))
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE audio_processing_jobs
		 SET status = $2, error_message = $3, updated_at = NOW()
		 WHERE id = $1 AND status = ANY($4::text[])`,
		jobID, string(status), errMsg, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	// Nothing changed: either the job is missing or the edge is not allowed.
	var current string
	err = db.pool.QueryRow(ctx,
		`SELECT status FROM audio_processing_jobs WHERE id = $1`, jobID,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrJobNotFound
		}
		return fmt.Errorf("failed to read job status: %w", err)
	}
	return &types.TransitionError{JobID: jobID, From: types.JobStatus(current), To: status}
}
