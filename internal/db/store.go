package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jonathan/meeting-reporter/internal/types"
)

var (
	// ErrJobNotFound is returned when a status write targets an unknown job.
	ErrJobNotFound = errors.New("job not found")
	// ErrAudioNotFound is returned when a job references an unknown audio file.
	ErrAudioNotFound = errors.New("audio file not found")
	// ErrUsernameTaken is returned when registering a username that already exists.
	ErrUsernameTaken = errors.New("username already taken")
)

// Store is the persistence contract shared by DB and MemoryStore.
// Getters return (nil, nil) when the record does not exist.
type Store interface {
	CreateJob(ctx context.Context, audioID uuid.UUID) (uuid.UUID, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.Job, error)
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status types.JobStatus, errMsg *string) error
	// ClaimJob marks a created job as owned by the caller. Exactly one claim per
	// job succeeds; later ones fail with types.ErrJobClaimed.
	ClaimJob(ctx context.Context, jobID uuid.UUID) error

	CreateAudioFile(ctx context.Context, audio *types.AudioFile) error
	GetAudioFile(ctx context.Context, audioID uuid.UUID) (*types.AudioFile, error)

	CreateUser(ctx context.Context, username, passwordHash string) (*types.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*MemoryStore)(nil)
)

// checkStatusWrite validates a requested status write before it reaches storage.
// The error message is only kept for failed jobs.
func checkStatusWrite(jobID uuid.UUID, status types.JobStatus, errMsg *string) (*string, error) {
	if !status.Valid() {
		return nil, &types.TransitionError{JobID: jobID, To: status}
	}
	if status != types.JobStatusFailed {
		return nil, nil
	}
	return errMsg, nil
}
