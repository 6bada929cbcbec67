// Package types provides type definitions for structured data used throughout the meeting-reporter system.
package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the persisted status of an audio processing job.
// The string values are part of the client-visible contract.
type JobStatus string

// JobStatus values
const (
	JobStatusCreated     JobStatus = "created"
	JobStatusTranscribed JobStatus = "transcribed"
	JobStatusSummarized  JobStatus = "summarized"
	JobStatusFailed      JobStatus = "failed"
)

// ErrInvalidTransition is returned when a status write would break the job state machine.
var ErrInvalidTransition = errors.New("invalid job status transition")

// ErrJobClaimed is returned when a run tries to take a job that another run
// already owns or that has left the created state.
var ErrJobClaimed = errors.New("job already claimed")

// AllJobStatuses lists every valid status in pipeline order.
func AllJobStatuses() []JobStatus {
	return []JobStatus{JobStatusCreated, JobStatusTranscribed, JobStatusSummarized, JobStatusFailed}
}

// Valid reports whether s is one of the four defined statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusCreated, JobStatusTranscribed, JobStatusSummarized, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition can leave s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSummarized || s == JobStatusFailed
}

// CanTransition enforces the allowed job state machine edges:
// created -> transcribed -> summarized, with failed reachable from any non-terminal state.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusCreated:
		return to == JobStatusTranscribed || to == JobStatusFailed
	case JobStatusTranscribed:
		return to == JobStatusSummarized || to == JobStatusFailed
	default:
		return false
	}
}

// AllowedPredecessors returns the statuses a job may be in before moving to status.
func AllowedPredecessors(to JobStatus) []JobStatus {
	var from []JobStatus
	for _, s := range AllJobStatuses() {
		if CanTransition(s, to) {
			from = append(from, s)
		}
	}
	return from
}

// TransitionError describes a rejected status write.
type TransitionError struct {
	JobID uuid.UUID
	From  JobStatus
	To    JobStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %s: cannot move from %s to %s", e.JobID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Job is one tracked execution of the transcribe, summarize, render pipeline for one audio file.
type Job struct {
	ID           uuid.UUID  `json:"id"`
	AudioID      uuid.UUID  `json:"audio_id"`
	Status       JobStatus  `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Audio        *AudioFile `json:"audio,omitempty"`
}

// AudioFile is an uploaded recording owned by a user.
type AudioFile struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptionResult is the output of a transcription provider.
type TranscriptionResult struct {
	Transcript   string `json:"transcript"`
	LanguageCode string `json:"language_code,omitempty"`
}
