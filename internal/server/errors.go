// Package server provides the HTTP API for uploading meeting audio and retrieving reports.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/meeting-reporter/internal/types"
)

// NotFoundError indicates an unknown job or audio file.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// OwnershipError indicates the resource exists but belongs to another user.
// It is reported to clients exactly like NotFoundError.
type OwnershipError struct {
	Resource string
	ID       string
	UserID   uuid.UUID
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%s %s is not owned by user %s", e.Resource, e.ID, e.UserID)
}

// NotReadyError indicates a download of a job that has not reached a terminal status.
type NotReadyError struct {
	JobID  uuid.UUID
	Status types.JobStatus
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("job %s is still %s", e.JobID, e.Status)
}

// pending is the 202 body sent in place of the report.
func (e *NotReadyError) pending() types.JobPendingResponse {
	return types.JobPendingResponse{
		JobID:   e.JobID.String(),
		Status:  e.Status,
		Message: stillProcessingMessage,
	}
}

// JobFailedError indicates a download of a job whose pipeline failed.
type JobFailedError struct {
	JobID   uuid.UUID
	Message string
}

func (e *JobFailedError) Error() string {
	return e.Message
}

// MissingReportError indicates a summarized job whose PDF is not on disk.
type MissingReportError struct {
	JobID uuid.UUID
}

func (e *MissingReportError) Error() string {
	return "report file missing on server"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrPayloadTooLarge indicates an upload above the configured size limit.
type ErrPayloadTooLarge struct {
	Limit int64
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("file exceeds the maximum upload size of %d bytes", e.Limit)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid username or password"
}

// ErrUsernameTaken indicates the username is already registered
type ErrUsernameTaken struct {
	Username string
}

func (e *ErrUsernameTaken) Error() string {
	return fmt.Sprintf("username already registered: %s", e.Username)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound  *NotFoundError
		ownership *OwnershipError
		notReady  *NotReadyError
		failed    *JobFailedError
		missing   *MissingReportError
		invalid   *ErrValidation
		tooLarge  *ErrPayloadTooLarge
		creds     *ErrInvalidCredentials
		taken     *ErrUsernameTaken
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &ownership), errors.As(err, &missing):
		return http.StatusNotFound
	case errors.As(err, &notReady):
		return http.StatusAccepted
	case errors.As(err, &failed):
		return http.StatusInternalServerError
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &creds):
		return http.StatusUnauthorized
	case errors.As(err, &taken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage is the message sent to the caller for err. Ownership failures
// read the same as unknown resources and unexpected errors are not echoed.
func clientMessage(err error) string {
	var (
		ownership *OwnershipError
		notFound  *NotFoundError
	)
	switch {
	case errors.As(err, &ownership):
		return (&NotFoundError{Resource: ownership.Resource, ID: ownership.ID}).Error()
	case errors.As(err, &notFound):
		return notFound.Error()
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		var failed *JobFailedError
		if errors.As(err, &failed) {
			return failed.Message
		}
		return "internal server error"
	}
	return err.Error()
}
