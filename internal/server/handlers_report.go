package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/jonathan/meeting-reporter/internal/db"
	"github.com/jonathan/meeting-reporter/internal/pipeline"
	"github.com/jonathan/meeting-reporter/internal/rendering"
	"github.com/jonathan/meeting-reporter/internal/server/middleware"
	"github.com/jonathan/meeting-reporter/internal/types"
)

const (
	generateAcceptedMessage = "Your report is being generated."
	stillProcessingMessage  = "Report is still being processed."
)

// handleGenerate creates a job for an owned audio file and hands it to the dispatcher.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r.Context())
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req types.ReportCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, validationError(err))
		return
	}

	audio, err := s.ownedAudio(r.Context(), userID, req.AudioID)
	if err != nil {
		writeError(w, err)
		return
	}

	jobID, err := s.store.CreateJob(r.Context(), audio.ID)
	if err != nil {
		if errors.Is(err, db.ErrAudioNotFound) {
			writeError(w, &NotFoundError{Resource: "audio file", ID: req.AudioID})
			return
		}
		writeError(w, fmt.Errorf("failed to create job: %w", err))
		return
	}

	if err := s.dispatcher.Submit(pipeline.Task{JobID: jobID, AudioPath: audio.FilePath}); err != nil {
		// The job would otherwise sit in created with nothing running it.
		msg := "failed to schedule job: " + err.Error()
		if uerr := s.store.UpdateJobStatus(context.Background(), jobID, types.JobStatusFailed, &msg); uerr != nil {
			log.Printf("[server] job %s: could not record scheduling failure: %v", jobID, uerr)
		}
		writeError(w, fmt.Errorf("job %s: %s", jobID, msg))
		return
	}

	log.Printf("[server] job %s accepted for audio %s", jobID, audio.ID)
	jsonResponse(w, http.StatusAccepted, types.ReportCreateResponse{
		JobID:   jobID.String(),
		Status:  types.JobStatusCreated,
		Message: generateAcceptedMessage,
	})
}

// handleStatus returns the last recorded status of an owned job.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.requestJob(r)
	if err != nil {
		writeError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, types.JobStatusResponse{
		JobID:  job.ID.String(),
		Status: job.Status,
		Error:  job.ErrorMessage,
	})
}

// handleDownload streams the rendered PDF once the job is summarized.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, err := s.requestJob(r)
	if err != nil {
		writeError(w, err)
		return
	}

	switch job.Status {
	case types.JobStatusFailed:
		msg := "report generation failed"
		if job.ErrorMessage != nil && *job.ErrorMessage != "" {
			msg = *job.ErrorMessage
		}
		writeError(w, &JobFailedError{JobID: job.ID, Message: msg})
		return
	case types.JobStatusSummarized:
	default:
		writeError(w, &NotReadyError{JobID: job.ID, Status: job.Status})
		return
	}

	path := rendering.ReportPath(s.reportDir, job.ID)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("[server] job %s is summarized but %s is missing", job.ID, path)
			writeError(w, &MissingReportError{JobID: job.ID})
			return
		}
		writeError(w, fmt.Errorf("failed to open report: %w", err))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, fmt.Errorf("failed to stat report: %w", err))
		return
	}

	name := rendering.DownloadFilename(job.ID)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// requestJob loads the job named by the {job_id} path value for the authenticated user.
func (s *Server) requestJob(r *http.Request) (*types.Job, error) {
	userID, err := middleware.UserID(r.Context())
	if err != nil {
		return nil, &NotFoundError{Resource: "job", ID: r.PathValue("job_id")}
	}
	return s.ownedJob(r.Context(), userID, r.PathValue("job_id"))
}

// ownedJob resolves a job and checks that its audio file belongs to userID.
func (s *Server) ownedJob(ctx context.Context, userID uuid.UUID, rawID string) (*types.Job, error) {
	jobID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, &NotFoundError{Resource: "job", ID: rawID}
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return nil, &NotFoundError{Resource: "job", ID: rawID}
	}

	owner := uuid.Nil
	if job.Audio != nil {
		owner = job.Audio.UserID
	} else {
		audio, err := s.store.GetAudioFile(ctx, job.AudioID)
		if err != nil {
			return nil, fmt.Errorf("failed to get audio file: %w", err)
		}
		if audio != nil {
			owner = audio.UserID
		}
	}
	if owner != userID {
		return nil, &OwnershipError{Resource: "job", ID: rawID, UserID: userID}
	}
	return job, nil
}

// ownedAudio resolves an audio file belonging to userID.
func (s *Server) ownedAudio(ctx context.Context, userID uuid.UUID, rawID string) (*types.AudioFile, error) {
	audioID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, &NotFoundError{Resource: "audio file", ID: rawID}
	}

	audio, err := s.store.GetAudioFile(ctx, audioID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio file: %w", err)
	}
	if audio == nil {
		return nil, &NotFoundError{Resource: "audio file", ID: rawID}
	}
	if audio.UserID != userID {
		return nil, &OwnershipError{Resource: "audio file", ID: rawID, UserID: userID}
	}
	return audio, nil
}
