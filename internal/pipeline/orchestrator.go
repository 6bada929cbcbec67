// Package pipeline drives a report job through transcription, notes extraction and rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/meeting-reporter/internal/notes"
	"github.com/jonathan/meeting-reporter/internal/rendering"
	"github.com/jonathan/meeting-reporter/internal/transcription"
	"github.com/jonathan/meeting-reporter/internal/types"
)

var (
	// ErrAlreadyProcessed is returned when Run is asked to process a job that has left the created state.
	ErrAlreadyProcessed = errors.New("job already processed")
	// ErrUnknownJob is returned when Run is given a job id the store does not know.
	ErrUnknownJob = errors.New("unknown job")
)

// JobStore is the subset of the store the orchestrator reads and writes.
type JobStore interface {
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.Job, error)
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status types.JobStatus, errMsg *string) error
	ClaimJob(ctx context.Context, jobID uuid.UUID) error
}

// Stage names reported in progress events
const (
	StageTranscribe = "transcribe"
	StageSummarize  = "summarize"
	StageRender     = "render"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	JobID   uuid.UUID       `json:"job_id"`
	Stage   string          `json:"stage"`
	Status  types.JobStatus `json:"status"`
	Message string          `json:"message"`
	Content any             `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Orchestrator runs one job at a time through the three stages. It holds no
// per-job state; everything that crosses a stage boundary is written to Store.
type Orchestrator struct {
	Store          JobStore
	NewTranscriber transcription.Factory
	NewGenerator   notes.Factory
	Renderer       rendering.Renderer
	ReportDir      string
	OnProgress     ProgressCallback
}

// Run processes a job that is still in the created state. Stage failures are
// recorded as failed with the error text and returned. A job in any other
// state, or one another run has already claimed, is refused with
// ErrAlreadyProcessed and left untouched.
func (o *Orchestrator) Run(ctx context.Context, jobID uuid.UUID, audioPath string) (err error) {
	job, err := o.Store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if job.Status != types.JobStatusCreated {
		return fmt.Errorf("%w: job %s is %s", ErrAlreadyProcessed, jobID, job.Status)
	}
	if err := o.Store.ClaimJob(ctx, jobID); err != nil {
		if errors.Is(err, types.ErrJobClaimed) {
			return fmt.Errorf("%w: job %s is claimed by another run", ErrAlreadyProcessed, jobID)
		}
		return fmt.Errorf("failed to claim job %s: %w", jobID, err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = o.fail(ctx, jobID, fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	log.Printf("[pipeline] job %s: transcribing %s", jobID, audioPath)
	result, err := o.transcribe(ctx, audioPath)
	if err != nil {
		return o.fail(ctx, jobID, err)
	}
	if err := o.advance(ctx, jobID, types.JobStatusTranscribed); err != nil {
		return err
	}
	o.emit(jobID, StageTranscribe, types.JobStatusTranscribed,
		fmt.Sprintf("Transcribed audio (%d characters, language %q)", len(result.Transcript), result.LanguageCode), nil)

	log.Printf("[pipeline] job %s: generating notes", jobID)
	meetingNotes, err := o.summarize(ctx, result.Transcript)
	if err != nil {
		return o.fail(ctx, jobID, err)
	}
	o.emit(jobID, StageSummarize, types.JobStatusTranscribed, "Generated meeting notes", meetingNotes)

	// The report must exist before the job is marked summarized.
	reportPath := rendering.ReportPath(o.ReportDir, jobID)
	log.Printf("[pipeline] job %s: rendering %s", jobID, reportPath)
	if err := o.Renderer.Export(result.Transcript, meetingNotes, reportPath); err != nil {
		return o.fail(ctx, jobID, err)
	}
	if err := o.advance(ctx, jobID, types.JobStatusSummarized); err != nil {
		return err
	}
	o.emit(jobID, StageRender, types.JobStatusSummarized, "Rendered report to "+reportPath, reportPath)

	log.Printf("[pipeline] job %s: summarized", jobID)
	return nil
}

// transcribe opens a transcriber for the stage and always closes it.
func (o *Orchestrator) transcribe(ctx context.Context, audioPath string) (*types.TranscriptionResult, error) {
	t, err := o.NewTranscriber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcriber: %w", err)
	}
	defer closeLogged("transcriber", t.Close)

	return t.Transcribe(ctx, audioPath)
}

// summarize opens a notes generator for the stage and always closes it.
func (o *Orchestrator) summarize(ctx context.Context, transcript string) (types.Notes, error) {
	g, err := o.NewGenerator(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open notes generator: %w", err)
	}
	defer closeLogged("notes generator", g.Close)

	return g.Generate(ctx, transcript)
}

// advance records a successful stage. A rejected transition means the row was
// written by someone else and is left as it is; any other write failure is
// recorded as failed when possible.
func (o *Orchestrator) advance(ctx context.Context, jobID uuid.UUID, status types.JobStatus) error {
	err := o.Store.UpdateJobStatus(ctx, jobID, status, nil)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, types.ErrInvalidTransition):
		log.Printf("[pipeline] job %s: status %s rejected: %v", jobID, status, err)
		return fmt.Errorf("failed to record status %s: %w", status, err)
	default:
		return o.fail(ctx, jobID, fmt.Errorf("failed to record status %s: %w", status, err))
	}
}

// fail records the job as failed with cause's text and returns cause.
func (o *Orchestrator) fail(ctx context.Context, jobID uuid.UUID, cause error) error {
	msg := cause.Error()
	log.Printf("[pipeline] job %s: failed: %s", jobID, msg)

	if err := o.Store.UpdateJobStatus(ctx, jobID, types.JobStatusFailed, &msg); err != nil {
		log.Printf("[pipeline] job %s: could not record failure: %v", jobID, err)
		return errors.Join(cause, err)
	}
	o.emit(jobID, "", types.JobStatusFailed, msg, nil)
	return cause
}

// emit calls the progress callback if configured
func (o *Orchestrator) emit(jobID uuid.UUID, stage string, status types.JobStatus, message string, content any) {
	if o.OnProgress != nil {
		o.OnProgress(ProgressEvent{
			JobID:   jobID,
			Stage:   stage,
			Status:  status,
			Message: message,
			Content: content,
		})
	}
}

func closeLogged(what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Printf("[pipeline] failed to close %s: %v", what, err)
	}
}
