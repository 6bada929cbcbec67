package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/jonathan/meeting-reporter/internal/poll"
	"github.com/jonathan/meeting-reporter/internal/types"
)

// SSE event names sent on the job events stream.
const (
	eventStatus   = "status"
	eventComplete = "complete"
	eventError    = "error"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent(eventError, map[string]string{"error": message}) //nolint:errcheck
}

// handleEvents streams a "status" event each time an owned job's status changes and
// a final "complete" event once it is terminal. The stream ends when the client
// disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	job, err := s.requestJob(r)
	if err != nil {
		writeError(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	var last types.JobStatus
	err = poll.Until(r.Context(), poll.Options{Interval: s.eventInterval}, func(ctx context.Context, attempt int) (bool, error) {
		if attempt > 1 {
			latest, err := s.store.GetJob(ctx, job.ID)
			if err != nil {
				return false, err
			}
			if latest == nil {
				return false, fmt.Errorf("job %s disappeared", job.ID)
			}
			job = latest
		}

		event := types.JobEvent{JobID: job.ID.String(), Status: job.Status, Error: job.ErrorMessage}
		if job.Status != last {
			if err := sse.WriteEvent(eventStatus, event); err != nil {
				return false, err
			}
			last = job.Status
		}
		if job.Status.Terminal() {
			return true, sse.WriteEvent(eventComplete, event)
		}
		return false, nil
	})
	if err != nil && !errors.Is(err, r.Context().Err()) {
		log.Printf("[server] events stream for job %s ended: %v", job.ID, err)
		sse.WriteError("status stream failed")
	}
}
