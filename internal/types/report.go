package types

import "github.com/go-playground/validator/v10"

// ReportCreateRequest is the body of POST /report/generate.
type ReportCreateRequest struct {
	AudioID string `json:"audio_id" validate:"required,uuid"`
}

// Validate validates the ReportCreateRequest using the validator.
func (r *ReportCreateRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ReportCreateResponse is returned when a job has been accepted.
type ReportCreateResponse struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

// JobStatusResponse is returned by GET /report/status/{job_id}.
type JobStatusResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Error  *string   `json:"error"`
}

// AudioUploadResponse is returned by POST /audio/upload.
type AudioUploadResponse struct {
	AudioID  string `json:"audio_id"`
	Filename string `json:"filename"`
}

// JobPendingResponse is returned by GET /report/download/{job_id} while the job is still running.
type JobPendingResponse struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

// JobEvent is the payload of status events streamed by GET /report/events/{job_id}.
type JobEvent struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
	Error  *string   `json:"error,omitempty"`
}
