package transcription

import "fmt"

// UploadError represents a failure reading the local audio file or uploading it.
type UploadError struct {
	StatusCode int // zero when the failure happened before a response was received
	Message    string
	Cause      error
}

func (e *UploadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("audio upload failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("audio upload failed: %s", e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}

// SubmissionError represents a rejected transcription request.
type SubmissionError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *SubmissionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transcription submission failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("transcription submission failed: %s", e.Message)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// ProviderError carries the error text reported by the provider for a failed transcript.
type ProviderError struct {
	TranscriptID string
	Message      string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("AssemblyAI error: %s", e.Message)
}

// PollError represents a failure while waiting for a transcript, including hitting a poll ceiling.
type PollError struct {
	TranscriptID string
	Cause        error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("polling transcript %s: %v", e.TranscriptID, e.Cause)
}

func (e *PollError) Unwrap() error {
	return e.Cause
}
