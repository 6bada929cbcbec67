package notes

import "fmt"

// EmptyResponseError is returned when the completion carries no usable content.
type EmptyResponseError struct {
	Reason string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("empty notes response: %s", e.Reason)
}

// MalformedNotesError is returned when the completion content is not a JSON object.
type MalformedNotesError struct {
	Content string
	Cause   error
}

func (e *MalformedNotesError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed notes JSON: %v", e.Cause)
	}
	return "malformed notes JSON: response is not a JSON object"
}

func (e *MalformedNotesError) Unwrap() error {
	return e.Cause
}
