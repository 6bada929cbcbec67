package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jonathan/meeting-reporter/internal/poll"
	"github.com/jonathan/meeting-reporter/internal/types"
)

// Transcript status values reported by AssemblyAI.
const (
	statusCompleted = "completed"
	statusError     = "error"
)

// DefaultPollInterval is the cadence between transcript status checks.
const DefaultPollInterval = 3 * time.Second

// maxErrorBody caps how much of a failed response body is kept in error messages.
const maxErrorBody = 2048

// AssemblyAIOptions configures an AssemblyAIClient.
type AssemblyAIOptions struct {
	BaseURL         string
	APIKey          string
	PollInterval    time.Duration
	PollMaxAttempts int           // 0 = unbounded
	PollMaxDuration time.Duration // 0 = unbounded
	HTTPClient      *http.Client  // optional; a dedicated client is created when nil
}

// AssemblyAIClient implements Transcriber against the AssemblyAI v2 REST API.
type AssemblyAIClient struct {
	baseURL    string
	apiKey     string
	pollOpts   poll.Options
	httpClient *http.Client
	ownsClient bool
}

// NewAssemblyAIClient creates a client. It holds its own HTTP transport until Close.
func NewAssemblyAIClient(opts AssemblyAIOptions) (*AssemblyAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("AssemblyAI API key is required")
	}
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("AssemblyAI base URL is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	c := &AssemblyAIClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		pollOpts: poll.Options{
			Interval:    opts.PollInterval,
			MaxAttempts: opts.PollMaxAttempts,
			MaxDuration: opts.PollMaxDuration,
		},
		httpClient: opts.HTTPClient,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
		c.ownsClient = true
	}
	return c, nil
}

// transcriptRequest is the fixed transcription configuration.
type transcriptRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	LanguageDetection bool   `json:"language_detection"`
	Punctuate         bool   `json:"punctuate"`
	FormatText        bool   `json:"format_text"`
	EntityDetection   bool   `json:"entity_detection"`
	Disfluencies      bool   `json:"disfluencies"`
}

// transcriptResponse is the subset of the transcript payload the client reads.
type transcriptResponse struct {
	ID           string      `json:"id"`
	Status       string      `json:"status"`
	Error        string      `json:"error"`
	LanguageCode string      `json:"language_code"`
	Text         string      `json:"text"`
	Utterances   []Utterance `json:"utterances"`
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// newTranscriptRequest builds the request body sent for every transcription.
func newTranscriptRequest(audioURL string) transcriptRequest {
	return transcriptRequest{
		AudioURL:          audioURL,
		SpeakerLabels:     true,
		LanguageDetection: true,
		Punctuate:         true,
		FormatText:        true,
		EntityDetection:   true,
		Disfluencies:      false,
	}
}

// Transcribe uploads, submits and polls until the transcript is ready.
func (c *AssemblyAIClient) Transcribe(ctx context.Context, audioPath string) (*types.TranscriptionResult, error) {
	audioURL, err := c.upload(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	transcriptID, err := c.submit(ctx, audioURL)
	if err != nil {
		return nil, err
	}
	log.Printf("[transcription] submitted transcript %s", transcriptID)

	transcript, err := c.waitForTranscript(ctx, transcriptID)
	if err != nil {
		return nil, err
	}

	return &types.TranscriptionResult{
		Transcript:   FormatUtterances(transcript.Utterances),
		LanguageCode: transcript.LanguageCode,
	}, nil
}

// Close releases idle connections held by the client's own transport.
func (c *AssemblyAIClient) Close() error {
	if c.ownsClient && c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

func (c *AssemblyAIClient) upload(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", &UploadError{Message: "failed to read audio file " + audioPath, Cause: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/upload", bytes.NewReader(audio))
	if err != nil {
		return "", &UploadError{Message: "failed to build upload request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	status, body, err := c.do(req, &out)
	if err != nil {
		return "", &UploadError{StatusCode: status, Message: "upload request failed", Cause: err}
	}
	if !isSuccess(status) {
		return "", &UploadError{StatusCode: status, Message: fmt.Sprintf("HTTP %d: %s", status, body)}
	}
	if out.UploadURL == "" {
		return "", &UploadError{StatusCode: status, Message: "response has no upload_url"}
	}
	return out.UploadURL, nil
}

func (c *AssemblyAIClient) submit(ctx context.Context, audioURL string) (string, error) {
	payload, err := json.Marshal(newTranscriptRequest(audioURL))
	if err != nil {
		return "", &SubmissionError{Message: "failed to encode request", Cause: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", &SubmissionError{Message: "failed to build submit request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var out transcriptResponse
	status, body, err := c.do(req, &out)
	if err != nil {
		return "", &SubmissionError{StatusCode: status, Message: "submit request failed", Cause: err}
	}
	if !isSuccess(status) {
		return "", &SubmissionError{StatusCode: status, Message: fmt.Sprintf("HTTP %d: %s", status, body)}
	}
	if out.ID == "" {
		return "", &SubmissionError{StatusCode: status, Message: "response has no transcript id"}
	}
	return out.ID, nil
}

func (c *AssemblyAIClient) waitForTranscript(ctx context.Context, transcriptID string) (*transcriptResponse, error) {
	var result *transcriptResponse

	err := poll.Until(ctx, c.pollOpts, func(ctx context.Context, _ int) (bool, error) {
		transcript, err := c.fetchTranscript(ctx, transcriptID)
		if err != nil {
			return false, err
		}
		switch transcript.Status {
		case statusCompleted:
			result = transcript
			return true, nil
		case statusError:
			return false, &ProviderError{TranscriptID: transcriptID, Message: transcript.Error}
		default:
			return false, nil
		}
	})
	if err != nil {
		if _, ok := err.(*ProviderError); ok {
			return nil, err
		}
		return nil, &PollError{TranscriptID: transcriptID, Cause: err}
	}
	return result, nil
}

func (c *AssemblyAIClient) fetchTranscript(ctx context.Context, transcriptID string) (*transcriptResponse, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/transcript/"+transcriptID, nil)
	if err != nil {
		return nil, err
	}

	var out transcriptResponse
	status, body, err := c.do(req, &out)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("HTTP %d: %s", status, body)
	}
	return &out, nil
}

func (c *AssemblyAIClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("authorization", c.apiKey)
	return req, nil
}

// do sends req and decodes a 2xx JSON body into out. For other statuses the
// (truncated) body is returned as text so callers can report it.
func (c *AssemblyAIClient) do(req *http.Request, out any) (int, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, strings.TrimSpace(string(b)), nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, "", fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, "", nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
