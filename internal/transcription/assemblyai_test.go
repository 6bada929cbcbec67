package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/meeting-reporter/internal/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAssemblyAI is an in-process stand-in for the provider API.
type fakeAssemblyAI struct {
	mu            sync.Mutex
	uploadStatus  int
	submitStatus  int
	pendingPolls  int    // number of "processing" responses before the final one
	finalStatus   string // completed or error
	providerError string
	utterances    []Utterance

	uploadedBody []byte
	submitted    map[string]any
	polls        int
	authHeaders  []string
}

func newFakeAssemblyAI() *fakeAssemblyAI {
	return &fakeAssemblyAI{
		uploadStatus: http.StatusOK,
		submitStatus: http.StatusOK,
		finalStatus:  statusCompleted,
	}
}

func (f *fakeAssemblyAI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.uploadedBody = body
		status := f.uploadStatus
		f.mu.Unlock()
		if status != http.StatusOK {
			http.Error(w, "upload rejected", status)
			return
		}
		writeJSON(w, map[string]string{"upload_url": "https://cdn.example/audio-1"})
	})
	mux.HandleFunc("POST /transcript", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		f.submitted = payload
		status := f.submitStatus
		f.mu.Unlock()
		if status != http.StatusOK {
			http.Error(w, "bad request", status)
			return
		}
		writeJSON(w, map[string]string{"id": "tr-1", "status": "queued"})
	})
	mux.HandleFunc("GET /transcript/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.polls++
		if f.polls <= f.pendingPolls {
			writeJSON(w, map[string]any{"id": r.PathValue("id"), "status": "processing"})
			return
		}
		writeJSON(w, map[string]any{
			"id":            r.PathValue("id"),
			"status":        f.finalStatus,
			"error":         f.providerError,
			"language_code": "en",
			"utterances":    f.utterances,
		})
	})
	return mux
}

func (f *fakeAssemblyAI) record(r *http.Request) {
	f.mu.Lock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("authorization"))
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o600))
	return path
}

func newTestClient(t *testing.T, baseURL string, opts AssemblyAIOptions) *AssemblyAIClient {
	t.Helper()
	opts.BaseURL = baseURL
	opts.APIKey = "test-key"
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Millisecond
	}
	client, err := NewAssemblyAIClient(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAssemblyAI_Transcribe_Success(t *testing.T) {
	fake := newFakeAssemblyAI()
	fake.pendingPolls = 2
	fake.utterances = []Utterance{
		{Speaker: "A", Text: "hi"},
		{Speaker: "B", Text: ""},
		{Speaker: "A", Text: "bye"},
	}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, AssemblyAIOptions{})
	result, err := client.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)

	assert.Equal(t, "Speaker A: hi\nSpeaker A: bye", result.Transcript)
	assert.Equal(t, "en", result.LanguageCode)
	assert.Equal(t, []byte("fake audio bytes"), fake.uploadedBody)
	assert.Equal(t, 3, fake.polls)

	for _, h := range fake.authHeaders {
		assert.Equal(t, "test-key", h)
	}
}

func TestAssemblyAI_SubmitPayload(t *testing.T) {
	fake := newFakeAssemblyAI()
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, AssemblyAIOptions{})
	_, err := client.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"audio_url":          "https://cdn.example/audio-1",
		"speaker_labels":     true,
		"language_detection": true,
		"punctuate":          true,
		"format_text":        true,
		"entity_detection":   true,
		"disfluencies":       false,
	}, fake.submitted)
}

func TestAssemblyAI_UploadErrors(t *testing.T) {
	t.Run("missing local file", func(t *testing.T) {
		client := newTestClient(t, "http://127.0.0.1:1", AssemblyAIOptions{})
		_, err := client.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))

		var uploadErr *UploadError
		require.True(t, errors.As(err, &uploadErr))
		assert.Zero(t, uploadErr.StatusCode)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("non-2xx response", func(t *testing.T) {
		fake := newFakeAssemblyAI()
		fake.uploadStatus = http.StatusUnauthorized
		srv := httptest.NewServer(fake.handler())
		defer srv.Close()

		client := newTestClient(t, srv.URL, AssemblyAIOptions{})
		_, err := client.Transcribe(context.Background(), writeAudio(t))

		var uploadErr *UploadError
		require.True(t, errors.As(err, &uploadErr))
		assert.Equal(t, http.StatusUnauthorized, uploadErr.StatusCode)
		assert.Nil(t, fake.submitted, "submit must not run after a failed upload")
	})
}

func TestAssemblyAI_SubmissionError(t *testing.T) {
	fake := newFakeAssemblyAI()
	fake.submitStatus = http.StatusBadRequest
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, AssemblyAIOptions{})
	_, err := client.Transcribe(context.Background(), writeAudio(t))

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, http.StatusBadRequest, subErr.StatusCode)
	assert.Zero(t, fake.polls)
}

func TestAssemblyAI_ProviderError(t *testing.T) {
	fake := newFakeAssemblyAI()
	fake.pendingPolls = 1
	fake.finalStatus = statusError
	fake.providerError = "Audio file is corrupt"
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, AssemblyAIOptions{})
	_, err := client.Transcribe(context.Background(), writeAudio(t))

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "Audio file is corrupt", provErr.Message)
	assert.Equal(t, "AssemblyAI error: Audio file is corrupt", err.Error())
}

func TestAssemblyAI_PollCeiling(t *testing.T) {
	fake := newFakeAssemblyAI()
	fake.pendingPolls = 100
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL, AssemblyAIOptions{PollMaxAttempts: 3})
	_, err := client.Transcribe(context.Background(), writeAudio(t))

	var pollErr *PollError
	require.True(t, errors.As(err, &pollErr))
	assert.ErrorIs(t, err, poll.ErrAttemptsExceeded)
	assert.Equal(t, 3, fake.polls)
}

func TestNewAssemblyAIClient_Validation(t *testing.T) {
	_, err := NewAssemblyAIClient(AssemblyAIOptions{BaseURL: "http://x"})
	assert.Error(t, err)

	_, err = NewAssemblyAIClient(AssemblyAIOptions{APIKey: "k"})
	assert.Error(t, err)

	client, err := NewAssemblyAIClient(AssemblyAIOptions{BaseURL: "http://x/", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "http://x", client.baseURL)
	assert.Equal(t, DefaultPollInterval, client.pollOpts.Interval)
}
