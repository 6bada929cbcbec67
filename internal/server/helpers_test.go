package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/meeting-reporter/internal/config"
	"github.com/jonathan/meeting-reporter/internal/db"
	"github.com/jonathan/meeting-reporter/internal/pipeline"
	"github.com/jonathan/meeting-reporter/internal/server/ratelimit"
	"github.com/jonathan/meeting-reporter/internal/types"
)

const testJWTSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

// recordingDispatcher captures submitted tasks without running them. When err is
// set the task is still recorded and Submit reports err.
type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []pipeline.Task
	err   error
}

func (d *recordingDispatcher) Submit(task pipeline.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return d.err
}

func (d *recordingDispatcher) submitted() []pipeline.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]pipeline.Task(nil), d.tasks...)
}

type testEnv struct {
	server    *Server
	store     *db.MemoryStore
	uploadDir string
	reportDir string
}

type envOption func(*Config)

func withRateLimit(rl *ratelimit.Config) envOption {
	return func(c *Config) { c.RateLimit = rl }
}

func withMaxUpload(n int64) envOption {
	return func(c *Config) { c.MaxUploadSize = n }
}

func withCORSOrigins(origins ...string) envOption {
	return func(c *Config) { c.CORSOrigins = origins }
}

func newTestEnv(t *testing.T, dispatcher pipeline.Dispatcher, opts ...envOption) *testEnv {
	t.Helper()
	root := t.TempDir()
	store := db.NewMemoryStore()
	if dispatcher == nil {
		dispatcher = &recordingDispatcher{}
	}

	cfg := Config{
		Store:         store,
		Dispatcher:    dispatcher,
		JWT:           &config.JWTConfig{Secret: testJWTSecret, ExpirationHours: 1, Issuer: "meeting-reporter"},
		Password:      &config.PasswordConfig{BcryptCost: bcrypt.MinCost},
		RateLimit:     &ratelimit.Config{Enabled: false},
		UploadDir:     filepath.Join(root, "uploads"),
		ReportDir:     filepath.Join(root, "reports"),
		MaxUploadSize: 1 << 20,
		EventInterval: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.Stop)

	return &testEnv{server: srv, store: store, uploadDir: cfg.UploadDir, reportDir: cfg.ReportDir}
}

// do sends a request through the full middleware chain.
func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return e.do(t, method, path, token, body, "application/json")
}

// register creates a user over HTTP and returns its token and ID.
func (e *testEnv) register(t *testing.T, username string) (string, uuid.UUID) {
	t.Helper()
	rec := e.doJSON(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, resp.User.ID
}

// seedAudio writes an audio file on disk and records it for userID.
func (e *testEnv) seedAudio(t *testing.T, userID uuid.UUID) *types.AudioFile {
	t.Helper()
	dir := filepath.Join(e.uploadDir, userID.String())
	require.NoError(t, os.MkdirAll(dir, 0o755))

	audio := &types.AudioFile{ID: uuid.New(), UserID: userID, Filename: "standup.mp3"}
	audio.FilePath = filepath.Join(dir, audio.ID.String()+".mp3")
	require.NoError(t, os.WriteFile(audio.FilePath, []byte("ID3 fake audio"), 0o644))
	require.NoError(t, e.store.CreateAudioFile(context.Background(), audio))
	return audio
}

// seedJob creates a job for audio and walks it through statuses.
func (e *testEnv) seedJob(t *testing.T, audio *types.AudioFile, path ...types.JobStatus) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	jobID, err := e.store.CreateJob(ctx, audio.ID)
	require.NoError(t, err)
	for _, status := range path {
		var msg *string
		if status == types.JobStatusFailed {
			m := "AssemblyAI error: Audio file is corrupt"
			msg = &m
		}
		require.NoError(t, e.store.UpdateJobStatus(ctx, jobID, status, msg))
	}
	return jobID
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}
