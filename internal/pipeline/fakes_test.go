package pipeline

import (
	"context"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/meeting-reporter/internal/db"
	"github.com/jonathan/meeting-reporter/internal/notes"
	"github.com/jonathan/meeting-reporter/internal/transcription"
	"github.com/jonathan/meeting-reporter/internal/types"
)

// callLog records the order in which collaborators and store writes happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// recordingStore logs every status write before delegating to a MemoryStore.
type recordingStore struct {
	*db.MemoryStore
	log *callLog
}

func (s *recordingStore) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status types.JobStatus, errMsg *string) error {
	s.log.add("status:" + string(status))
	return s.MemoryStore.UpdateJobStatus(ctx, jobID, status, errMsg)
}

// gate holds a call until the test releases it.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (g *gate) wait() {
	if g == nil {
		return
	}
	g.entered <- struct{}{}
	<-g.release
}

type fakeTranscriber struct {
	log    *callLog
	result *types.TranscriptionResult
	err    error
	panic  bool
	gate   *gate
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (*types.TranscriptionResult, error) {
	f.log.add("transcribe:" + audioPath)
	f.gate.wait()
	if f.panic {
		panic("decoder exploded")
	}
	return f.result, f.err
}

func (f *fakeTranscriber) Close() error {
	f.log.add("close-transcriber")
	return nil
}

type fakeGenerator struct {
	log   *callLog
	notes types.Notes
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, transcript string) (types.Notes, error) {
	f.log.add("generate:" + transcript)
	return f.notes, f.err
}

func (f *fakeGenerator) Close() error {
	f.log.add("close-generator")
	return nil
}

// fakeRenderer writes a placeholder file so downloads can be checked.
type fakeRenderer struct {
	log *callLog
	err error
}

func (f *fakeRenderer) Export(transcript string, _ types.Notes, outputPath string) error {
	f.log.add("render")
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("%PDF-1.3 "+transcript), 0o644)
}

// fixture wires an orchestrator to fakes around a real MemoryStore.
type fixture struct {
	log         *callLog
	store       *recordingStore
	transcriber *fakeTranscriber
	generator   *fakeGenerator
	renderer    *fakeRenderer
	orch        *Orchestrator
	events      []ProgressEvent
	transErr    error
	genErr      error
}

func newFixture(reportDir string) *fixture {
	log := &callLog{}
	f := &fixture{
		log:   log,
		store: &recordingStore{MemoryStore: db.NewMemoryStore(), log: log},
		transcriber: &fakeTranscriber{log: log, result: &types.TranscriptionResult{
			Transcript: "hello", LanguageCode: "en",
		}},
		generator: &fakeGenerator{log: log, notes: types.Notes{
			"title":            "M",
			"topics_discussed": []any{"x"},
			"decisions_made":   []any{},
			"action_items":     []any{},
		}},
		renderer: &fakeRenderer{log: log},
	}
	f.orch = &Orchestrator{
		Store: f.store,
		NewTranscriber: func(context.Context) (transcription.Transcriber, error) {
			if f.transErr != nil {
				return nil, f.transErr
			}
			log.add("open-transcriber")
			return f.transcriber, nil
		},
		NewGenerator: func(context.Context) (notes.Generator, error) {
			if f.genErr != nil {
				return nil, f.genErr
			}
			log.add("open-generator")
			return f.generator, nil
		},
		Renderer:   f.renderer,
		ReportDir:  reportDir,
		OnProgress: func(e ProgressEvent) { f.events = append(f.events, e) },
	}
	return f
}

// createJob stores a user, an audio file and a created job.
func (f *fixture) createJob(ctx context.Context) (uuid.UUID, string) {
	user, err := f.store.CreateUser(ctx, "user-"+uuid.NewString(), "hash")
	if err != nil {
		panic(err)
	}
	audio := &types.AudioFile{UserID: user.ID, Filename: "A1.mp3", FilePath: "/data/A1.mp3"}
	if err := f.store.CreateAudioFile(ctx, audio); err != nil {
		panic(err)
	}
	jobID, err := f.store.CreateJob(ctx, audio.ID)
	if err != nil {
		panic(err)
	}
	return jobID, audio.FilePath
}
