// Package transcription provides speech-to-text clients that turn an audio file into a diarized transcript.
package transcription

import (
	"context"
	"fmt"

	"github.com/jonathan/meeting-reporter/internal/config"
	"github.com/jonathan/meeting-reporter/internal/types"
)

// Transcriber converts a local audio file into text.
type Transcriber interface {
	// Transcribe uploads the file at audioPath and blocks until the provider finishes.
	Transcribe(ctx context.Context, audioPath string) (*types.TranscriptionResult, error)
	// Close releases the transport held by the transcriber
	Close() error
}

// Factory opens a Transcriber for the duration of one pipeline stage.
type Factory func(ctx context.Context) (Transcriber, error)

// NewFactory returns a Factory for the provider named in cfg.
func NewFactory(cfg *config.Config) (Factory, error) {
	switch cfg.TranscriptionProvider {
	case config.ProviderAssemblyAI, "":
		opts := AssemblyAIOptions{
			BaseURL:         cfg.AssemblyAIBaseURL,
			APIKey:          cfg.AssemblyAIAPIKey,
			PollInterval:    cfg.PollInterval,
			PollMaxAttempts: cfg.PollMaxAttempts,
			PollMaxDuration: cfg.PollMaxDuration,
		}
		return func(_ context.Context) (Transcriber, error) {
			return NewAssemblyAIClient(opts)
		}, nil
	default:
		return nil, fmt.Errorf("unknown transcription provider: %s", cfg.TranscriptionProvider)
	}
}
