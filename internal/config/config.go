// Package config provides configuration loading and validation for the report server and CLI.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by TRANSCRIPTION_PROVIDER and NOTES_PROVIDER.
const (
	ProviderAssemblyAI = "assemblyai"
	ProviderMistral    = "mistral"
	ProviderGemini     = "gemini"
)

// Config holds every setting the server and the process command need.
// Values come from the environment (optionally seeded from a .env file).
type Config struct {
	// Storage
	DatabaseURL   string
	UploadDir     string
	MaxUploadSize int64
	ReportDir     string
	CORSOrigins   []string

	// Transcription
	TranscriptionProvider string
	AssemblyAIBaseURL     string
	AssemblyAIAPIKey      string
	PollInterval          time.Duration
	PollMaxAttempts       int           // 0 means no attempt ceiling
	PollMaxDuration       time.Duration // 0 means no time ceiling

	// Notes generation
	NotesProvider  string
	MistralBaseURL string
	MistralAPIKey  string
	MistralModel   string
	GeminiAPIKey   string
	NotesMaxTokens int
}

// Load reads the configuration from environment variables, applying defaults.
// Malformed numeric or duration values are reported as errors.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:           getEnvString("DATABASE_URL", ""),
		UploadDir:             getEnvString("UPLOAD_DIR", "uploads"),
		ReportDir:             getEnvString("DEFAULT_REPORT_DIR", "reports"),
		TranscriptionProvider: strings.ToLower(getEnvString("TRANSCRIPTION_PROVIDER", ProviderAssemblyAI)),
		AssemblyAIBaseURL:     strings.TrimRight(getEnvString("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com/v2"), "/"),
		AssemblyAIAPIKey:      getEnvString("ASSEMBLYAI_API_KEY", ""),
		NotesProvider:         strings.ToLower(getEnvString("NOTES_PROVIDER", ProviderMistral)),
		MistralBaseURL:        strings.TrimRight(getEnvString("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"), "/"),
		MistralAPIKey:         getEnvString("MISTRAL_API_KEY", ""),
		MistralModel:          getEnvString("DEFAULT_MISTRAL_MODEL", "mistral-medium-latest"),
		GeminiAPIKey:          getEnvString("GEMINI_API_KEY", ""),
		CORSOrigins:           splitList(getEnvString("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.MaxUploadSize, err = parseEnvInt64("MAX_UPLOAD_SIZE", 100_000_000); err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.PollInterval, err = parseEnvDuration("TRANSCRIPTION_POLL_INTERVAL", 3*time.Second); err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIPTION_POLL_INTERVAL: %w", err)
	}
	if cfg.PollMaxAttempts, err = parseEnvInt("TRANSCRIPTION_POLL_MAX_ATTEMPTS", 0); err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIPTION_POLL_MAX_ATTEMPTS: %w", err)
	}
	if cfg.PollMaxDuration, err = parseEnvDuration("TRANSCRIPTION_POLL_MAX_DURATION", 0); err != nil {
		return nil, fmt.Errorf("invalid TRANSCRIPTION_POLL_MAX_DURATION: %w", err)
	}
	if cfg.NotesMaxTokens, err = parseEnvInt("NOTES_MAX_TOKENS", 1500); err != nil {
		return nil, fmt.Errorf("invalid NOTES_MAX_TOKENS: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration has usable values.
// The database URL is not checked here since the process command runs without one.
func (c *Config) Validate() error {
	switch c.TranscriptionProvider {
	case ProviderAssemblyAI:
		if c.AssemblyAIAPIKey == "" {
			return fmt.Errorf("config error: ASSEMBLYAI_API_KEY is required for provider %q", c.TranscriptionProvider)
		}
	default:
		return fmt.Errorf("config error: unknown TRANSCRIPTION_PROVIDER %q", c.TranscriptionProvider)
	}

	switch c.NotesProvider {
	case ProviderMistral:
		if c.MistralAPIKey == "" {
			return fmt.Errorf("config error: MISTRAL_API_KEY is required for provider %q", c.NotesProvider)
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("config error: GEMINI_API_KEY is required for provider %q", c.NotesProvider)
		}
	default:
		return fmt.Errorf("config error: unknown NOTES_PROVIDER %q", c.NotesProvider)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("config error: TRANSCRIPTION_POLL_INTERVAL must be positive")
	}
	if c.PollMaxAttempts < 0 {
		return fmt.Errorf("config error: TRANSCRIPTION_POLL_MAX_ATTEMPTS must be non-negative")
	}
	if c.PollMaxDuration < 0 {
		return fmt.Errorf("config error: TRANSCRIPTION_POLL_MAX_DURATION must be non-negative")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("config error: MAX_UPLOAD_SIZE must be positive")
	}
	if c.NotesMaxTokens <= 0 {
		return fmt.Errorf("config error: NOTES_MAX_TOKENS must be positive")
	}

	return nil
}
