// Package notes turns a meeting transcript into structured notes with one LLM call.
package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/meeting-reporter/internal/config"
	"github.com/jonathan/meeting-reporter/internal/llm"
	"github.com/jonathan/meeting-reporter/internal/prompts"
	"github.com/jonathan/meeting-reporter/internal/types"
)

const (
	promptFile      = "notes.json"
	systemPromptKey = "meeting-notes-system"
	userPromptKey   = "meeting-notes-user"
)

// Decoding parameters for notes extraction.
const (
	Temperature      float32 = 0.1
	DefaultMaxTokens         = 1500
)

// Generator extracts notes from a transcript.
type Generator interface {
	Generate(ctx context.Context, transcript string) (types.Notes, error)
	Close() error
}

// Factory opens a Generator for the duration of one pipeline stage.
type Factory func(ctx context.Context) (Generator, error)

// LLMGenerator implements Generator on top of an llm.Client.
type LLMGenerator struct {
	client    llm.Client
	maxTokens int
}

// NewLLMGenerator wraps client. The generator owns the client and closes it on Close.
func NewLLMGenerator(client llm.Client, maxTokens int) *LLMGenerator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &LLMGenerator{client: client, maxTokens: maxTokens}
}

// Generate sends the transcript and parses the first choice as a JSON object.
// Transport errors are returned unchanged; no retry is attempted.
func (g *LLMGenerator) Generate(ctx context.Context, transcript string) (types.Notes, error) {
	messages, err := BuildMessages(transcript)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Complete(ctx, llm.ChatRequest{
		Tier:        llm.TierStandard,
		Messages:    messages,
		Temperature: Temperature,
		MaxTokens:   g.maxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	return ParseResponse(resp)
}

// Close releases the underlying LLM client.
func (g *LLMGenerator) Close() error {
	return g.client.Close()
}

// BuildMessages assembles the system prompt and the sentinel-wrapped transcript.
func BuildMessages(transcript string) ([]llm.Message, error) {
	system, err := prompts.Get(promptFile, systemPromptKey)
	if err != nil {
		return nil, err
	}
	envelope, err := prompts.Get(promptFile, userPromptKey)
	if err != nil {
		return nil, err
	}
	user, err := prompts.FormatStrict(envelope, map[string]string{"Transcript": transcript})
	if err != nil {
		return nil, err
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, nil
}

// ParseResponse extracts notes from a chat response. Only the "is a JSON
// object" shape is checked; key requirements are enforced at render time.
func ParseResponse(resp *llm.ChatResponse) (types.Notes, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &EmptyResponseError{Reason: "no choices in response"}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, &EmptyResponseError{Reason: "first choice has no content"}
	}

	var raw any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, &MalformedNotesError{Content: content, Cause: err}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &MalformedNotesError{Content: content}
	}
	return types.Notes(obj), nil
}

// NewFactory returns a Factory for the notes provider named in cfg.
func NewFactory(cfg *config.Config) (Factory, error) {
	provider := cfg.NotesProvider
	if provider == "" {
		provider = config.ProviderMistral
	}
	llmCfg := llm.ConfigFor(llm.Provider(provider))
	if llmCfg == nil {
		return nil, fmt.Errorf("unknown notes provider: %s", cfg.NotesProvider)
	}

	apiKey := cfg.GeminiAPIKey
	if llmCfg.Provider == llm.ProviderMistral {
		llmCfg = llmCfg.WithBaseURL(cfg.MistralBaseURL)
		if cfg.MistralModel != "" {
			llmCfg = llmCfg.WithModel(llm.TierStandard, cfg.MistralModel)
		}
		apiKey = cfg.MistralAPIKey
	}

	maxTokens := cfg.NotesMaxTokens
	return func(ctx context.Context) (Generator, error) {
		client, err := llm.NewClient(ctx, llmCfg, apiKey)
		if err != nil {
			return nil, err
		}
		return NewLLMGenerator(client, maxTokens), nil
	}, nil
}
