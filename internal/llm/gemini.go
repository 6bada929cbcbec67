package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Complete maps the chat request onto a single GenerateContent call.
// System messages become the model's system instruction.
func (c *GeminiClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	modelName, err := resolveModel(c.config, req)
	if err != nil {
		return nil, err
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSONMode {
		model.ResponseMIMEType = "application/json"
	}

	system, parts := splitMessages(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("request has no user content")
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return toChatResponse(modelName, resp, req.JSONMode), nil
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// splitMessages joins system messages and turns the rest into text parts in order.
func splitMessages(messages []Message) (string, []genai.Part) {
	var system []string
	var parts []genai.Part
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	return strings.Join(system, "\n\n"), parts
}

// toChatResponse converts Gemini candidates into chat choices. Candidates
// without text parts are skipped so callers see an empty choice list.
func toChatResponse(modelName string, resp *genai.GenerateContentResponse, jsonMode bool) *ChatResponse {
	out := &ChatResponse{Model: modelName}
	if resp == nil {
		return out
	}

	for i, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var texts []string
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				texts = append(texts, string(text))
			}
		}
		if len(texts) == 0 {
			continue
		}
		content := strings.Join(texts, "")
		if jsonMode {
			// Gemini sometimes fences JSON even with a MIME type set
			content = CleanJSONBlock(content)
		}
		out.Choices = append(out.Choices, Choice{
			Index:   i,
			Message: Message{Role: RoleAssistant, Content: content},
		})
	}
	return out
}
