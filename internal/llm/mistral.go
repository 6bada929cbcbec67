package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 2048

// MistralClient implements Client against the Mistral chat-completions endpoint.
type MistralClient struct {
	config     *Config
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewMistralClient creates a Mistral client with its own HTTP transport.
func NewMistralClient(config *Config, apiKey string) (*MistralClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultMistralBaseURL
	}

	return &MistralClient{
		config:     config,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
	}, nil
}

type responseFormat struct {
	Type string `json:"type"`
}

type mistralRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// Complete posts the request to {base}/chat/completions.
func (c *MistralClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model, err := resolveModel(c.config, req)
	if err != nil {
		return nil, err
	}

	body := mistralRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Provider: ProviderMistral, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	return &out, nil
}

// GetModel returns the model name for a tier
func (c *MistralClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases idle connections
func (c *MistralClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
