// Package llm provides chat-completion client abstractions over the supported LLM providers.
// Model tiers let callers ask for a capability level instead of a concrete model name.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, short extraction
	TierLite ModelTier = "lite"
	// TierStandard is for moderate reasoning: structured notes extraction
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long transcripts or complex reasoning
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderMistral is the Mistral chat-completions API
	ProviderMistral Provider = "mistral"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// DefaultMistralBaseURL is the public Mistral API root.
const DefaultMistralBaseURL = "https://api.mistral.ai/v1"

// Config holds the model configuration for one provider
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// BaseURL is the API root for HTTP providers. Ignored by Gemini.
	BaseURL string
}

// DefaultConfig returns the default configuration (Mistral)
func DefaultConfig() *Config {
	return DefaultMistralConfig()
}

// DefaultMistralConfig returns the default Mistral configuration
func DefaultMistralConfig() *Config {
	return &Config{
		Provider: ProviderMistral,
		Models: map[ModelTier]string{
			TierLite:     "mistral-small-latest",
			TierStandard: "mistral-medium-latest",
			TierAdvanced: "mistral-large-latest",
		},
		BaseURL: DefaultMistralBaseURL,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
	}
}

// ConfigFor returns the default configuration for a provider, or nil if it is unknown.
func ConfigFor(provider Provider) *Config {
	switch provider {
	case ProviderMistral:
		return DefaultMistralConfig()
	case ProviderGemini:
		return DefaultGeminiConfig()
	default:
		return nil
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider: c.Provider,
		Models:   make(map[ModelTier]string),
		BaseURL:  c.BaseURL,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}

// WithBaseURL returns a new Config pointing at a different API root
func (c *Config) WithBaseURL(baseURL string) *Config {
	newConfig := c.WithModel(TierStandard, c.GetModel(TierStandard))
	newConfig.BaseURL = baseURL
	return newConfig
}
