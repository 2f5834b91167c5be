// Package llm wraps the Gemini API for the structured extraction calls made during job
// description intake.
package llm

import "fmt"

// ModelTier represents the capability level of a model.
type ModelTier string

const (
	// TierLite is for classification and keyword extraction.
	TierLite ModelTier = "lite"
	// TierStandard is for structured output over long postings.
	TierStandard ModelTier = "standard"
	// TierAdvanced is reserved for multi-step reasoning.
	TierAdvanced ModelTier = "advanced"
)

// ParseTier converts a configured tier name into a ModelTier.
func ParseTier(name string) (ModelTier, error) {
	switch tier := ModelTier(name); tier {
	case TierLite, TierStandard, TierAdvanced:
		return tier, nil
	default:
		return "", fmt.Errorf("unknown model tier %q (want lite, standard or advanced)", name)
	}
}

// Provider represents an LLM provider.
type Provider string

// ProviderGemini is the Google Gemini provider, the only one wired today.
const ProviderGemini Provider = "gemini"

// Config holds the model names used for each tier.
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the Gemini configuration used by intake.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: 0.1,
	}
}

// GetModel returns the model name for a tier, falling back to standard then lite.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the config with model assigned to tier.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string, len(c.Models)+1),
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	out.Models[tier] = model
	return out
}

// ForTier returns the default configuration with model assigned to tier. An empty model keeps
// the tier's default.
func ForTier(tier ModelTier, model string) *Config {
	cfg := DefaultConfig()
	if model == "" {
		return cfg
	}
	return cfg.WithModel(tier, model)
}
