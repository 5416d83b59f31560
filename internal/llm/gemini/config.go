package gemini

import (
	"errors"
	"strings"

	"interview/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

// holds Gemini-specific configuration
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

func NewConfig(s llm.Settings) (*Config, error) {
	apiKey := strings.TrimSpace(s.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	model := strings.TrimSpace(s.Model)
	if model == "" {
		model = defaultModel
	}
	return &Config{APIKey: apiKey, Model: model, BaseURL: strings.TrimSpace(s.BaseURL)}, nil
}
