package gemini

import (
	"context"
	"strings"
	"time"

	"google.golang.org/genai"

	"interview/internal/llm"
)

const providerName = "gemini"

type Client struct {
	client *genai.Client
	config *Config
}

func NewClient(config *Config) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, &llm.ProviderError{
			Provider: providerName,
			Code:     llm.ErrCodeAPIKey,
			Message:  "failed to create Gemini client",
			Err:      err,
		}
	}
	return &Client{client: client, config: config}, nil
}

// toContents maps provider-neutral turns onto Gemini contents.
func toContents(turns []llm.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == llm.RoleModel {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: t.Text}}})
	}
	return contents
}

func (c *Client) GenerateContent(ctx context.Context, req *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	if req == nil || len(req.Turns) == 0 {
		return nil, &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeInvalidInput, Message: "no conversation turns provided"}
	}

	gc := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	if req.JSONResponse {
		gc.ResponseMIMEType = "application/json"
	}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, c.config.Model, toContents(req.Turns), gc)
	if err != nil {
		if pe := llm.ClassifyContextError(ctx, providerName, err); pe != nil {
			return nil, pe
		}
		code := llm.ErrCodeServiceDown
		if isRateLimitError(err) {
			code = llm.ErrCodeRateLimit
		}
		return nil, &llm.ProviderError{Provider: providerName, Code: code, Message: "failed to generate content", Err: err}
	}

	text := extractText(result)
	if text == "" {
		return nil, &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeInvalidInput, Message: "empty response generated"}
	}

	return &llm.GenerationResponse{
		Content:   text,
		Provider:  providerName,
		Model:     c.config.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		// only the first candidate carries the answer
		break
	}
	return strings.TrimSpace(builder.String())
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}

func (c *Client) GetProviderName() string {
	return providerName
}
