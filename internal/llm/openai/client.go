// Package openai adapts any OpenAI-compatible chat completion endpoint to llm.Provider.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"interview/internal/llm"
)

const (
	providerName = "openai"
	defaultModel = "gpt-4o-mini"
)

type Client struct {
	client *goopenai.Client
	model  string
}

func NewClient(s llm.Settings) (*Client, error) {
	apiKey := strings.TrimSpace(s.APIKey)
	if apiKey == "" {
		return nil, &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeAPIKey, Message: "openai api key is required"}
	}
	config := goopenai.DefaultConfig(apiKey)
	if s.BaseURL != "" {
		config.BaseURL = s.BaseURL
	}
	model := strings.TrimSpace(s.Model)
	if model == "" {
		model = defaultModel
	}
	return &Client{client: goopenai.NewClientWithConfig(config), model: model}, nil
}

func init() {
	llm.RegisterProvider(providerName, func(s llm.Settings) (llm.Provider, error) {
		return NewClient(s)
	})
}

func toMessages(req *llm.GenerationRequest) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.SystemInstruction != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.SystemInstruction})
	}
	for _, t := range req.Turns {
		role := goopenai.ChatMessageRoleUser
		if t.Role == llm.RoleModel {
			role = goopenai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	return msgs
}

func (c *Client) GenerateContent(ctx context.Context, req *llm.GenerationRequest) (*llm.GenerationResponse, error) {
	if req == nil || len(req.Turns) == 0 {
		return nil, &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeInvalidInput, Message: "no conversation turns provided"}
	}

	chatReq := goopenai.ChatCompletionRequest{Model: c.model, Messages: toMessages(req)}
	if req.JSONResponse {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		if pe := llm.ClassifyContextError(ctx, providerName, err); pe != nil {
			return nil, pe
		}
		return nil, &llm.ProviderError{Provider: providerName, Code: classify(err), Message: "chat completion failed", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeInvalidInput, Message: "no choices in response"}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, &llm.ProviderError{Provider: providerName, Code: llm.ErrCodeInvalidInput, Message: "empty response generated"}
	}

	return &llm.GenerationResponse{
		Content:   text,
		Provider:  providerName,
		Model:     c.model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

func classify(err error) string {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusUnauthorized:
			return llm.ErrCodeAPIKey
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return llm.ErrCodeRateLimit
		case apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500:
			return llm.ErrCodeInvalidInput
		}
	}
	return llm.ErrCodeServiceDown
}

func (c *Client) GetProviderName() string {
	return providerName
}
