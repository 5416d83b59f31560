package llm

import (
	"context"
	"errors"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one entry of the alternating conversation sent to a provider.
type Turn struct {
	Role string
	Text string
}

type GenerationRequest struct {
	SystemInstruction string
	Turns             []Turn
	// JSONResponse asks the provider to return a bare JSON object.
	JSONResponse bool
	RequestID    string
}

type GenerationResponse struct {
	Content  string
	Provider string
	Model    string
	// LatencyMs is wall time of the upstream call.
	LatencyMs int64
}

// defines the interface for LLM providers
type Provider interface {
	GenerateContent(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error)
	GetProviderName() string
}

// represents an error from an LLM provider
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Common error codes
const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeRateLimit    = "rate_limit_exceeded"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeTimeout      = "timeout"
)

// IsUnavailable reports whether err means the provider could not answer in time
// or is down, as opposed to rejecting the request.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case ErrCodeTimeout, ErrCodeServiceDown, ErrCodeRateLimit:
			return true
		}
	}
	return false
}

// ClassifyContextError maps a cancelled or expired context to a timeout ProviderError.
func ClassifyContextError(ctx context.Context, provider string, err error) *ProviderError {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Provider: provider, Code: ErrCodeTimeout, Message: "request timed out", Err: err}
	}
	return nil
}
