package provider

import (
	"context"
)

// CompletionRequest is the uniform completion call shape shared by all
// backing providers.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

type CompletionResult struct {
	Text       string
	TokensUsed int
}

// Provider exposes the embed/complete capability of one backing vendor,
// bound to a single resolved credential. Calls are never retried here:
// upstream failures propagate as terminal errors for the request.
type Provider interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// Factory binds a provider to a per-request key. The credential waterfall
// decides which key funds the request; the factory turns it into a usable
// client.
type Factory interface {
	ForKey(key string) Provider
}
