package provider

import (
	"context"
	"hash/fnv"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockFactory produces a provider with deterministic embeddings and a
// canned completion, so the full pipeline runs without any vendor account.
type MockFactory struct {
	dimension int
	logger    *zap.Logger
}

func NewMockFactory(dimension int, logger *zap.Logger) *MockFactory {
	return &MockFactory{
		dimension: dimension,
		logger:    logger,
	}
}

func (f *MockFactory) ForKey(string) Provider {
	return &mockProvider{factory: f}
}

type mockProvider struct {
	factory *MockFactory
}

func (p *mockProvider) Name() string { return "mock" }

// Embed hashes character trigrams into a fixed-size vector. Similar texts
// land near each other, which is enough for retrieval tests.
func (p *mockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.factory.dimension)

	runes := []rune(text)
	for i := 0; i+2 < len(runes); i++ {
		h := fnv.New32a()
		h.Write([]byte(string(runes[i : i+3])))
		vec[int(h.Sum32())%p.factory.dimension]++
	}

	ctxzap.Debug(ctx, "[MOCK] embedded text", zap.Int("length", len(text)))
	return vec, nil
}

func (p *mockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	ctxzap.Info(ctx, "[MOCK] completing prompt",
		zap.Int("system_length", len(req.SystemPrompt)),
		zap.Int("user_length", len(req.UserPrompt)),
		zap.Float64("temperature", req.Temperature),
	)

	answer := "This is a mock answer grounded in the provided context [1]. Enable a real provider to get actual completions."
	return &CompletionResult{Text: answer, TokensUsed: len(req.UserPrompt) / 4}, nil
}
