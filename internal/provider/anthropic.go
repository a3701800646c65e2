package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/askbase/knowledge-backend/internal/entity"
	pkghttp "github.com/askbase/knowledge-backend/pkg/http"
	"go.uber.org/zap"
)

const (
	anthropicName         = "anthropic"
	anthropicMessagesPath = "/v1/messages"
	anthropicVersion      = "2023-06-01"
	anthropicDefaultModel = "claude-3-5-haiku-latest"
)

// AnthropicFactory builds Anthropic-backed providers. Anthropic has no
// embeddings endpoint, so Embed always fails; deployments using Anthropic
// for completions pair it with an OpenAI embedding provider.
type AnthropicFactory struct {
	connector    *pkghttp.Connector
	defaultModel string
}

type AnthropicConfig struct {
	BaseURL      string
	DefaultModel string
}

func NewAnthropicFactory(cfg AnthropicConfig, connector *pkghttp.Connector) *AnthropicFactory {
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = anthropicDefaultModel
	}
	return &AnthropicFactory{connector: connector, defaultModel: defaultModel}
}

func (f *AnthropicFactory) ForKey(key string) Provider {
	return &anthropicProvider{factory: f, key: key}
}

type anthropicProvider struct {
	factory *AnthropicFactory
	key     string
}

func (p *anthropicProvider) Name() string { return anthropicName }

func (p *anthropicProvider) Embed(ctx context.Context, _ string) ([]float32, error) {
	return nil, &entity.UpstreamProviderError{
		Provider: anthropicName, Op: "embed",
		Err: fmt.Errorf("embeddings are not supported by this provider"),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (p *anthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = p.factory.defaultModel
	}

	body := anthropicRequest{
		Model:       model,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp anthropicResponse
	err := p.factory.connector.DoRequest(ctx, http.MethodPost, anthropicMessagesPath, body, &resp,
		pkghttp.WithHeader("x-api-key", p.key),
		pkghttp.WithHeader("anthropic-version", anthropicVersion),
	)
	if err != nil {
		return nil, &entity.UpstreamProviderError{Provider: anthropicName, Op: "complete", Err: err}
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, &entity.UpstreamProviderError{
			Provider: anthropicName, Op: "complete",
			Err: fmt.Errorf("no text content in response"),
		}
	}

	return &CompletionResult{
		Text:       text,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// NewAnthropicConnector builds the shared HTTP client for the Anthropic API.
func NewAnthropicConnector(baseURL string, logger *zap.Logger) *pkghttp.Connector {
	return pkghttp.NewConnector(
		&pkghttp.ConnectorConfig{BaseURL: baseURL, Logger: logger},
		pkghttp.WithRequestLogging(),
	)
}

var _ Factory = (*AnthropicFactory)(nil)
