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
	openAIName              = "openai"
	openAIEmbeddingsPath    = "/v1/embeddings"
	openAICompletionsPath   = "/v1/chat/completions"
	defaultEmbeddingModel   = "text-embedding-3-small"
	defaultCompletionsModel = "gpt-4o-mini"
)

// OpenAIFactory builds OpenAI-backed providers sharing one HTTP client.
type OpenAIFactory struct {
	connector      *pkghttp.Connector
	embeddingModel string
	defaultModel   string
}

type OpenAIConfig struct {
	BaseURL        string
	EmbeddingModel string
	DefaultModel   string
}

func NewOpenAIFactory(cfg OpenAIConfig, connector *pkghttp.Connector) *OpenAIFactory {
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = defaultCompletionsModel
	}
	return &OpenAIFactory{
		connector:      connector,
		embeddingModel: embeddingModel,
		defaultModel:   defaultModel,
	}
}

func (f *OpenAIFactory) ForKey(key string) Provider {
	return &openAIProvider{factory: f, key: key}
}

type openAIProvider struct {
	factory *OpenAIFactory
	key     string
}

func (p *openAIProvider) Name() string { return openAIName }

type openAIEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *openAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openAIEmbeddingRequest{
		Model: p.factory.embeddingModel,
		Input: []string{text},
	}

	var resp openAIEmbeddingResponse
	err := p.factory.connector.DoRequest(ctx, http.MethodPost, openAIEmbeddingsPath, req, &resp,
		pkghttp.WithHeader("Authorization", "Bearer "+p.key),
	)
	if err != nil {
		return nil, &entity.UpstreamProviderError{Provider: openAIName, Op: "embed", Err: err}
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &entity.UpstreamProviderError{
			Provider: openAIName, Op: "embed",
			Err: fmt.Errorf("empty embedding in response"),
		}
	}
	return resp.Data[0].Embedding, nil
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *openAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = p.factory.defaultModel
	}

	body := openAIChatRequest{
		Model: model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp openAIChatResponse
	err := p.factory.connector.DoRequest(ctx, http.MethodPost, openAICompletionsPath, body, &resp,
		pkghttp.WithHeader("Authorization", "Bearer "+p.key),
	)
	if err != nil {
		return nil, &entity.UpstreamProviderError{Provider: openAIName, Op: "complete", Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &entity.UpstreamProviderError{
			Provider: openAIName, Op: "complete",
			Err: fmt.Errorf("no choices in response"),
		}
	}

	return &CompletionResult{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// NewOpenAIConnector builds the shared HTTP client for the OpenAI API.
func NewOpenAIConnector(baseURL string, logger *zap.Logger) *pkghttp.Connector {
	return pkghttp.NewConnector(
		&pkghttp.ConnectorConfig{BaseURL: baseURL, Logger: logger},
		pkghttp.WithRequestLogging(),
	)
}

var _ Factory = (*OpenAIFactory)(nil)
