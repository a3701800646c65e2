package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/askbase/knowledge-backend/internal/api"
	askapi "github.com/askbase/knowledge-backend/internal/api/ask"
	exportapi "github.com/askbase/knowledge-backend/internal/api/export"
	"github.com/askbase/knowledge-backend/internal/api/middleware"
	sourceapi "github.com/askbase/knowledge-backend/internal/api/source"
	"github.com/askbase/knowledge-backend/internal/chunker"
	"github.com/askbase/knowledge-backend/internal/config"
	"github.com/askbase/knowledge-backend/internal/credits"
	"github.com/askbase/knowledge-backend/internal/indexer"
	"github.com/askbase/knowledge-backend/internal/integration/auth"
	"github.com/askbase/knowledge-backend/internal/integration/transcribe"
	"github.com/askbase/knowledge-backend/internal/integration/webfetch"
	"github.com/askbase/knowledge-backend/internal/pkg/formatter"
	"github.com/askbase/knowledge-backend/internal/pkg/validator"
	"github.com/askbase/knowledge-backend/internal/provider"
	"github.com/askbase/knowledge-backend/internal/repository"
	"github.com/askbase/knowledge-backend/internal/retriever"
	"github.com/askbase/knowledge-backend/internal/usecase/ask"
	"github.com/askbase/knowledge-backend/internal/usecase/ingest"
	"github.com/askbase/knowledge-backend/internal/vector"
	"github.com/askbase/knowledge-backend/internal/vector/memory"
	"github.com/askbase/knowledge-backend/internal/vector/qdrant"
	"go.uber.org/zap"
)

const (
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	pageFetchTimeout        = 30 * time.Second
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize repositories
	creditsRepo := repository.NewCreditsPostgres(db)
	teamRepo := repository.NewTeamPostgres(db)
	conversationRepo := repository.NewConversationPostgres(db)
	logger.Info("Repositories initialized")

	// Initialize the vector collection
	var collection vector.Collection
	var closeVector func() error

	if cfg.EnableMocks {
		logger.Info("Using in-memory vector collection")
		collection = memory.New()
	} else {
		qdrantColl, err := qdrant.New(cfg.QdrantCfg.Host, cfg.QdrantCfg.Port, cfg.QdrantCfg.Collection, cfg.QdrantCfg.VectorSize)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect qdrant: %w", err)
		}
		if err := qdrantColl.EnsureCollection(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure qdrant collection: %w", err)
		}
		collection = qdrantColl
		closeVector = qdrantColl.Close
		logger.Info("Qdrant collection ready",
			zap.String("collection", cfg.QdrantCfg.Collection),
			zap.Int("vector_size", cfg.QdrantCfg.VectorSize),
		)
	}

	// Initialize the model provider factory
	providers, err := setupProviders(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize external service connectors (with mock support)
	var transcriber ingest.Transcriber
	var verifier middleware.TokenVerifier

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		transcriber = transcribe.NewMockConnector(logger)
		verifier = auth.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")
		transcriber = transcribe.NewConnector(cfg.TranscribeConnectorCfg, logger)
		verifier = auth.NewConnector(cfg.AuthConnectorCfg, logger)
	}

	fetcher := webfetch.NewFetcher(pageFetchTimeout, logger)

	// Initialize validators
	fileValidator := validator.NewFileValidator(cfg.FileUploadCfg)
	logger.Info("Validators initialized")

	// Initialize the credential resolver
	resolver := credits.NewResolver(teamRepo, creditsRepo, cfg.ProviderCfg.ServerKey, logger)

	// Initialize use cases
	ingestUC := ingest.NewUsecase(
		chunker.New(chunker.DefaultTargetSize),
		indexer.New(logger),
		transcriber,
		resolver,
		providers,
		collection,
		logger,
	)

	askUC := ask.NewUsecase(
		retriever.New(retriever.NoopExpander(), logger),
		resolver,
		providers,
		collection,
		conversationRepo,
		logger,
	)
	logger.Info("Use cases initialized")

	// Setup API handlers
	askHandler := askapi.NewHandler(askUC)
	sourceHandler := sourceapi.NewHandler(ingestUC, fetcher, fileValidator)
	exportHandler := exportapi.NewHandler(askUC, formatter.NewFactory())
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(askHandler, sourceHandler, exportHandler, verifier, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:      server,
		db:          db,
		closeVector: closeVector,
		logger:      logger,
	}, nil
}

// setupProviders builds the model provider factory named in the config. The
// factory binds per-request keys, so the same instance serves BYOK, team
// and server-funded calls.
func setupProviders(cfg *config.Config, logger *zap.Logger) (provider.Factory, error) {
	if cfg.EnableMocks {
		logger.Info("Using mock model provider")
		return provider.NewMockFactory(cfg.QdrantCfg.VectorSize, logger), nil
	}

	switch cfg.ProviderCfg.Name {
	case "openai":
		baseURL := cfg.ProviderCfg.BaseURL
		if baseURL == "" {
			baseURL = defaultOpenAIBaseURL
		}
		return provider.NewOpenAIFactory(provider.OpenAIConfig{
			BaseURL:        baseURL,
			EmbeddingModel: cfg.ProviderCfg.EmbeddingModel,
			DefaultModel:   cfg.ProviderCfg.CompletionModel,
		}, provider.NewOpenAIConnector(baseURL, logger)), nil
	case "anthropic":
		baseURL := cfg.ProviderCfg.BaseURL
		if baseURL == "" {
			baseURL = defaultAnthropicBaseURL
		}
		return provider.NewAnthropicFactory(provider.AnthropicConfig{
			BaseURL:      baseURL,
			DefaultModel: cfg.ProviderCfg.CompletionModel,
		}, provider.NewAnthropicConnector(baseURL, logger)), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.ProviderCfg.Name)
	}
}
