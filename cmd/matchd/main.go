package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/jobgrid/matchd/internal/cache"
	"github.com/jobgrid/matchd/internal/config"
	"github.com/jobgrid/matchd/internal/embedder"
	"github.com/jobgrid/matchd/internal/indexer"
	"github.com/jobgrid/matchd/internal/llm"
	"github.com/jobgrid/matchd/internal/recommend"
	"github.com/jobgrid/matchd/internal/repository"
	"github.com/jobgrid/matchd/internal/repository/postgres"
	"github.com/jobgrid/matchd/internal/retriever"
	"github.com/jobgrid/matchd/internal/scorer"
	"github.com/jobgrid/matchd/internal/server"
	"github.com/jobgrid/matchd/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting match service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
	)

	// Initialize PostgreSQL
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL")

	// Initialize repositories
	jobRepo := postgres.NewJobRepo(db)
	profileRepo := postgres.NewProfileRepo(db)
	applicationRepo := postgres.NewApplicationRepo(db)

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(ctx, cfg.QdrantGRPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectorStore.Close()
	slog.Info("connected to Qdrant")

	// Embedder: hosted primary with a local fallback
	emb := buildEmbedder(cfg)
	slog.Info("initialized embedder", "model", emb.ModelName(), "dimension", emb.Dimension())

	// Relevance scorer (optional; recommendations degrade to
	// similarity-only ranking without it)
	relevance, err := buildScorer(ctx, cfg)
	if err != nil {
		return err
	}

	// Recommendation cache
	responseCache, err := buildCache(ctx, cfg)
	if err != nil {
		return err
	}

	// Index sync pipeline
	ix := indexer.New(emb, vectorStore, jobRepo, profileRepo,
		indexer.WithConcurrency(cfg.SyncConcurrency),
		indexer.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.SyncRateLimit), 1)),
		indexer.WithLogger(slog.Default()),
	)

	scheduler := indexer.NewScheduler(ix, cfg.SyncSchedule, slog.Default())
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sync scheduler: %w", err)
	}
	defer scheduler.Stop()

	// Recommendation service
	ret := retriever.New(emb, vectorStore, jobRepo, profileRepo, slog.Default())

	opts := []recommend.Option{
		recommend.WithWeights(recommend.Weights{Vector: cfg.VectorWeight, LLM: cfg.LLMWeight}),
		recommend.WithScoreSliceSize(cfg.ScoreSliceSize),
		recommend.WithDefaultLimit(cfg.DefaultLimit),
		recommend.WithLogger(slog.Default()),
	}
	if relevance != nil {
		opts = append(opts, recommend.WithScorer(relevance))
	}
	if responseCache != nil {
		opts = append(opts, recommend.WithCache(responseCache, cfg.CacheTTL))
	}
	svc := recommend.NewService(ret, jobRepo, profileRepo, applicationRepo, opts...)

	// HTTP server
	handler := server.NewHandler(svc, ix, db.Pool.Ping, slog.Default())
	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		AdminAPIKey:    cfg.AdminAPIKey,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
	}, handler)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// buildEmbedder wires the hosted OpenAI embedder with the local Ollama
// fallback. Without an OpenAI key the service runs on Ollama alone.
func buildEmbedder(cfg *config.Config) embedder.Embedder {
	ollama := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})

	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY not set, embedding with Ollama only")
		return ollama
	}

	openai := embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
		APIKey:    cfg.OpenAIAPIKey,
		Model:     cfg.OpenAIEmbeddingModel,
		Dimension: cfg.OpenAIDimension,
		Timeout:   cfg.EmbedTimeout,
	})

	return embedder.NewFallback(openai, ollama, slog.Default())
}

// buildScorer selects the LLM backend for relevance scoring. Returns nil
// when no backend is configured.
func buildScorer(ctx context.Context, cfg *config.Config) (scorer.Scorer, error) {
	var llmClient llm.LLM

	switch cfg.LLMBackend {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			slog.Warn("GEMINI_API_KEY not set, LLM re-ranking disabled")
			return nil, nil
		}
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		llmClient = client
	case "ollama":
		llmClient = llm.NewOllamaClient(
			llm.WithBaseURL(cfg.OllamaURL),
			llm.WithModel(cfg.OllamaLLMModel),
		)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND %q", cfg.LLMBackend)
	}

	slog.Info("initialized relevance scorer", "backend", cfg.LLMBackend, "model", llmClient.ModelName())

	return scorer.NewLLMScorer(llmClient,
		scorer.WithParallel(cfg.ScoreParallel),
		scorer.WithCallTimeout(cfg.ScoreTimeout),
		scorer.WithLogger(slog.Default()),
	), nil
}

// buildCache returns the Redis cache when configured, otherwise an
// in-process cache.
func buildCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(), nil
	}
	redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	slog.Info("connected to Redis")
	return redisCache, nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ repository.JobRepository         = (*postgres.JobRepo)(nil)
	_ repository.ProfileRepository     = (*postgres.ProfileRepo)(nil)
	_ repository.ApplicationRepository = (*postgres.ApplicationRepo)(nil)
	_ vectorstore.VectorStore          = (*vectorstore.QdrantStore)(nil)
	_ embedder.Embedder                = (*embedder.Fallback)(nil)
	_ scorer.Scorer                    = (*scorer.LLMScorer)(nil)
	_ recommend.Retriever              = (*retriever.Retriever)(nil)
)
