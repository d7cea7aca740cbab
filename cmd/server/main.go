package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hunterwarburton/webrag/internal/api"
	"github.com/hunterwarburton/webrag/internal/auth"
	"github.com/hunterwarburton/webrag/internal/config"
	"github.com/hunterwarburton/webrag/internal/core"
	"github.com/hunterwarburton/webrag/internal/embed"
	"github.com/hunterwarburton/webrag/internal/llm"
	"github.com/hunterwarburton/webrag/internal/logger"
	"github.com/hunterwarburton/webrag/internal/projection"
	"github.com/hunterwarburton/webrag/internal/rag"
)

func main() {
	// Parse command line flags
	debug := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", "config.yaml", "Path to an optional YAML config file")
	personaFile := flag.String("persona", "", "Path to persona.json file")
	flag.Parse()

	// Load environment variables from .env file
	envErr := godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init(*debug)
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger.Init(*debug || strings.EqualFold(cfg.LogLevel, "debug"))
	defer logger.Sync()

	if envErr != nil {
		logger.Info("Warning: No .env file found or error loading it")
	}

	// Override persona file path from command line if provided
	if *personaFile != "" {
		cfg.Persona.File = *personaFile
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	if logger.IsDebugEnabled() {
		logger.Debug("Configuration loaded: VectorStore=%s, Milvus=%s, Index=%s, Embedder=%s(%s), Model=%s, Corpus=%s, PersonaFile=%s",
			cfg.VectorStore.Type, cfg.VectorStore.Milvus.Address(), cfg.Index.Name, cfg.Embedder.Provider,
			cfg.Embedder.Model, cfg.LLM.Model, cfg.CorpusPath, cfg.Persona.File)
	}

	persona, err := llm.LoadPersona(cfg.Persona.File, cfg.Persona.Name)
	if err != nil {
		logger.Error("Failed to load persona configuration: %v", err)
		os.Exit(1)
	}
	if persona.Name != "" {
		logger.Info("Persona '%s' loaded successfully", persona.Name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Initializing services...")

	store, err := newVectorStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize vector store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	embedder := newEmbedder(cfg)

	llmService := llm.NewOpenRouterService(llm.OpenRouterConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})

	index := rag.NewIndexManager(store, embedder, rag.LifecycleOptions{
		CorpusPath:   cfg.CorpusPath,
		DeleteSettle: cfg.Index.DeleteSettle,
		CreateSettle: cfg.Index.CreateSettle,
	})
	retriever := rag.NewRetriever(store, embedder, cfg.Index.TopK)
	synthesizer := rag.NewSynthesizer(llm.NewPromptGenerator(persona), llmService)
	qa := rag.NewQAService(index, retriever, synthesizer)
	projector := projection.NewProjector(store, retriever, cfg.Index.SampleCap)
	policyService := auth.NewPolicyService(cfg.Auth.ResetAPIKeys)

	srv := api.NewServer(index, qa, projector, policyService)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("RAG API listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error: %v", err)
			cancel()
		}
	}()

	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down server: %v", err)
	}
	logger.Info("Server has been shut down")
}

func newVectorStore(ctx context.Context, cfg *config.Config) (core.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case "memory":
		logger.Warn("Using in-memory vector store; the index is lost on restart")
		return rag.NewMemoryStore(cfg.Index.Name, 0), nil
	default:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		return rag.NewMilvusStore(connectCtx, cfg.VectorStore.Milvus.Address(), cfg.Index.Name)
	}
}

func newEmbedder(cfg *config.Config) core.EmbedService {
	switch cfg.Embedder.Provider {
	case "local":
		logger.Warn("Using the local hashing embedder; similarity is lexical only")
		return embed.NewLocalEmbedder()
	default:
		return embed.NewOpenAIEmbedder(embed.OpenAIConfig{
			BaseURL:     cfg.Embedder.BaseURL,
			APIKey:      cfg.Embedder.APIKey,
			Model:       cfg.Embedder.Model,
			BatchSize:   cfg.Embedder.BatchSize,
			Concurrency: cfg.Embedder.Concurrency,
			Timeout:     cfg.Embedder.Timeout,
		})
	}
}
