package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/tutord/internal/config"
	"github.com/fyrsmithlabs/tutord/internal/consent"
	"github.com/fyrsmithlabs/tutord/internal/embeddings"
	"github.com/fyrsmithlabs/tutord/internal/httpapi"
	"github.com/fyrsmithlabs/tutord/internal/intent"
	"github.com/fyrsmithlabs/tutord/internal/llm"
	"github.com/fyrsmithlabs/tutord/internal/logging"
	"github.com/fyrsmithlabs/tutord/internal/memory"
	"github.com/fyrsmithlabs/tutord/internal/reranker"
	"github.com/fyrsmithlabs/tutord/internal/retrieval"
	"github.com/fyrsmithlabs/tutord/internal/telemetry"
	"github.com/fyrsmithlabs/tutord/internal/tutor"
	"github.com/fyrsmithlabs/tutord/internal/vectorstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tutord daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	telemetryProvider, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := telemetryProvider.Shutdown(context.Background()); err != nil {
			logger.Warn(context.Background(), "telemetry shutdown failed", zap.Error(err))
		}
	}()

	embedder, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider: cfg.Embeddings.Provider,
		Model:    cfg.Embeddings.Model,
		BaseURL:  cfg.Embeddings.BaseURL,
		CacheDir: cfg.Embeddings.CacheDir,
	})
	if err != nil {
		return fmt.Errorf("init embeddings: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	store, collection, err := buildStore(cfg, embedder, logger)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	defer func() { _ = store.Close() }()

	records, err := memory.NewRecordStore(store, collection, logger)
	if err != nil {
		return err
	}
	if err := records.EnsureCollection(ctx, embedder.Dimension()); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	completions, err := llm.NewClient(llm.Config{
		Provider: cfg.Completion.Provider,
		Model:    cfg.Completion.Model,
		APIKey:   cfg.Completion.APIKey,
		BaseURL:  cfg.Completion.BaseURL,
		Timeout:  cfg.Completion.Timeout,
	})
	if err != nil {
		return fmt.Errorf("init completion client: %w", err)
	}

	var moderator llm.Moderator
	if cfg.Moderation.APIKey != "" {
		client, err := llm.NewModerationClient(llm.ModerationConfig{
			APIKey:  cfg.Moderation.APIKey,
			BaseURL: cfg.Moderation.BaseURL,
			Model:   cfg.Moderation.Model,
			Timeout: cfg.Moderation.Timeout,
		})
		if err != nil {
			return fmt.Errorf("init moderation client: %w", err)
		}
		moderator = client
	} else {
		logger.Warn(ctx, "moderation disabled: no API key configured")
	}

	gate, err := consent.NewConfigGate(cfg.Consent.DefaultLevel, cfg.Consent.Students, logger)
	if err != nil {
		return fmt.Errorf("init consent gate: %w", err)
	}

	classifier, err := intent.NewClassifier(completions, moderator, logger)
	if err != nil {
		return err
	}

	ranker, err := reranker.NewRecencyReranker(cfg.Retrieval.RecencyAlpha, cfg.Retrieval.DecayRate)
	if err != nil {
		return fmt.Errorf("init reranker: %w", err)
	}

	engine, err := retrieval.NewEngine(records, ranker, retrieval.Config{
		Limit:               cfg.Retrieval.Limit,
		SimilarityThreshold: cfg.Retrieval.SimilarityThreshold,
		DefaultDifficulty:   cfg.Retrieval.DefaultDifficulty,
	}, logger)
	if err != nil {
		return err
	}

	tutorSvc, err := tutor.NewService(gate, classifier, engine, records, completions, tutor.Config{
		ContextLimit: cfg.Retrieval.ContextLimit,
	}, logger)
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(tutorSvc, httpapi.Config{Port: cfg.Server.Port}, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	logCfg.Format = cfg.Logging.Format

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	logCfg.Level = level

	return logging.NewLogger(logCfg)
}

func buildStore(cfg *config.Config, embedder embeddings.Provider, logger *logging.Logger) (vectorstore.Store, string, error) {
	switch cfg.VectorStore.Provider {
	case "chromem":
		store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
			Path:              cfg.VectorStore.Chromem.Path,
			Compress:          cfg.VectorStore.Chromem.Compress,
			DefaultCollection: cfg.VectorStore.Chromem.Collection,
			VectorSize:        cfg.VectorStore.Chromem.VectorSize,
		}, embedder, logger.Underlying())
		if err != nil {
			return nil, "", err
		}
		return store, cfg.VectorStore.Chromem.Collection, nil
	case "qdrant":
		store, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			Host:           cfg.VectorStore.Qdrant.Host,
			Port:           cfg.VectorStore.Qdrant.Port,
			CollectionName: cfg.VectorStore.Qdrant.Collection,
			VectorSize:     uint64(cfg.VectorStore.Qdrant.VectorSize),
			UseTLS:         cfg.VectorStore.Qdrant.UseTLS,
		}, embedder)
		if err != nil {
			return nil, "", err
		}
		return store, cfg.VectorStore.Qdrant.Collection, nil
	default:
		return nil, "", fmt.Errorf("unknown vectorstore provider %q", cfg.VectorStore.Provider)
	}
}
