package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kem-osh/write-wellspring/internal/config"
	"github.com/kem-osh/write-wellspring/internal/core/ports"
	"github.com/kem-osh/write-wellspring/internal/core/usecase"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/embedding"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/extractor"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/llm/ollama"
	natsqueue "github.com/kem-osh/write-wellspring/internal/infrastructure/queue/nats"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/repository/postgres"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/resilience"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/storage/localfs"
	"github.com/kem-osh/write-wellspring/internal/infrastructure/vector/qdrant"
	"github.com/kem-osh/write-wellspring/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Uploads   *usecase.UploadQueue
	Documents ports.DocumentReader
	Pipeline  *metrics.PipelineMetrics

	closeFn func()
}

// New wires the upload pipeline and starts its queue. The context bounds the
// queue's workers; canceling it stops processing.
func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	staging, err := localfs.New(cfg.StagingPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init staging storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: cfg.RetryMaxAttempts,
		BreakerEnabled:   cfg.BreakerEnabled,
	})

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel)
	embedder := ollama.NewEmbedder(ollamaClient)
	vectors := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	indexer := embedding.NewIndexer(embedder, vectors, repo, executor, logger)

	var publisher ports.UploadEventPublisher
	closePublisher := func() {}
	if cfg.NATSURL != "" {
		bridge, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		publisher = bridge
		closePublisher = bridge.Close
	}

	pipeline := metrics.NewPipelineMetrics(service)
	processor := usecase.NewFileProcessor(staging, extractor.NewDispatcher(), repo, indexer)
	uploads := usecase.NewUploadQueue(usecase.QueueConfig{
		MaxConcurrent:     cfg.MaxConcurrentUploads,
		MaxFileSizeBytes:  cfg.MaxFileSizeBytes,
		AllowedExtensions: cfg.AllowedExtensions,
	}, staging, processor, publisher, pipeline, logger)
	uploads.Start(ctx)

	return &App{
		Config:    cfg,
		Uploads:   uploads,
		Documents: repo,
		Pipeline:  pipeline,

		closeFn: func() {
			closePublisher()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
