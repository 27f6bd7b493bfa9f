package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"researchrag/internal/ai"
	"researchrag/internal/app"
	"researchrag/internal/config"
	"researchrag/internal/model"
	"researchrag/internal/pkg/logger"
	"researchrag/internal/pkg/textchunk"
	postgresClient "researchrag/internal/platform/postgres"
	rabbitmqClient "researchrag/internal/platform/rabbitmq"
	redisClient "researchrag/internal/platform/redis"
	"researchrag/internal/repository"
	"researchrag/internal/worker"
)

// App wires config, infrastructure clients, and the ingest worker. Services
// and handlers are assembled per-router from these pieces.
type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Ingestion    *app.IngestionService
	IngestWorker *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log := logger.New(cfg.App.LogFile, cfg.App.Env == "prod")

	db, err := postgresClient.New(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&model.Document{},
		&model.Chunk{},
		&model.ChatSession{},
		&model.Message{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	embedder := ai.NewEmbeddingService(ai.NewOpenAICompatibleClient(), ai.EmbeddingConfig{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
	}, log)

	ingestion := app.NewIngestionService(
		repository.NewDocumentRepository(db),
		repository.NewChunkRepository(db),
		embedder,
		textchunk.New(cfg.RAG.ChunkTargetTokens, cfg.RAG.ChunkOverlapTokens),
		cfg.ImageDir(),
		log,
	)

	ingestWorker := worker.NewIngestWorker(mqConn, ingestion, cfg.RabbitMQ.IngestQueue, log)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:       cfg,
		Log:          log,
		DB:           db,
		Redis:        redisCli,
		MQConn:       mqConn,
		Ingestion:    ingestion,
		IngestWorker: ingestWorker,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return closeErr
}
