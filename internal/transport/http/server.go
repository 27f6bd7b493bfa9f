package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"researchrag/internal/ai"
	appsvc "researchrag/internal/app"
	"researchrag/internal/bootstrap"
	"researchrag/internal/cache"
	"researchrag/internal/platform/rabbitmq"
	"researchrag/internal/repository"
	"researchrag/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.Static("/static", app.Config.App.StaticDir)

	docRepo := repository.NewDocumentRepository(app.DB)
	chunkRepo := repository.NewChunkRepository(app.DB)
	sessionRepo := repository.NewChatSessionRepository(app.DB)
	messageRepo := repository.NewMessageRepository(app.DB)

	embedder := ai.NewEmbeddingService(ai.NewOpenAICompatibleClient(), ai.EmbeddingConfig{
		BaseURL:   app.Config.Embedding.BaseURL,
		APIKey:    app.Config.Embedding.APIKey,
		Model:     app.Config.Embedding.Model,
		Dimension: app.Config.Embedding.Dimension,
		BatchSize: app.Config.Embedding.BatchSize,
	}, app.Log)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)

	documentService := appsvc.NewDocumentService(
		docRepo,
		chunkRepo,
		app.Ingestion,
		rabbitmq.NewIngestPublisher(app.MQConn, app.Config.RabbitMQ.IngestQueue),
		app.Config.App.UploadDir,
		app.Config.ImageDir(),
		app.Log,
	)
	retrievalService := appsvc.NewRetrievalService(chunkRepo, embedder, app.Config.RAG.TopK, app.Log)
	chatService := appsvc.NewChatService(
		sessionRepo,
		messageRepo,
		docRepo,
		chunkRepo,
		retrievalService,
		ai.NewOpenAICompatibleClient(),
		ai.ChatConfig{
			BaseURL: app.Config.LLM.BaseURL,
			APIKey:  app.Config.LLM.APIKey,
			Model:   app.Config.LLM.Model,
		},
		historyCache,
		app.Config.RAG.HistoryLimit,
		app.Config.RAG.HistoryTruncateChars,
		app.Log,
	)

	documentHandler := handler.NewDocumentHandler(documentService, app.Config.App.MaxUploadMB)
	chatHandler := handler.NewChatHandler(chatService)

	v1 := router.Group("/api/v1")

	docGroup := v1.Group("/documents")
	docGroup.POST("/upload", documentHandler.Upload)
	docGroup.GET("", documentHandler.List)
	docGroup.GET("/:id", documentHandler.Get)
	docGroup.GET("/:id/chunks", documentHandler.Chunks)
	docGroup.GET("/:id/chunks/:chunk_id", documentHandler.GetChunk)
	docGroup.POST("/:id/process", documentHandler.Process)
	docGroup.DELETE("/:id", documentHandler.Delete)

	chatGroup := v1.Group("/chat")
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.GET("/sessions/:id", chatHandler.GetSession)
	chatGroup.DELETE("/sessions/:id", chatHandler.DeleteSession)
	chatGroup.POST("/sessions/:id/documents/:document_id", chatHandler.AttachDocument)
	chatGroup.GET("/sessions/:id/history", chatHandler.GetHistory)
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.GET("/chunks/:id", chatHandler.GetChunk)

	return router
}
