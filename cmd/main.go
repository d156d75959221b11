package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Shubhojeet-Ghosh/elysium-agents/auth"
	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/handlers"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services/impl"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	if err := logging.Init(cfg.Server.Environment); err != nil {
		log.Fatal("Failed to initialize logging:", err)
	}
	defer logging.Sync()
	logger := logging.L()

	ctx := context.Background()

	// Mongo
	mongoClient, db, err := impl.NewMongoDatabase(ctx, &cfg.Mongo)
	if err != nil {
		logger.Fatalw("failed to connect to mongo", "error", err)
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()
	if cfg.Mongo.CreateIndexes {
		if err := impl.EnsureIndexes(ctx, db); err != nil {
			logger.Fatalw("failed to create mongo indexes", "error", err)
		}
	}

	// Redis (owner cache + visitor presence). A failed ping degrades to the
	// in-memory owner cache and disables presence.
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddress(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnw("redis unreachable, continuing without it", "error", err)
			_ = redisClient.Close()
			redisClient = nil
		}
	}
	cacheService := impl.NewCacheServiceWithRedis(redisClient, time.Duration(cfg.Redis.OwnerCacheTTL)*time.Second)
	defer cacheService.Close()
	visitorRegistry := impl.NewVisitorRegistry(redisClient)

	// Embeddings and vector store
	embeddingService := impl.NewEmbeddingService(&cfg.OpenAI)
	vectorClient, err := impl.NewQdrantVectorClient(&cfg.Qdrant, embeddingService.Dimensions())
	if err != nil {
		logger.Fatalw("failed to connect to qdrant", "error", err)
	}
	if cfg.Qdrant.CreateCollections {
		if err := vectorClient.EnsureCollections(ctx); err != nil {
			logger.Fatalw("failed to ensure qdrant collections", "error", err)
		}
	}

	// Fetching and indexing pipeline
	fetcherService, err := impl.NewFetcherService(&cfg.Fetcher)
	if err != nil {
		logger.Fatalw("failed to start fetcher", "error", err)
	}
	defer fetcherService.Close()
	metadataService := impl.NewMetadataService(&cfg.OpenAI)
	indexerService := impl.NewIndexerService(vectorClient, embeddingService, &cfg.Chunker)
	retrievalService := impl.NewRetrievalService(vectorClient, embeddingService)

	// Storage and document extraction
	objectStorage, err := impl.NewS3Storage(ctx, &cfg.AWS)
	if err != nil {
		logger.Fatalw("failed to initialize object storage", "error", err)
	}
	documentExtractor, err := impl.NewDocumentExtractor(ctx, &cfg.AWS, objectStorage)
	if err != nil {
		logger.Fatalw("failed to initialize document extractor", "error", err)
	}

	// Stores and domain services
	agentStore := impl.NewAgentStore(db)
	knowledgeStore := impl.NewKnowledgeStore(db)
	chatStore := impl.NewChatStore(db)
	quotaService := impl.NewQuotaService(db)

	agentService := impl.NewAgentService(
		agentStore, knowledgeStore, chatStore,
		fetcherService, metadataService, indexerService,
		cacheService, quotaService, objectStorage, documentExtractor,
		&cfg.Fetcher,
	)

	modelRegistry := impl.NewModelRegistry(&cfg.OpenAI, &cfg.Anthropic, &cfg.Groq, cfg.Chat.DefaultModel)
	enhancerService := impl.NewEnhancerService(&cfg.OpenAI)
	chatService := impl.NewChatService(
		agentStore, chatStore, retrievalService, enhancerService,
		modelRegistry, quotaService, &cfg.Chat,
	)

	agentHandlers := handlers.NewAgentHandlers(agentService, knowledgeStore)
	chatHandlers := handlers.NewChatHandlers(chatService, visitorRegistry)
	urlToolHandlers := handlers.NewURLToolHandlers(fetcherService)

	router := setupRouter(cfg, agentHandlers, chatHandlers, urlToolHandlers)

	srv := &http.Server{
		Addr:    cfg.GetServerAddress(),
		Handler: router,
	}

	go func() {
		logger.Infow("server starting", "address", cfg.GetServerAddress(), "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server forced to shutdown", "error", err)
	}
	logger.Info("server exited")
}

func setupRouter(cfg *config.Config, agentHandlers *handlers.AgentHandlers, chatHandlers *handlers.ChatHandlers, urlToolHandlers *handlers.URLToolHandlers) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Auth.AllowedOrigins) == 1 && cfg.Auth.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Auth.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Application-Passkey"}
	router.Use(cors.New(corsConfig))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "elysium-agents", "status": "ok"})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"service":   "elysium-agents",
		})
	})

	jwtValidator := auth.NewJWTValidator(cfg.Auth.JWTSecret)

	v1 := router.Group("/api/v1")

	// Owner-facing routes behind JWT auth.
	atlas := v1.Group("/atlas")
	atlas.Use(jwtValidator.Middleware())
	{
		atlas.POST("/pre-build-agent", agentHandlers.PreBuildAgent)
		atlas.POST("/build-agent", agentHandlers.BuildAgent)
		atlas.POST("/update-agent", agentHandlers.UpdateAgent)
		atlas.POST("/generate-presigned-urls", agentHandlers.GeneratePresignedURLs)

		atlas.GET("/agents", agentHandlers.ListAgents)
		atlas.GET("/agents/:agent_id", agentHandlers.GetAgentDetails)
		atlas.DELETE("/agents/:agent_id", agentHandlers.DeleteAgent)
		atlas.GET("/agents/:agent_id/visitors", chatHandlers.ListVisitors)

		atlas.POST("/get-agent-urls", agentHandlers.ListAgentURLs)
		atlas.POST("/get-agent-files", agentHandlers.ListAgentFiles)
		atlas.POST("/get-agent-custom-texts", agentHandlers.ListAgentCustomTexts)
		atlas.POST("/get-agent-qa-pairs", agentHandlers.ListAgentQAPairs)

		atlas.POST("/remove-agent-links", agentHandlers.RemoveAgentLinks)
		atlas.POST("/delete-agent-files", agentHandlers.DeleteAgentFiles)
		atlas.POST("/delete-agent-custom-data", agentHandlers.DeleteAgentCustomData)
	}

	// Visitor-facing chat routes. End users carry no JWT; the embedding site
	// authenticates with the shared application passkey.
	chat := v1.Group("/atlas")
	chat.Use(auth.PasskeyMiddleware(cfg.Auth.ApplicationPasskey))
	{
		chat.POST("/query-agent", chatHandlers.QueryAgent)
		chat.POST("/rotate-conversation-id", chatHandlers.RotateConversation)
		chat.POST("/visitor-online", chatHandlers.VisitorOnline)
		chat.POST("/visitor-offline", chatHandlers.VisitorOffline)
	}

	tools := v1.Group("/tools")
	tools.Use(jwtValidator.Middleware())
	{
		tools.POST("/ping-url", urlToolHandlers.PingURL)
		tools.POST("/extract-url-links", urlToolHandlers.ExtractLinks)
	}

	return router
}
