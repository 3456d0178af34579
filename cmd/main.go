package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/docchat-backend/internal/app"
	"github.com/yungbote/docchat-backend/internal/chunker"
	"github.com/yungbote/docchat-backend/internal/db"
	"github.com/yungbote/docchat-backend/internal/http/handlers"
	"github.com/yungbote/docchat-backend/internal/logger"
	"github.com/yungbote/docchat-backend/internal/platform/openai"
	"github.com/yungbote/docchat-backend/internal/repos"
	"github.com/yungbote/docchat-backend/internal/search"
	"github.com/yungbote/docchat-backend/internal/server"
	"github.com/yungbote/docchat-backend/internal/services"
	"github.com/yungbote/docchat-backend/internal/summarizer"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg := app.LoadConfig(log)

	// Database
	dbService, err := db.NewService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Error("Auto migration failed", "error", err)
		os.Exit(1)
	}
	gormDB := dbService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	chunkRepo := repos.NewChunkRepo(gormDB, log)
	summaryRepo := repos.NewSummaryRepo(gormDB, log)

	// Model client; the server still runs without it, on the local
	// summarizer and lexical search
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Warn("OpenAI client unavailable, degrading to local backends", "error", err)
		openaiClient = nil
	}

	// Core pipeline
	log.Info("Setting up Services from main...")
	chunkerService := chunker.New(chunker.Config{MaxTokensPerChunk: cfg.MaxTokensPerChunk}, log)

	var remoteBackend summarizer.Backend
	if openaiClient != nil {
		remoteBackend = summarizer.NewRemoteBackend(openaiClient, log)
	}
	batchSummarizer := summarizer.New(
		remoteBackend,
		summarizer.NewLocalBackend(),
		services.RepoCache{Repo: summaryRepo},
		log,
	)

	var embedder search.Embedder
	if openaiClient != nil {
		embedder = openaiClient
	}
	searchEngine := search.New(embedder, log)

	chunkService := services.NewChunkService(chunkRepo, openaiClient, log)
	summaryService := services.NewSummaryService(summaryRepo, batchSummarizer, log)
	conversationService := services.NewConversationService(searchEngine, openaiClient, log)

	// Handlers
	log.Info("Setting up Handlers from main...")
	documentHandler := handlers.NewDocumentHandler()
	chunkHandler := handlers.NewChunkHandler(chunkService, chunkerService)
	summaryHandler := handlers.NewSummaryHandler(summaryService)
	chatHandler := handlers.NewChatHandler(conversationService)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: documentHandler,
		ChunkHandler:    chunkHandler,
		SummaryHandler:  summaryHandler,
		ChatHandler:     chatHandler,
	})

	log.Info("Starting server...", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
