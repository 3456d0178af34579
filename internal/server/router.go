package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docchat-backend/internal/http/handlers"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	ChunkHandler    *handlers.ChunkHandler
	SummaryHandler  *handlers.SummaryHandler
	ChatHandler     *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/health", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/chat", cfg.ChatHandler.Chat)

		v4 := api.Group("/v4")
		{
			v4.POST("/documents/extract", cfg.DocumentHandler.Extract)
			v4.POST("/chunks/process", cfg.ChunkHandler.Process)
			v4.GET("/chunks", cfg.ChunkHandler.Get)
			v4.PUT("/chunks", cfg.ChunkHandler.Update)
			v4.POST("/generate_embeddings", cfg.ChunkHandler.GenerateEmbeddings)
			v4.DELETE("/clear_chunks", cfg.ChunkHandler.Clear)
			v4.GET("/chunk_stats", cfg.ChunkHandler.Stats)
			v4.POST("/summarize_chunks", cfg.SummaryHandler.Summarize)
			v4.POST("/save_summaries", cfg.SummaryHandler.Save)
		}
	}

	return router
}
