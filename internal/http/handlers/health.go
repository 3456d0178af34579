package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docchat-backend/internal/http/response"
)

// GET /health
func HealthCheck(c *gin.Context) {
	response.RespondOK(c, gin.H{"status": "ok"})
}
