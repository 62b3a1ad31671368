// Package router wires the document QA HTTP routes.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docrag/internal/rag/handler"
	"github.com/kart-io/docrag/internal/rag/metrics"
)

// Register registers the service routes on the gin engine.
func Register(engine *gin.Engine, ragHandler *handler.RAGHandler) {
	logger.Info("Registering routes...")

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, metrics.Get().Export("docrag", "rag"))
	})

	v1 := engine.Group("/v1")
	{
		rag := v1.Group("/rag")
		{
			rag.POST("/upload", ragHandler.Upload)
			rag.POST("/ingest", ragHandler.Ingest)
			rag.GET("/progress/:file_id", ragHandler.Progress)
			rag.POST("/query", ragHandler.Query)
			rag.DELETE("/files/:file_id", ragHandler.Remove)
			rag.GET("/stats", ragHandler.Stats)
		}
	}

	logger.Info("HTTP routes registered")
}
