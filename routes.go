package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"mfgdocs/automation"
	"mfgdocs/ingest"
	"mfgdocs/reconcile"
	"mfgdocs/records"
	"mfgdocs/reprocess"
)

func SetupRoutes(r *gin.Engine, db *sqlx.DB, svc *ingest.Service, engine *reconcile.Engine) {
	r.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	api.POST("/ingestion/run", ingest.RunHandler(svc))
	api.POST("/ingestion/upload", ingest.UploadHandler(svc))
	api.GET("/ingestion/logs", ingest.LogsHandler(db))

	api.GET("/reconciliation", reconcile.Handler(engine))

	api.DELETE("/batches/:id", records.DeleteBatchHandler(db))
	api.DELETE("/formulas/:id", records.DeleteFormulaHandler(db))
	api.POST("/logs/cleanup", records.CleanupHandler(db))

	api.POST("/requisitions/revalidate", reprocess.RevalidateHandler(db))

	api.GET("/config", GetConfigHandler())
	api.POST("/config", SaveConfigHandler())

	api.POST("/automation/download", automation.DownloadHandler(svc, nil))
}
