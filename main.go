package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mfgdocs/archive"
	"mfgdocs/config"
	"mfgdocs/database"
	"mfgdocs/detect"
	"mfgdocs/ingest"
	"mfgdocs/reconcile"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithField("field", "config").Fatal("invalid configuration: " + err.Error())
	}
	config.SetLogLevel(cfg.LogLevel)

	logger.WithField("path", cfg.DatabasePath).Info("connecting to database")
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.WithField("field", "database").Fatal(err.Error())
	}
	defer db.Close()

	detector := detect.New(detect.DefaultRules())
	if cfg.DetectionRulesPath != "" {
		rules, err := detect.LoadRules(cfg.DetectionRulesPath)
		if err != nil {
			logger.WithField("field", "detect").Warn("using default detection rules: " + err.Error())
		}
		detector = detect.New(rules)
	}

	archiver, err := archive.New(cfg)
	if err != nil {
		logger.WithField("field", "archive").Fatal(err.Error())
	}

	svc := ingest.NewService(db, ingest.Options{
		SourceDir:          cfg.SourceFolderPath,
		Detector:           detector,
		Archiver:           archiver,
		Logger:             logger,
		MaxRawContentBytes: cfg.MaxRawContentBytes,
		QuantityTolerance:  cfg.QuantityTolerance,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(errorLogger(logger))
	r.Use(gin.Recovery())
	SetupRoutes(r, db, svc, reconcile.NewEngine(db))

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.ListenAndServe() }()
	logger.WithField("addr", cfg.ListenAddr).Info("server started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithField("field", "http").Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithField("field", "http").Error("graceful shutdown failed: " + err.Error())
	}
}

// errorLogger logs only requests that recorded gin errors.
func errorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.WithFields(logrus.Fields{"path": c.FullPath(), "status": c.Writer.Status()}).Error(c.Errors.String())
		}
	}
}
