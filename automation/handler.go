package automation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"mfgdocs/config"
	"mfgdocs/ingest"
)

// DownloadFunc has the signature of DownloadReports.
type DownloadFunc func(ctx context.Context, opts Options) ([]string, error)

// DownloadHandler fetches the configured portal reports into the source
// folder and ingests that folder.
func DownloadHandler(svc *ingest.Service, download DownloadFunc) gin.HandlerFunc {
	if download == nil {
		download = DownloadReports
	}
	return func(c *gin.Context) {
		opts := OptionsFromConfig(config.GetConfig())
		if opts.SaveDir == "" {
			opts.SaveDir = svc.SourceDir()
		}
		if err := opts.validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "portal download is not configured: " + err.Error()})
			return
		}

		paths, err := download(c.Request.Context(), opts)
		if err != nil {
			config.LogError(config.GetLogger(), "automation", "DownloadHandler", "download reports", opts.Reports, err)
			status := http.StatusBadGateway
			if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrNoReports) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"message": "portal download failed: " + err.Error(), "downloaded": paths})
			return
		}
		if len(paths) == 0 {
			c.JSON(http.StatusOK, gin.H{"status": "no_data", "message": "the portal had no new reports"})
			return
		}

		run := svc.RunFolder(c.Request.Context(), opts.SaveDir)
		c.JSON(http.StatusOK, gin.H{
			"status":     "success",
			"message":    fmt.Sprintf("downloaded %d reports", len(paths)),
			"downloaded": paths,
			"ingestion":  run,
		})
	}
}
