package ingest

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"mfgdocs/config"
	"mfgdocs/database"
	"mfgdocs/model"
	"mfgdocs/parsers"
)

const defaultLogLimit = 200

// RunHandler ingests the configured source folder.
func RunHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		dir := config.GetConfig().SourceFolderPath
		if dir == "" {
			dir = svc.SourceDir()
		}
		if dir == "" {
			c.JSON(http.StatusBadRequest, gin.H{"message": "source folder is not configured"})
			return
		}
		c.JSON(http.StatusOK, svc.RunFolder(c.Request.Context(), dir))
	}
}

// UploadHandler ingests XML exports posted as multipart "files".
func UploadHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "multipart form expected"})
			return
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "no files uploaded"})
			return
		}

		status := model.IngestionStatus{
			SourceDir:  "upload",
			TotalFiles: len(headers),
			Results:    []model.IngestionResult{},
		}
		docs := readUploads(headers, &status)
		status = svc.ProcessDocuments(c.Request.Context(), docs, status)
		c.JSON(http.StatusOK, status)
	}
}

// readUploads loads every uploaded file. Files that cannot be read are
// reported in status as ERROR results.
func readUploads(headers []*multipart.FileHeader, status *model.IngestionStatus) []model.RawDocument {
	docs := make([]model.RawDocument, 0, len(headers))
	for _, fh := range headers {
		name := filepath.Base(fh.Filename)
		data, err := readUpload(fh)
		if err != nil {
			config.LogError(config.GetLogger(), "ingest", "UploadHandler", "read upload", name, err)
			status.Add(model.IngestionResult{
				FileName: name,
				FileType: model.FileTypeUnknown,
				Status:   model.StatusError,
				Message:  err.Error(),
			})
			continue
		}
		docs = append(docs, NewRawDocument(name, data))
	}
	return docs
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(parsers.SkipBOM(f))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

// LogsHandler lists the most recent processing log entries.
func LogsHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultLogLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"message": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		logs, err := database.ListProcessingLogs(db, limit)
		if err != nil {
			config.LogError(config.GetLogger(), "ingest", "LogsHandler", "list processing logs", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list processing logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
	}
}
