package main

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"mfgdocs/config"
)

func GetConfigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, config.GetConfig())
	}
}

// SaveConfigHandler persists a new configuration. Storage and archive
// settings take effect on the next start; the log level applies at once.
func SaveConfigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var newCfg config.Config
		if err := c.ShouldBindJSON(&newCfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
			return
		}

		if err := validateFolderPath(newCfg.SourceFolderPath); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		if err := config.SaveConfig(newCfg); err != nil {
			var ve validator.ValidationErrors
			if errors.As(err, &ve) {
				c.JSON(http.StatusBadRequest, gin.H{"message": "invalid configuration", "fields": config.ValidationErrors(err)})
				return
			}
			config.LogError(config.GetLogger(), "main", "SaveConfigHandler", "save config", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to save configuration"})
			return
		}
		config.SetLogLevel(config.GetConfig().LogLevel)

		c.JSON(http.StatusOK, gin.H{"message": "configuration saved"})
	}
}

func validateFolderPath(path string) error {
	if path == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New("folder not found: " + path)
		}
		config.LogError(config.GetLogger(), "main", "validateFolderPath", "stat folder", path, err)
		return errors.New("could not check the folder path")
	}
	if !info.IsDir() {
		return errors.New("path is not a folder: " + path)
	}
	return nil
}
