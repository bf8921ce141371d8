package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	SourceFolderPath   string   `json:"sourceFolderPath"`
	DatabasePath       string   `json:"databasePath" validate:"required"`
	ArchiveMode        string   `json:"archiveMode" validate:"oneof=none disk s3"`
	ArchiveDir         string   `json:"archiveDir" validate:"required_if=ArchiveMode disk"`
	S3Bucket           string   `json:"s3Bucket" validate:"required_if=ArchiveMode s3"`
	S3Region           string   `json:"s3Region"`
	S3Endpoint         string   `json:"s3Endpoint"`
	S3AccessKey        string   `json:"-"`
	S3SecretKey        string   `json:"-"`
	MaxRawContentBytes int64    `json:"maxRawContentBytes" validate:"gt=0"`
	QuantityTolerance  float64  `json:"quantityTolerance" validate:"gt=0"`
	DetectionRulesPath string   `json:"detectionRulesPath"`
	LogLevel           string   `json:"logLevel" validate:"oneof=debug info warn error"`
	ListenAddr         string   `json:"listenAddr"`
	PortalURL          string   `json:"portalURL" validate:"omitempty,url"`
	PortalUserID       string   `json:"portalUserID"`
	PortalPassword     string   `json:"portalPassword"`
	PortalReports      []string `json:"portalReports"`
}

const (
	DefaultMaxRawContentBytes = 15 << 20
	DefaultQuantityTolerance  = 0.01
)

var (
	cfg      Config
	mu       sync.RWMutex
	validate = validator.New()
)

var configFilePath = "./mfgdocs_config.json"

func defaults() Config {
	return Config{
		DatabasePath:       "./mfgdocs.db",
		ArchiveMode:        "disk",
		ArchiveDir:         "archive/xml",
		MaxRawContentBytes: DefaultMaxRawContentBytes,
		QuantityTolerance:  DefaultQuantityTolerance,
		LogLevel:           "info",
		ListenAddr:         ":8080",
	}
}

func applyDefaults(c *Config) {
	d := defaults()
	if c.DatabasePath == "" {
		c.DatabasePath = d.DatabasePath
	}
	if c.ArchiveMode == "" {
		c.ArchiveMode = d.ArchiveMode
	}
	if c.ArchiveDir == "" {
		c.ArchiveDir = d.ArchiveDir
	}
	if c.MaxRawContentBytes == 0 {
		c.MaxRawContentBytes = d.MaxRawContentBytes
	}
	if c.QuantityTolerance == 0 {
		c.QuantityTolerance = d.QuantityTolerance
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
}

// applyEnv lets deployment environment (and an optional .env file) override
// the JSON file.
func applyEnv(c *Config) {
	set := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set("MFG_SOURCE_DIR", &c.SourceFolderPath)
	set("MFG_DB_PATH", &c.DatabasePath)
	set("MFG_ARCHIVE_MODE", &c.ArchiveMode)
	set("MFG_ARCHIVE_DIR", &c.ArchiveDir)
	set("MFG_S3_BUCKET", &c.S3Bucket)
	set("MFG_S3_REGION", &c.S3Region)
	set("MFG_S3_ENDPOINT", &c.S3Endpoint)
	set("MFG_S3_ACCESS_KEY", &c.S3AccessKey)
	set("MFG_S3_SECRET_KEY", &c.S3SecretKey)
	set("MFG_LOG_LEVEL", &c.LogLevel)
	set("MFG_LISTEN_ADDR", &c.ListenAddr)
	set("MFG_PORTAL_URL", &c.PortalURL)
	set("MFG_PORTAL_USER", &c.PortalUserID)
	set("MFG_PORTAL_PASSWORD", &c.PortalPassword)
	if v := os.Getenv("MFG_PORTAL_REPORTS"); v != "" {
		c.PortalReports = nil
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				c.PortalReports = append(c.PortalReports, r)
			}
		}
	}
	if v := os.Getenv("MFG_MAX_RAW_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxRawContentBytes = n
		}
	}
	c.ArchiveMode = strings.ToLower(c.ArchiveMode)
	c.LogLevel = strings.ToLower(c.LogLevel)
}

// Validate checks c against its struct tags.
func Validate(c Config) error {
	return validate.Struct(c)
}

// ValidationErrors flattens a validation failure into field → failed rule.
func ValidationErrors(err error) map[string]string {
	out := make(map[string]string)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		out["config"] = err.Error()
		return out
	}
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func LoadConfig() (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	// .env is optional; missing file is not an error.
	_ = godotenv.Load()

	loaded := defaults()
	file, err := os.ReadFile(configFilePath)
	if err != nil && !os.IsNotExist(err) {
		return defaults(), err
	}
	if err == nil {
		if err := json.Unmarshal(file, &loaded); err != nil {
			return defaults(), err
		}
	}
	applyDefaults(&loaded)
	applyEnv(&loaded)

	if err := Validate(loaded); err != nil {
		return loaded, err
	}
	cfg = loaded
	return cfg, nil
}

func SaveConfig(newCfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	applyDefaults(&newCfg)
	newCfg.S3AccessKey = cfg.S3AccessKey
	newCfg.S3SecretKey = cfg.S3SecretKey
	if err := Validate(newCfg); err != nil {
		return err
	}

	file, err := json.MarshalIndent(newCfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(configFilePath, file, 0644); err != nil {
		return err
	}
	cfg = newCfg
	return nil
}

func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}
