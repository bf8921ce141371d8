package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mfgdocs_config.json")
	prev := configFilePath
	configFilePath = path
	t.Cleanup(func() { configFilePath = prev })
	return path
}

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	useConfigFile(t)

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultMaxRawContentBytes), c.MaxRawContentBytes)
	assert.Equal(t, DefaultQuantityTolerance, c.QuantityTolerance)
	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, "disk", c.ArchiveMode)
	assert.Equal(t, "archive/xml", c.ArchiveDir)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, c, GetConfig())
}

func TestLoadConfigFileAndEnvOverrides(t *testing.T) {
	path := useConfigFile(t)
	require.NoError(t, os.WriteFile(path, []byte(`{
		"sourceFolderPath": "/exports",
		"archiveMode": "none",
		"quantityTolerance": 0.5,
		"logLevel": "warn"
	}`), 0644))
	t.Setenv("MFG_LOG_LEVEL", "DEBUG")
	t.Setenv("MFG_S3_SECRET_KEY", "secret")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/exports", c.SourceFolderPath)
	assert.Equal(t, "none", c.ArchiveMode)
	assert.Equal(t, 0.5, c.QuantityTolerance)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "secret", c.S3SecretKey)
	assert.Equal(t, int64(DefaultMaxRawContentBytes), c.MaxRawContentBytes)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := useConfigFile(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"archiveMode": "ftp", "quantityTolerance": -1}`), 0644))

	_, err := LoadConfig()
	require.Error(t, err)
	fields := ValidationErrors(err)
	assert.Equal(t, "oneof", fields["ArchiveMode"])
	assert.Equal(t, "gt", fields["QuantityTolerance"])
}

func TestLoadConfigS3RequiresBucket(t *testing.T) {
	path := useConfigFile(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"archiveMode": "s3"}`), 0644))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Equal(t, "required_if", ValidationErrors(err)["S3Bucket"])
}

func TestSaveConfigPersistsWithoutSecrets(t *testing.T) {
	path := useConfigFile(t)
	t.Setenv("MFG_S3_ACCESS_KEY", "AKIA")
	_, err := LoadConfig()
	require.NoError(t, err)

	c := GetConfig()
	c.SourceFolderPath = "/data/in"
	c.PortalReports = []string{"BATCHCRREGI", "FORMULAMAST"}
	require.NoError(t, SaveConfig(c))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sourceFolderPath": "/data/in"`)
	assert.NotContains(t, string(raw), "AKIA")
	assert.Equal(t, "AKIA", GetConfig().S3AccessKey)
	assert.Equal(t, []string{"BATCHCRREGI", "FORMULAMAST"}, GetConfig().PortalReports)
}

func TestSaveConfigValidates(t *testing.T) {
	useConfigFile(t)
	c := defaults()
	c.LogLevel = "verbose"
	assert.Error(t, SaveConfig(c))
}

func TestValidationErrorsPassesThroughPlainErrors(t *testing.T) {
	assert.Equal(t, map[string]string{"config": "boom"}, ValidationErrors(errors.New("boom")))
}

func TestSetLogLevel(t *testing.T) {
	prev := GetLogger().GetLevel()
	t.Cleanup(func() { GetLogger().SetLevel(prev) })

	SetLogLevel("warn")
	assert.Equal(t, logrus.WarnLevel, GetLogger().GetLevel())
	SetLogLevel("nonsense")
	assert.Equal(t, logrus.WarnLevel, GetLogger().GetLevel())
}
