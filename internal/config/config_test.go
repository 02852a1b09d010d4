package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigPath(t *testing.T) string {
	t.Helper()

	projectRoot, err := filepath.Abs("../../")
	require.NoError(t, err, "failed to get project root")

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(testConfigPath(t))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Title)
	assert.NotZero(t, cfg.Webserver.Port)
	assert.NotEmpty(t, cfg.Webserver.URL)
	assert.NotZero(t, cfg.Webserver.ShutDownTime)

	assert.Contains(t,
		[]string{DBEngineMySQL, DBEnginePostgres, DBEngineSQLite},
		cfg.DB.Engine)

	// the shipped sample carries the audit and security tuning sections
	assert.NotZero(t, cfg.Audit.QueueSize)
	assert.NotZero(t, cfg.Audit.RetentionDays)
	assert.NotEmpty(t, cfg.Audit.CleanupSchedule)
	assert.NotZero(t, cfg.Security.FailedLoginThreshold)
	assert.NotZero(t, cfg.Security.IncidentCorrelationWindowMin)
}

func TestReadConfigEnvOverride(t *testing.T) {
	t.Setenv("TEAMGRID_CONFIG_JSON", `{"Title":"overridden","Security":{"FailedLoginThreshold":9}}`)

	cfg, err := ReadConfig(testConfigPath(t))
	require.NoError(t, err)

	assert.Equal(t, "overridden", cfg.Title)
	assert.Equal(t, 9, cfg.Security.FailedLoginThreshold)

	// untouched values keep their file settings
	assert.NotZero(t, cfg.Webserver.Port)
}

func TestReadConfigInvalidEnvJSON(t *testing.T) {
	t.Setenv("TEAMGRID_CONFIG_JSON", `{not json`)

	_, err := ReadConfig(testConfigPath(t))
	require.Error(t, err)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(t.TempDir() + string(filepath.Separator))
	require.Error(t, err)
}

func TestDumpConfig(t *testing.T) {
	cfg, err := ReadConfig(testConfigPath(t))
	require.NoError(t, err)

	out, err := DumpConfig(cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Title")

	jsonOut, err := DumpConfigJSON(cfg)
	require.NoError(t, err)
	assert.Contains(t, jsonOut, "\"Title\"")
}
