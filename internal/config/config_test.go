package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// envconfig also honors bare alt names; a shell USERNAME would leak in.
	t.Setenv("USERNAME", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "Tons", cfg.Pipeline.QuantityColumn)
	assert.Equal(t, 3, cfg.Pipeline.ForecastWindow)
	assert.Equal(t, "info", cfg.Logging.Level)
	// No credentials in the environment: auth stays disabled.
	assert.Empty(t, cfg.Auth.Username)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("USERNAME", "")
	t.Setenv("TRADEPULSE_SERVER_PORT", "9090")
	t.Setenv("TRADEPULSE_PIPELINE_QUANTITY_COLUMN", "Kg")
	t.Setenv("TRADEPULSE_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "Kg", cfg.Pipeline.QuantityColumn)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_YAMLFileWithEnvOnTop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7070
pipeline:
  quantity_column: Barrels
  forecast_window: 6
`), 0o600))
	t.Setenv("USERNAME", "")
	t.Setenv("TRADEPULSE_CONFIG_FILE", path)
	t.Setenv("TRADEPULSE_SERVER_PORT", "7071")

	cfg, err := Load()
	require.NoError(t, err)

	// Environment wins over the file; the file wins over defaults, and
	// defaults only fill fields neither layer set.
	assert.Equal(t, 7071, cfg.Server.Port)
	assert.Equal(t, "Barrels", cfg.Pipeline.QuantityColumn)
	assert.Equal(t, 6, cfg.Pipeline.ForecastWindow)
	assert.Equal(t, "Sheet1", cfg.Pipeline.DefaultSheetName)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "TRADEPULSE_SERVER_PORT", "70000"},
		{"zero forecast window", "TRADEPULSE_PIPELINE_FORECAST_WINDOW", "0"},
		{"username without credential", "TRADEPULSE_AUTH_USERNAME", "admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_AuthWithHashIsValid(t *testing.T) {
	t.Setenv("TRADEPULSE_AUTH_USERNAME", "admin")
	t.Setenv("TRADEPULSE_AUTH_PASSWORD_HASH", "$2a$10$notarealhashbutnonempty")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Auth.Username)
}

func TestDefault_PassesValidation(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.validate())
}
