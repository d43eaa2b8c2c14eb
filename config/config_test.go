package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ADSALES_LOG_LEVEL", "debug")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  read_timeout: 5s
artifacts:
  model_path: models/trained_model.json
  schema_path: /etc/adsales/feature_columns.json
log:
  level: ${ADSALES_LOG_LEVEL}
history:
  path: history.db
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "models", "trained_model.json"), cfg.Artifacts.ModelPath)
	assert.Equal(t, "/etc/adsales/feature_columns.json", cfg.Artifacts.SchemaPath)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.History.Path)
	assert.Equal(t, 64, cfg.Downloads.CacheSize)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8501, cfg.Server.Port)
	assert.True(t, filepath.IsAbs(cfg.Artifacts.ModelPath))
	assert.Equal(t, "trained_model.json", filepath.Base(cfg.Artifacts.ModelPath))
	assert.Empty(t, cfg.History.Path)
}

func TestShippedConfigKeepsNoHistory(t *testing.T) {
	t.Setenv("ADSALES_LOG_LEVEL", "")

	cfg, err := Load(filepath.Join("..", "config.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.History.Path, "the shipped config must not persist prediction runs")
	assert.Equal(t, "trained_model.json", filepath.Base(cfg.Artifacts.ModelPath))
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad yaml":   "server: [",
		"bad port":   "server:\n  port: 70000\n",
		"no cache":   "downloads:\n  cache_size: 0\n",
		"no model":   "artifacts:\n  model_path: \"\"\n",
		"no uploads": "server:\n  max_upload_bytes: -1\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
