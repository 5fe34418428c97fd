package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CASHCUE_CONFIG", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CASHCUE_SQLITE", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("LOG_FILE", "")
	t.Setenv("CASHCUE_WORKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, 4, cfg.Workers)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadYAMLFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cashcue.yml")
	content := []byte("database_url: postgres://file-host/cashcue\nenvironment: production\nworkers: 8\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("CASHCUE_CONFIG", path)
	t.Setenv("DATABASE_URL", "postgres://env-host/cashcue")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("CASHCUE_WORKERS", "")
	t.Setenv("CASHCUE_SQLITE", "")
	t.Setenv("LOG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)
	// Environment variables win over the file.
	assert.Equal(t, "postgres://env-host/cashcue", cfg.DatabaseURL)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoadBadConfigFile(t *testing.T) {
	t.Setenv("CASHCUE_CONFIG", filepath.Join(t.TempDir(), "missing.yml"))

	_, err := Load()
	assert.Error(t, err)
}
