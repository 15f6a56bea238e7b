package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/replicheck/replicheck/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.Types)
	assert.Nil(t, cfg.Defaults.SyncTimeout)
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "replicheck")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	content := `
[defaults]
types = "heap,btree"
sync-timeout = 120
verbose = true
log = "/var/log/replicheck.jsonl"
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))

	cfg, err := config.Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Defaults.Types)
	assert.Equal(t, "heap,btree", *cfg.Defaults.Types)

	require.NotNil(t, cfg.Defaults.SyncTimeout)
	assert.Equal(t, 120, *cfg.Defaults.SyncTimeout)

	require.NotNil(t, cfg.Defaults.Verbose)
	assert.True(t, *cfg.Defaults.Verbose)

	require.NotNil(t, cfg.Defaults.Log)
	assert.Equal(t, "/var/log/replicheck.jsonl", *cfg.Defaults.Log)
}

func TestLoad_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "replicheck")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	content := `
[defaults]
types = "ao"
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))

	cfg, err := config.Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Defaults.Types)
	assert.Equal(t, "ao", *cfg.Defaults.Types)

	// Unset fields should remain nil.
	assert.Nil(t, cfg.Defaults.SyncTimeout)
	assert.Nil(t, cfg.Defaults.Verbose)
	assert.Nil(t, cfg.Defaults.Log)
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	configDir := filepath.Join(dir, "replicheck")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("invalid [[["), 0o644))

	_, err := config.Load()
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/replicheck/config.toml", config.Path())
}
