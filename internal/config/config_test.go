package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LEDGERIO_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "SKIP", cfg.Import.Strategy)
	assert.Equal(t, 100, cfg.Import.BatchSize)
	assert.True(t, cfg.Import.AllowPartialImport)
	assert.True(t, cfg.Import.SkipInvalidRows)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "local", cfg.User.ID)
	assert.Contains(t, cfg.Database.Path, "ledgerio.db")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[import]
strategy = "MERGE"
batch_size = 50

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("HOME", dir)
	t.Setenv("LEDGERIO_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "MERGE", cfg.Import.Strategy)
	assert.Equal(t, 50, cfg.Import.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "local", cfg.User.ID, "unset keys keep defaults")
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")
	t.Setenv("HOME", dir)
	t.Setenv("LEDGERIO_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Import.Strategy = "RENAME"
	cfg.Export.IncludeCsv = true
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "RENAME", loaded.Import.Strategy)
	assert.True(t, loaded.Export.IncludeCsv)
}
