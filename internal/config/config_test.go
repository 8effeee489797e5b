package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", Config{})
	require.NoError(t, err)
	assert.Equal(t, "ast-grep", cfg.MatcherBinary)
	assert.Equal(t, 100, cfg.Cache.Capacity)
	assert.Equal(t, 300*time.Second, cfg.Cache.TTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
matcher_binary = "/usr/local/bin/ast-grep"
cache_size = 250
cache_ttl_seconds = 60
backup_root = ".backups"
`), 0o644))

	cfg, err := Load(path, Config{})
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/ast-grep", cfg.MatcherBinary)
	assert.Equal(t, 250, cfg.Cache.Capacity)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, ".backups", cfg.BackupRoot)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte(`cache_size = 250`), 0o644))

	t.Setenv("CACHE_SIZE", "42")
	cfg, err := Load(path, Config{})
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Cache.Capacity)
}

func TestExplicitOverrideWinsOverEnv(t *testing.T) {
	t.Setenv("CACHE_SIZE", "42")
	cfg, err := Load("", Config{Cache: Cache{Capacity: 7}})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Cache.Capacity)
}

func TestValidateRejectsEmptyBinary(t *testing.T) {
	cfg := Default()
	cfg.MatcherBinary = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"), Config{})
	assert.NoError(t, err)
}
