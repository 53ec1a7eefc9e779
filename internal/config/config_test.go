package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recurctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "local", cfg.User.ID)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, language.English, cfg.Language())
}

func TestLoad_FileEnvAndOverrides(t *testing.T) {
	path := writeFile(t, `
store:
  driver: sqlite
  path: /tmp/tasks.db
log:
  level: debug
cache:
  ttl: 30s
  max_entries: 20
summary:
  locale: de
`)
	t.Setenv("RECUR_LOG_FORMAT", "json")
	t.Setenv("RECUR_USER_ID", "alice")

	cfg, err := Load(path, map[string]any{"log.level": "warn"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/tasks.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level, "overrides beat the file")
	assert.Equal(t, "json", cfg.Log.Format, "env beats defaults")
	assert.Equal(t, "alice", cfg.User.ID)

	mc := cfg.ManagerConfig()
	assert.True(t, mc.CacheEnabled)
	assert.Equal(t, 30*time.Second, mc.CacheConfig.TTL)
	assert.Equal(t, 20, mc.CacheConfig.MaxEntries)
	assert.Equal(t, language.German, mc.SummaryLanguage)
}

func TestLoad_DisabledCache(t *testing.T) {
	cfg, err := Load(writeFile(t, "cache:\n  enabled: false\n"), nil)
	require.NoError(t, err)
	mc := cfg.ManagerConfig()
	assert.False(t, mc.CacheEnabled)
	assert.Equal(t, language.English, mc.SummaryLanguage)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantKey string
	}{
		{name: "unknown driver", yaml: "store:\n  driver: postgres\n", wantKey: "store.driver"},
		{name: "sqlite without path", yaml: "store:\n  driver: sqlite\n", wantKey: "store.path"},
		{name: "bad key", yaml: "crypto:\n  key: abc\n", wantKey: "crypto.key"},
		{name: "bad level", yaml: "log:\n  level: loud\n", wantKey: "log.level"},
		{name: "zero max entries", yaml: "cache:\n  max_entries: 0\n", wantKey: "cache.max_entries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.yaml), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
