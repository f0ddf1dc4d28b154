package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowchart/editor"
)

func TestDefault_MatchesEditorDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, editor.DefaultConfig(), cfg.EditorConfig())
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[editor]
grid_step = 10
history_limit = 0

[store]
backend = "redis"
redis_ttl = "90m"

[log]
level = "debug"
`)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.Editor.GridStep)
	assert.Equal(t, 0, cfg.Editor.HistoryLimit)
	assert.Equal(t, 4.0, cfg.Editor.DragThreshold, "unset keys keep defaults")
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 90*time.Minute, cfg.Store.RedisTTL.Duration)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParse_Invalid(t *testing.T) {
	for name, in := range map[string]string{
		"syntax":        `[editor`,
		"grid":          "[editor]\ngrid_step = 0",
		"backend":       "[store]\nbackend = \"s3\"",
		"postgres":      "[store]\nbackend = \"postgres\"",
		"bad duration":  "[store]\nredis_ttl = \"soon\"",
		"negative hist": "[editor]\nhistory_limit = -1",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(in)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Editor, cfg.Editor)

	path := filepath.Join(dir, "flowchart.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store]\nbackend = \"postgres\"\n"), 0o644))
	t.Setenv("DATABASE_URL", "postgres://localhost/flowchart")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/flowchart", cfg.Store.DatabaseURL)
	assert.Equal(t, "redis:6379", cfg.Store.RedisAddr)
}
