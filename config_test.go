package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "anvilmesh.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "meshlet", cfg.Mesh.Format)
	assert.True(t, cfg.World.PanicOnCorrupt)
	assert.Positive(t, cfg.World.Workers)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[world]
workers = 3
panic_on_corrupt = false

[mesh]
format = "flat"

[generate]
seed = -7

[logging]
format = "json"

[metrics]
addr = "127.0.0.1:9100"
`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.World.Workers)
	assert.False(t, cfg.World.PanicOnCorrupt)
	assert.Equal(t, "flat", cfg.Mesh.Format)
	assert.EqualValues(t, -7, cfg.Generate.Seed)
	assert.Equal(t, 4, cfg.Generate.Radius)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"format":  "[mesh]\nformat = \"points\"\n",
		"workers": "[world]\nworkers = 0\n",
		"radius":  "[generate]\nradius = -1\n",
		"syntax":  "[world\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		log, err := newLogger(LoggingConfig{Level: "debug", Format: format})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	}
	log, err := newLogger(LoggingConfig{Level: "nonsense"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}
