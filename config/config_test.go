package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8000", cfg.ListenAddrPort)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Equal(t, "light", cfg.DefaultTheme)
	assert.Equal(t, float64(10), cfg.ScrollThreshold)
	assert.Equal(t, 72, cfg.SessionTTLHours)
}

func TestSetupServerReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	toml := `
[serverConfig]
ServerPort = "9100"

[database]
SQLitePath = "` + filepath.ToSlash(filepath.Join(dir, "db", "shop.db")) + `"

[catalog]
ImagePath = "` + filepath.ToSlash(filepath.Join(dir, "img")) + `"

[storefront]
DefaultLanguage = "ar"
ScrollThreshold = 24

[logging]
Level = "debug"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "serverConfig.toml"), []byte(toml), 0o644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, logger, err := SetupServer()
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, "9100", cfg.ListenAddrPort)
	assert.Equal(t, "ar", cfg.DefaultLanguage)
	assert.Equal(t, float64(24), cfg.ScrollThreshold)
	assert.DirExists(t, filepath.Join(dir, "db"))
	assert.DirExists(t, filepath.Join(dir, "img"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("Debug"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelWarn, parseLevel("verbose"))
}
