package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalConfig(t *testing.T) {
	t.Setenv("CARBONLEDGER_HOME", t.TempDir())
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := GetGlobalConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "table", cfg.Output.DefaultFormat)
	assert.Same(t, cfg, GetGlobalConfig())

	replacement := Default()
	replacement.Output.Precision = 6
	SetGlobalConfig(replacement)
	assert.Equal(t, 6, GetOutputPrecision())
	assert.Equal(t, "table", GetDefaultOutputFormat())

	ResetGlobalConfigForTest()
	assert.NotSame(t, replacement, GetGlobalConfig())
}

func TestGetConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CARBONLEDGER_HOME", home)
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, home, dir)

	t.Setenv("CARBONLEDGER_HOME", "")
	t.Setenv("HOME", home)
	dir, err = GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".carbonledger"), dir)
}

func TestEnsureSubDirs(t *testing.T) {
	home := filepath.Join(t.TempDir(), "cl")
	t.Setenv("CARBONLEDGER_HOME", home)
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := GetGlobalConfig()
	cfg.Logging.File = filepath.Join(home, "logs", "carbonledger.log")
	require.NoError(t, EnsureSubDirs())

	for _, dir := range []string{home, filepath.Join(home, "data"), filepath.Join(home, "logs")} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}

func TestEnsureStoreDir(t *testing.T) {
	base := t.TempDir()

	cfg := Default()
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = filepath.Join(base, "db", "ledger.db")
	require.NoError(t, EnsureStoreDir(cfg))
	_, err := os.Stat(filepath.Join(base, "db"))
	require.NoError(t, err)
	_, err = os.Stat(cfg.Store.Path)
	assert.True(t, os.IsNotExist(err))

	cfg.Store.Driver = "memory"
	cfg.Store.Path = filepath.Join(base, "never")
	require.NoError(t, EnsureStoreDir(cfg))
	_, err = os.Stat(cfg.Store.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestToLoggingConfig(t *testing.T) {
	lc := LoggingConfig{Level: "debug", Format: "json"}
	got := lc.ToLoggingConfig()
	assert.Equal(t, "stderr", got.Output)
	assert.Equal(t, "debug", got.Level)

	lc.File = "/tmp/cl.log"
	got = lc.ToLoggingConfig()
	assert.Equal(t, "file", got.Output)
	assert.Equal(t, "/tmp/cl.log", got.File)
}
