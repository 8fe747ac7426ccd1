package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonledger/internal/config"
	"github.com/rshade/carbonledger/internal/validation"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		field  string
	}{
		{name: "store driver", mutate: func(c *config.Config) { c.Store.Driver = "postgres" }, field: "Store.Driver"},
		{name: "output format", mutate: func(c *config.Config) { c.Output.DefaultFormat = "xml" }, field: "Output.DefaultFormat"},
		{name: "nats without url", mutate: func(c *config.Config) { c.Notify.Driver = "nats" }, field: "Notify.URL"},
		{name: "kafka without brokers", mutate: func(c *config.Config) { c.Notify.Driver = "kafka" }, field: "Notify.Brokers"},
		{name: "batch size", mutate: func(c *config.Config) { c.Jobs.BatchSize = 0 }, field: "Jobs.BatchSize"},
		{name: "log level", mutate: func(c *config.Config) { c.Logging.Level = "loud" }, field: "Logging.Level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			tt.mutate(c)
			err := c.Validate()
			require.ErrorIs(t, err, validation.ErrInvalid)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("ttl above maximum", func(t *testing.T) {
		c := config.Default()
		c.Cache.FlowchartTTL = 48 * time.Hour
		require.Error(t, c.Validate())
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CARBONLEDGER_LOG_LEVEL":           "debug",
		"CARBONLEDGER_STORE_DRIVER":        "sqlite",
		"CARBONLEDGER_NOTIFY_BROKERS":      "a:9092, b:9092,",
		"CARBONLEDGER_JOBS_BATCH_SIZE":     "250",
		"CARBONLEDGER_FLOWCHART_CACHE_TTL": "90",
	}
	c := config.Default()
	c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "debug", c.Logging.Level)
	assert.Equal(t, "sqlite", c.Store.Driver)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Notify.Brokers)
	assert.Equal(t, 250, c.Jobs.BatchSize)
	assert.Equal(t, 90*time.Second, c.Cache.FlowchartTTL)

	c.ApplyEnv(func(string) (string, bool) { return "not-a-number", true })
	assert.Equal(t, 250, c.Jobs.BatchSize)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := config.Default()
	c.SetConfigPath(path)
	c.Output.Precision = 5
	c.Cache.FlowchartTTL = time.Minute
	require.NoError(t, c.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded := config.Default()
	loaded.SetConfigPath(path)
	require.NoError(t, loaded.Load())
	assert.Equal(t, 5, loaded.Output.Precision)
	assert.Equal(t, time.Minute, loaded.Cache.FlowchartTTL)

	require.Error(t, config.Default().Save())
}

func TestNew_ReadsHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CARBONLEDGER_HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("store:\n  driver: sqlite\n  path: ledger.db\n"), 0o600))

	c := config.New()
	assert.Equal(t, filepath.Join(home, "config.yaml"), c.ConfigPath())
	assert.Equal(t, "sqlite", c.Store.Driver)
	assert.Equal(t, filepath.Join(home, "ledger.db"), c.StorePath())
	// Unset sections keep their defaults.
	assert.Equal(t, "table", c.Output.DefaultFormat)
}

func TestStorePath(t *testing.T) {
	c := config.Default()
	c.Store.Path = "/var/lib/carbonledger"
	assert.Equal(t, "/var/lib/carbonledger", c.StorePath())
	c.Store.Path = ":memory:"
	assert.Equal(t, ":memory:", c.StorePath())
}

func TestGet(t *testing.T) {
	c := config.Default()

	v, err := c.Get("store.driver")
	require.NoError(t, err)
	assert.Equal(t, "badger", v)

	v, err = c.Get("output.precision")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = c.Get("store.nope")
	require.ErrorIs(t, err, config.ErrUnknownKey)
	_, err = c.Get("store.driver.deeper")
	require.ErrorIs(t, err, config.ErrUnknownKey)
}

func TestKeys(t *testing.T) {
	keys := config.Default().Keys()
	assert.Contains(t, keys, "output.default_format")
	assert.Contains(t, keys, "notify.breaker.failure_threshold")
	assert.Contains(t, keys, "metrics.address")
	assert.NotContains(t, keys, "notify")
}
