// Package config loads carbonledger's YAML configuration from
// $CARBONLEDGER_HOME/config.yaml, applies CARBONLEDGER_* environment
// overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/carbonledger/internal/engine/cache"
	"github.com/rshade/carbonledger/internal/validation"
)

const (
	outputTypeFile    = "file"
	configFileName    = "config.yaml"
	defaultPrecision  = 2
	defaultBatchSize  = 100
	defaultMetricAddr = "127.0.0.1:9464"
)

// ErrUnknownKey is returned by Get for a key that names no setting.
var ErrUnknownKey = errors.New("unknown configuration key")

// Config is the full configuration file.
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Store   StoreConfig   `yaml:"store"`
	Notify  NotifyConfig  `yaml:"notify"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Cache   CacheConfig   `yaml:"cache"`
	Metrics MetricsConfig `yaml:"metrics"`

	configPath string
}

// OutputConfig controls rendering.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" validate:"oneof=table json"`
	Precision     int    `yaml:"precision" validate:"gte=0,lte=10"`
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console text"`
	File   string `yaml:"file,omitempty"`
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory badger sqlite"`
	// Path is a directory for badger and a file for sqlite. Relative paths
	// resolve against the configuration directory.
	Path string `yaml:"path,omitempty"`
}

// NotifyConfig selects the notification sink.
type NotifyConfig struct {
	Driver      string   `yaml:"driver" validate:"oneof=none memory nats kafka"`
	URL         string   `yaml:"url,omitempty" validate:"required_if=Driver nats"`
	Brokers     []string `yaml:"brokers,omitempty" validate:"required_if=Driver kafka"`
	TopicPrefix string   `yaml:"topic_prefix"`
	Breaker     Breaker  `yaml:"breaker"`
}

// Breaker configures the circuit breaker around the sink.
type Breaker struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold" validate:"gte=1"`
	Timeout          time.Duration `yaml:"timeout" validate:"gte=0"`
}

// JobsConfig configures summary refresh and batch recalculation.
type JobsConfig struct {
	// Driver "inline" refreshes summaries in the writing command; "memory"
	// and "nats" queue refresh jobs for a worker.
	Driver      string `yaml:"driver" validate:"oneof=inline memory nats"`
	URL         string `yaml:"url,omitempty" validate:"required_if=Driver nats"`
	BatchSize   int    `yaml:"batch_size" validate:"gte=1,lte=1000"`
	Concurrency int    `yaml:"concurrency" validate:"gte=0"`
}

// CacheConfig configures the flowchart cache.
type CacheConfig struct {
	FlowchartTTL time.Duration `yaml:"flowchart_ttl" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus endpoint of the serve command.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" validate:"required_if=Enabled true"`
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return &Config{
		Output:  OutputConfig{DefaultFormat: "table", Precision: defaultPrecision},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Store:   StoreConfig{Driver: "badger", Path: "data"},
		Notify: NotifyConfig{
			Driver:      "none",
			TopicPrefix: "carbonledger",
			Breaker:     Breaker{Enabled: true, FailureThreshold: 5, Timeout: 30 * time.Second},
		},
		Jobs:    JobsConfig{Driver: "inline", BatchSize: defaultBatchSize},
		Cache:   CacheConfig{FlowchartTTL: cache.DefaultTTL},
		Metrics: MetricsConfig{Enabled: true, Address: defaultMetricAddr},
	}
}

// New returns the configuration at the default path merged over the
// defaults, with environment overrides applied. A missing or unreadable
// file leaves the defaults in place.
func New() *Config {
	cfg := Default()
	dir, err := GetConfigDir()
	if err == nil {
		cfg.configPath = filepath.Join(dir, configFileName)
		_ = cfg.Load()
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg
}

// ConfigPath returns the file Save writes to.
func (c *Config) ConfigPath() string { return c.configPath }

// SetConfigPath changes the file Load and Save use.
func (c *Config) SetConfigPath(path string) { c.configPath = path }

// Load reads the configuration file over the current values.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", c.configPath, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", c.configPath, err)
	}
	return nil
}

// Save writes the configuration, creating its directory.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("config path not set")
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("serializing config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", c.configPath, err)
	}
	return nil
}

// ApplyEnv applies CARBONLEDGER_* overrides read through lookup.
// Unparseable numeric values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("CARBONLEDGER_LOG_LEVEL", &c.Logging.Level)
	str("CARBONLEDGER_LOG_FORMAT", &c.Logging.Format)
	str("CARBONLEDGER_LOG_FILE", &c.Logging.File)
	str("CARBONLEDGER_OUTPUT_FORMAT", &c.Output.DefaultFormat)
	str("CARBONLEDGER_STORE_DRIVER", &c.Store.Driver)
	str("CARBONLEDGER_STORE_PATH", &c.Store.Path)
	str("CARBONLEDGER_NOTIFY_DRIVER", &c.Notify.Driver)
	str("CARBONLEDGER_NOTIFY_URL", &c.Notify.URL)
	str("CARBONLEDGER_JOBS_DRIVER", &c.Jobs.Driver)
	str("CARBONLEDGER_JOBS_URL", &c.Jobs.URL)
	str("CARBONLEDGER_METRICS_ADDRESS", &c.Metrics.Address)

	if v, ok := lookup("CARBONLEDGER_NOTIFY_BROKERS"); ok && v != "" {
		c.Notify.Brokers = splitList(v)
	}
	if v, ok := lookup("CARBONLEDGER_JOBS_BATCH_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Jobs.BatchSize = n
		}
	}
	if v, ok := lookup(cache.EnvTTL); ok && v != "" {
		if ttl, err := cache.ParseTTL(v); err == nil {
			c.Cache.FlowchartTTL = ttl
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if c.Cache.FlowchartTTL > cache.MaxTTL {
		return fmt.Errorf("cache.flowchart_ttl: %w", cache.ErrInvalidTTL)
	}
	return nil
}

// StorePath resolves the store path against the configuration directory.
func (c *Config) StorePath() string {
	p := c.Store.Path
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	base := filepath.Dir(c.configPath)
	if c.configPath == "" {
		if dir, err := GetConfigDir(); err == nil {
			base = dir
		}
	}
	return filepath.Join(base, p)
}

// Get returns the value at a dotted key such as "store.driver".
func (c *Config) Get(key string) (any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}

	var cur any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		if cur, ok = m[part]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
	}
	return cur, nil
}

// Keys lists the dotted keys of every scalar setting in file order.
func (c *Config) Keys() []string {
	var node yaml.Node
	if err := node.Encode(c); err != nil {
		return nil
	}
	var out []string
	var walk func(prefix string, n *yaml.Node)
	walk = func(prefix string, n *yaml.Node) {
		if n.Kind != yaml.MappingNode {
			out = append(out, prefix)
			return
		}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			walk(key, n.Content[i+1])
		}
	}
	walk("", &node)
	return out
}
