package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/berth/pkg/log"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/cuemby/berth/pkg/types"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config is the berth daemon configuration
type Config struct {
	Log     LogConfig             `yaml:"log"`
	Server  ServerConfig          `yaml:"server"`
	Storage storage.Config        `yaml:"storage"`
	Drain   DrainConfig           `yaml:"drain"`
	Metrics MetricsConfig         `yaml:"metrics"`
	Policy  types.PlacementPolicy `yaml:"policy"`
}

// LogConfig mirrors log.Config in file form
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// ReadOnly serves queries only; placements and registry writes are refused
	ReadOnly bool `yaml:"readOnly"`
}

// DrainConfig configures the drain monitor
type DrainConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig configures the cluster gauge collector
type MetricsConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: string(log.InfoLevel)},
		Server: ServerConfig{
			Addr:            "127.0.0.1:7070",
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: storage.Config{
			Backend: storage.BackendBolt,
			DataDir: "./berth-data",
		},
		Drain: DrainConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
		},
		Metrics: MetricsConfig{Interval: 15 * time.Second},
		Policy:  *types.DefaultPolicy(),
	}
}

// Load reads path over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var err error
	if _, lerr := log.ParseLevel(c.Log.Level); lerr != nil {
		err = multierr.Append(err, lerr)
	}
	if c.Server.Addr == "" {
		err = multierr.Append(err, fmt.Errorf("server.addr is required"))
	}
	switch c.Storage.Backend {
	case storage.BackendBolt, "":
		if c.Storage.DataDir == "" {
			err = multierr.Append(err, fmt.Errorf("storage.dataDir is required for the bolt backend"))
		}
	case storage.BackendMemory:
	case storage.BackendEtcd:
		if len(c.Storage.EtcdEndpoints) == 0 {
			err = multierr.Append(err, fmt.Errorf("storage.etcdEndpoints is required for the etcd backend"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Drain.Enabled && c.Drain.Interval <= 0 {
		err = multierr.Append(err, fmt.Errorf("drain.interval must be positive"))
	}
	return multierr.Append(err, c.Policy.Validate())
}

// LoggerConfig converts the file settings into a log.Config
func (c *Config) LoggerConfig() log.Config {
	level, _ := log.ParseLevel(c.Log.Level)
	return log.Config{Level: level, JSONOutput: c.Log.JSON}
}
