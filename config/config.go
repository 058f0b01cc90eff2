// Package config loads bridgectl settings: built-in defaults, then an
// optional YAML file, then BRIDGE_* environment variables. Command-line
// flags are applied last by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete bridgectl configuration.
type Config struct {
	// Endpoint is the gRPC address clients dial.
	Endpoint string `yaml:"endpoint"`
	// Listen is the gRPC address `serve` binds.
	Listen string `yaml:"listen"`
	// Gateway is the HTTP JSON gateway address; empty disables it.
	Gateway string `yaml:"gateway"`
	// Metrics is the Prometheus endpoint address; empty disables it.
	Metrics string `yaml:"metrics"`
	// Timeout bounds each client call. Zero means no deadline.
	Timeout time.Duration `yaml:"timeout"`

	Log     Log     `yaml:"log"`
	Backend Backend `yaml:"backend"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Backend configures the reference backend started by `serve`.
type Backend struct {
	// Key is a hex secp256k1 private key. Empty generates one.
	Key string `yaml:"key"`
}

// Environment variables read by ApplyEnv.
const (
	EnvEndpoint  = "BRIDGE_ENDPOINT"
	EnvListen    = "BRIDGE_LISTEN"
	EnvGateway   = "BRIDGE_GATEWAY"
	EnvMetrics   = "BRIDGE_METRICS"
	EnvTimeout   = "BRIDGE_TIMEOUT"
	EnvLogLevel  = "BRIDGE_LOG_LEVEL"
	EnvLogFormat = "BRIDGE_LOG_FORMAT"
	EnvKey       = "BRIDGE_BACKEND_KEY"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Endpoint: "127.0.0.1:7420",
		Listen:   "127.0.0.1:7420",
		Gateway:  "127.0.0.1:7421",
		Metrics:  "127.0.0.1:7422",
		Timeout:  30 * time.Second,
		Log:      Log{Level: "info", Format: "text"},
	}
}

// Load returns the defaults overlaid with the YAML file at path and
// then with the process environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Decode overlays YAML data onto cfg. Unknown keys are rejected.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays the BRIDGE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvEndpoint:  &c.Endpoint,
		EnvListen:    &c.Listen,
		EnvGateway:   &c.Gateway,
		EnvMetrics:   &c.Metrics,
		EnvLogLevel:  &c.Log.Level,
		EnvLogFormat: &c.Log.Format,
		EnvKey:       &c.Backend.Key,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("config: endpoint is required")
	}
	if c.Listen == "" {
		return errors.New("config: listen is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: negative timeout %s", c.Timeout)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log format %q: want text or json", c.Log.Format)
	}
	return nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
