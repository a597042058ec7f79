package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oxidrift/meshup/internal/activation"
	"github.com/oxidrift/meshup/internal/conflict"
	"github.com/oxidrift/meshup/internal/foundation"
	"github.com/oxidrift/meshup/internal/readiness"
	"github.com/oxidrift/meshup/internal/runlock"
	"github.com/oxidrift/meshup/internal/vpn"
)

// DefaultConfigPath is the optional configuration file location.
const DefaultConfigPath = "/etc/meshup/config.yaml"

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "info"

// Config is the top-level configuration record. It is constructed once at
// startup and passed explicitly to each component; no component reads
// process-global state ad hoc.
type Config struct {
	// LogLevel is the log level: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LockPath is the exclusive run lock file.
	// Default: /run/meshup.lock
	LockPath string `yaml:"lock_path"`

	// AddressWait bounds the post-authentication wait for an assigned
	// mesh address.
	// Default: 1s interval, 10 attempts
	AddressWait readiness.Budget `yaml:"address_wait"`

	VPN        vpn.Config        `yaml:"vpn"`
	Conflict   conflict.Config   `yaml:"conflict"`
	Foundation foundation.Config `yaml:"foundation"`
	Activation activation.Config `yaml:"activation"`
}

// ApplyDefaults sets default values for zero-valued fields, recursively.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LockPath == "" {
		c.LockPath = runlock.DefaultPath
	}
	c.AddressWait.ApplyDefaults(readiness.Budget{Interval: time.Second, MaxAttempts: 10})
	c.VPN.ApplyDefaults()
	c.Conflict.ApplyDefaults()
	c.Foundation.ApplyDefaults()
	c.Activation.ApplyDefaults()
}

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("orchestrator: config: unknown log level %q", c.LogLevel)
	}
	if err := c.AddressWait.Validate(); err != nil {
		return fmt.Errorf("orchestrator: config: address_wait: %w", err)
	}
	if err := c.Foundation.StubWait.Validate(); err != nil {
		return fmt.Errorf("orchestrator: config: foundation.stub_wait: %w", err)
	}
	if err := c.Activation.SocketWait.Validate(); err != nil {
		return fmt.Errorf("orchestrator: config: activation.socket_wait: %w", err)
	}
	return nil
}

// ParseConfig loads the configuration file at path. A missing file is not
// an error: the tool runs entirely on defaults.
func ParseConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg.ApplyDefaults()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Config{}, fmt.Errorf("orchestrator: read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("orchestrator: parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
