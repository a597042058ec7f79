package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := ParseConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.LockPath == "" {
		t.Error("LockPath default not applied")
	}
	if cfg.VPN.Command != "tailscale" {
		t.Errorf("VPN.Command = %q, want tailscale", cfg.VPN.Command)
	}
	if cfg.AddressWait.MaxAttempts != 10 {
		t.Errorf("AddressWait.MaxAttempts = %d, want 10", cfg.AddressWait.MaxAttempts)
	}
}

func TestParseConfig_OverridesMergeWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log_level: debug
vpn:
  interface: ts0
conflict:
  tunnel_prefixes: [vtun]
address_wait:
  max_attempts: 25
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseConfig(path)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.VPN.Interface != "ts0" {
		t.Errorf("VPN.Interface = %q, want ts0", cfg.VPN.Interface)
	}
	// Untouched fields keep their defaults.
	if cfg.VPN.Command != "tailscale" {
		t.Errorf("VPN.Command = %q, want default tailscale", cfg.VPN.Command)
	}
	if cfg.AddressWait.MaxAttempts != 25 {
		t.Errorf("AddressWait.MaxAttempts = %d, want 25", cfg.AddressWait.MaxAttempts)
	}
	if len(cfg.Conflict.TunnelPrefixes) != 1 || cfg.Conflict.TunnelPrefixes[0] != "vtun" {
		t.Errorf("Conflict.TunnelPrefixes = %v, want [vtun]", cfg.Conflict.TunnelPrefixes)
	}
}

func TestParseConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseConfig(path); err == nil {
		t.Fatal("ParseConfig() error = nil, want parse failure")
	}
}

func TestConfigValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}

	cfg.AddressWait.MaxAttempts = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil with negative max attempts")
	}

	cfg.AddressWait.MaxAttempts = 10
	cfg.LogLevel = "trace"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil with unknown log level")
	}
}
