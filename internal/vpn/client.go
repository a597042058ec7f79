// Package vpn drives the Tailscale client as a black-box command-line
// collaborator: authentication status, device authentication (QR and link
// variants), and assigned-address queries, all decided by exit codes.
package vpn

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/oxidrift/meshup/internal/execx"
)

// DefaultSocketPath is the tailscaled control socket path.
const DefaultSocketPath = "/var/run/tailscale/tailscaled.sock"

// socketDialTimeout bounds a single control-socket responsiveness probe.
const socketDialTimeout = time.Second

// Config identifies the mesh-VPN client on this host.
type Config struct {
	// Command is the client CLI binary.
	// Default: tailscale
	Command string `yaml:"command"`

	// Service is the daemon's systemd service name.
	// Default: tailscaled
	Service string `yaml:"service"`

	// Package is the distribution package providing client and daemon.
	// Default: tailscale
	Package string `yaml:"package"`

	// Interface is the mesh interface name the daemon creates.
	// Default: tailscale0
	Interface string `yaml:"interface"`

	// SocketPath is the daemon's local control socket.
	// Default: /var/run/tailscale/tailscaled.sock
	SocketPath string `yaml:"socket_path"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Command == "" {
		c.Command = "tailscale"
	}
	if c.Service == "" {
		c.Service = "tailscaled"
	}
	if c.Package == "" {
		c.Package = "tailscale"
	}
	if c.Interface == "" {
		c.Interface = "tailscale0"
	}
	if c.SocketPath == "" {
		c.SocketPath = DefaultSocketPath
	}
}

// CLIClient drives the real client CLI.
type CLIClient struct {
	cfg    Config
	runner execx.Runner
	logger *slog.Logger
}

// NewCLIClient creates a CLIClient with defaults applied.
func NewCLIClient(cfg Config, runner execx.Runner, logger *slog.Logger) *CLIClient {
	cfg.ApplyDefaults()
	return &CLIClient{
		cfg:    cfg,
		runner: runner,
		logger: logger.With("component", "vpn"),
	}
}

// Authenticated reports whether the client is already logged in. The status
// query exits nonzero both when logged out and when the daemon is
// unreachable; either way authentication is required.
func (c *CLIClient) Authenticated(ctx context.Context) bool {
	return c.runner.Run(ctx, c.cfg.Command, "status") == nil
}

// AuthenticateQR starts the QR-based device authentication flow. The call
// renders a QR code to the terminal and blocks until the device is paired
// from another device or the flow fails.
func (c *CLIClient) AuthenticateQR(ctx context.Context) error {
	if err := c.runner.RunInteractive(ctx, c.cfg.Command, "up", "--qr"); err != nil {
		return fmt.Errorf("vpn: qr authentication: %w", err)
	}
	return nil
}

// AuthenticateLink starts the plain interactive authentication flow, which
// prints a login link to the terminal.
func (c *CLIClient) AuthenticateLink(ctx context.Context) error {
	if err := c.runner.RunInteractive(ctx, c.cfg.Command, "up"); err != nil {
		return fmt.Errorf("vpn: link authentication: %w", err)
	}
	return nil
}

// Address returns the mesh IPv4 address assigned to this node.
func (c *CLIClient) Address(ctx context.Context) (string, error) {
	out, err := c.runner.Output(ctx, c.cfg.Command, "ip", "-4")
	if err != nil {
		return "", fmt.Errorf("vpn: query address: %w", err)
	}
	addr, _, _ := strings.Cut(out, "\n")
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("vpn: query address: no address reported")
	}
	return addr, nil
}

// SocketResponsive reports whether the daemon's control socket is accepting
// connections. "Service active" and "socket accepting" are distinct states
// during daemon startup, so activation polls this probe rather than the
// service state.
func (c *CLIClient) SocketResponsive() bool {
	conn, err := net.DialTimeout("unix", c.cfg.SocketPath, socketDialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// InterfaceName returns the mesh interface name the daemon creates.
func (c *CLIClient) InterfaceName() string {
	return c.cfg.Interface
}
