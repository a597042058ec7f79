// Package activation installs and restarts the mesh-VPN daemon and waits
// for its control socket to accept connections, then applies firewall
// policy for the mesh interface.
package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oxidrift/meshup/internal/firewall"
	"github.com/oxidrift/meshup/internal/readiness"
	"github.com/oxidrift/meshup/internal/sysprobe"
)

// ErrSocketUnresponsive is returned when the daemon's control socket never
// became responsive within the attempt budget. Subsequent phases need a
// live control channel, so this is fatal for the run.
var ErrSocketUnresponsive = errors.New("activation: control socket never became responsive")

// Config holds the activation phase configuration.
type Config struct {
	// SocketWait bounds the wait for the daemon control socket.
	// Default: 500ms interval, 15 attempts
	SocketWait readiness.Budget `yaml:"socket_wait"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	c.SocketWait.ApplyDefaults(readiness.Budget{Interval: 500 * time.Millisecond, MaxAttempts: 15})
}

// PackageInstaller queries and installs packages.
type PackageInstaller interface {
	Installed(ctx context.Context, name string) bool
	Install(ctx context.Context, name string) error
}

// Activator brings the VPN daemon into a clean running state.
type Activator struct {
	cfg         Config
	pkgName     string
	service     string
	iface       string
	pkgs        PackageInstaller
	systemd     sysprobe.SystemdController
	socketUp    func() bool
	firewallFor func() firewall.Backend
	logger      *slog.Logger
}

// NewActivator creates an Activator with defaults applied. pkgs may be nil
// on hosts without a recognized package manager; the install step is then
// skipped. firewallFor returns the active firewall backend or nil.
func NewActivator(cfg Config, pkgName, service, iface string, pkgs PackageInstaller, systemd sysprobe.SystemdController, socketUp func() bool, firewallFor func() firewall.Backend, logger *slog.Logger) *Activator {
	cfg.ApplyDefaults()
	return &Activator{
		cfg:         cfg,
		pkgName:     pkgName,
		service:     service,
		iface:       iface,
		pkgs:        pkgs,
		systemd:     systemd,
		socketUp:    socketUp,
		firewallFor: firewallFor,
		logger:      logger.With("component", "activation"),
	}
}

// Activate ensures the package is installed, restarts and enables the
// daemon, waits for the control socket, and applies firewall policy.
// Restart rather than start is deliberate: it guarantees a clean daemon
// state even if the service was already running badly.
func (a *Activator) Activate(ctx context.Context) error {
	if err := a.ensureInstalled(ctx); err != nil {
		return err
	}

	if err := a.systemd.Enable(a.service); err != nil {
		// The daemon still runs this boot; only autostart is degraded.
		a.logger.Warn("enable failed", "service", a.service, "error", err)
	}
	if err := a.systemd.Restart(a.service); err != nil {
		return fmt.Errorf("activation: restart %s: %w", a.service, err)
	}
	a.logger.Info("daemon restarted", "service", a.service)

	err := readiness.Wait(ctx, a.cfg.SocketWait, func(_ context.Context) bool {
		return a.socketUp()
	})
	if errors.Is(err, readiness.ErrExhausted) {
		return fmt.Errorf("%w after %d attempts", ErrSocketUnresponsive, a.cfg.SocketWait.MaxAttempts)
	}
	if err != nil {
		return err
	}
	a.logger.Info("control socket responsive", "service", a.service)

	a.applyFirewallPolicy(ctx)
	return nil
}

func (a *Activator) ensureInstalled(ctx context.Context) error {
	if a.pkgs == nil {
		a.logger.Debug("no package manager, skipping install check", "package", a.pkgName)
		return nil
	}
	if a.pkgs.Installed(ctx, a.pkgName) {
		return nil
	}
	if err := a.pkgs.Install(ctx, a.pkgName); err != nil {
		return fmt.Errorf("activation: install %s: %w", a.pkgName, err)
	}
	a.logger.Info("package installed", "package", a.pkgName)
	return nil
}

// applyFirewallPolicy trusts the mesh interface in the active firewall
// manager. Failure is deliberately ignored here: the VPN still functions
// with a manually added rule.
func (a *Activator) applyFirewallPolicy(ctx context.Context) {
	backend := a.firewallFor()
	if backend == nil {
		a.logger.Debug("no active firewall manager, skipping trust rule")
		return
	}
	if err := backend.TrustInterface(ctx, a.iface); err != nil {
		a.logger.Warn("firewall trust rule failed", "backend", backend.Name(), "interface", a.iface, "error", err)
		return
	}
	a.logger.Info("firewall trust rule applied", "backend", backend.Name(), "interface", a.iface)
}
