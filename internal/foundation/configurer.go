// Package foundation brings DNS resolution, desktop network management, and
// kernel module prerequisites into a known-good idempotent state before the
// mesh client is activated.
package foundation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oxidrift/meshup/internal/execx"
	"github.com/oxidrift/meshup/internal/fsutil"
	"github.com/oxidrift/meshup/internal/readiness"
	"github.com/oxidrift/meshup/internal/sysprobe"
)

// Config holds the foundation phase configuration.
type Config struct {
	// ResolverService is the system DNS resolver service.
	// Default: systemd-resolved
	ResolverService string `yaml:"resolver_service"`

	// StubPath is the resolver's runtime stub file.
	// Default: /run/systemd/resolve/stub-resolv.conf
	StubPath string `yaml:"stub_path"`

	// ResolvConfPath is the static resolver configuration file.
	// Default: /etc/resolv.conf
	ResolvConfPath string `yaml:"resolv_conf_path"`

	// NMService is the desktop network manager service.
	// Default: NetworkManager
	NMService string `yaml:"nm_service"`

	// NMDropInDir is the network manager's drop-in configuration directory.
	// Default: /etc/NetworkManager/conf.d
	NMDropInDir string `yaml:"nm_drop_in_dir"`

	// ModulesLoadDir is the kernel module autoload drop-in directory.
	// Default: /etc/modules-load.d
	ModulesLoadDir string `yaml:"modules_load_dir"`

	// InputModule is the virtual-input kernel module needed for remote
	// input features.
	// Default: uinput
	InputModule string `yaml:"input_module"`

	// PortalPackage is the desktop portal package known to conflict with
	// remote input.
	// Default: xdg-desktop-portal-lxqt
	PortalPackage string `yaml:"portal_package"`

	// StubWait bounds the wait for the resolver stub file to appear.
	// Default: 1s interval, 10 attempts
	StubWait readiness.Budget `yaml:"stub_wait"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ResolverService == "" {
		c.ResolverService = "systemd-resolved"
	}
	if c.StubPath == "" {
		c.StubPath = "/run/systemd/resolve/stub-resolv.conf"
	}
	if c.ResolvConfPath == "" {
		c.ResolvConfPath = "/etc/resolv.conf"
	}
	if c.NMService == "" {
		c.NMService = "NetworkManager"
	}
	if c.NMDropInDir == "" {
		c.NMDropInDir = "/etc/NetworkManager/conf.d"
	}
	if c.ModulesLoadDir == "" {
		c.ModulesLoadDir = "/etc/modules-load.d"
	}
	if c.InputModule == "" {
		c.InputModule = "uinput"
	}
	if c.PortalPackage == "" {
		c.PortalPackage = "xdg-desktop-portal-lxqt"
	}
	c.StubWait.ApplyDefaults(readiness.Budget{Interval: time.Second, MaxAttempts: 10})
}

// PackageRemover queries and removes packages.
type PackageRemover interface {
	Installed(ctx context.Context, name string) bool
	Remove(ctx context.Context, name string) error
}

// Configurer runs the four independent foundation mutations. Each is
// idempotent and tolerant of partial failure: a failed mutation leaves the
// host functionally degraded but operable, so the run continues.
type Configurer struct {
	cfg       Config
	meshIface string
	systemd   sysprobe.SystemdController
	pkgs      PackageRemover
	runner    execx.Runner
	logger    *slog.Logger
}

// NewConfigurer creates a Configurer with defaults applied. pkgs may be nil
// on hosts without a recognized package manager; the portal mutation is
// then skipped.
func NewConfigurer(cfg Config, meshIface string, systemd sysprobe.SystemdController, pkgs PackageRemover, runner execx.Runner, logger *slog.Logger) *Configurer {
	cfg.ApplyDefaults()
	return &Configurer{
		cfg:       cfg,
		meshIface: meshIface,
		systemd:   systemd,
		pkgs:      pkgs,
		runner:    runner,
		logger:    logger.With("component", "foundation"),
	}
}

// Apply runs all four mutations in order. Every failure is soft: it is
// logged here, at this single point, and deliberately not propagated,
// because the operator can remedy each one manually.
func (c *Configurer) Apply(ctx context.Context) {
	mutations := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"dns-stub-link", c.linkResolver},
		{"network-manager-hardening", c.hardenNetworkManager},
		{"input-module-persistence", c.persistInputModule},
		{"portal-conflict-removal", c.removeConflictingPortal},
	}
	for _, m := range mutations {
		if err := m.fn(ctx); err != nil {
			c.logger.Warn("foundation mutation failed", "mutation", m.name, "error", err)
		}
	}
}

// linkResolver ensures the resolver service runs, waits for its runtime
// stub file, and links the static resolver configuration to it. The
// pre-existing file, if regular, is preserved with a timestamped backup.
func (c *Configurer) linkResolver(ctx context.Context) error {
	if !c.systemd.IsActive(c.cfg.ResolverService) {
		if err := c.systemd.Enable(c.cfg.ResolverService); err != nil {
			return fmt.Errorf("foundation: enable %s: %w", c.cfg.ResolverService, err)
		}
		if err := c.systemd.Start(c.cfg.ResolverService); err != nil {
			return fmt.Errorf("foundation: start %s: %w", c.cfg.ResolverService, err)
		}
	}

	err := readiness.Wait(ctx, c.cfg.StubWait, func(_ context.Context) bool {
		_, statErr := os.Stat(c.cfg.StubPath)
		return statErr == nil
	})
	if errors.Is(err, readiness.ErrExhausted) {
		// DNS is left untouched; the operator can link it manually.
		return fmt.Errorf("foundation: resolver stub %s never appeared", c.cfg.StubPath)
	}
	if err != nil {
		return err
	}

	if err := fsutil.ReplaceWithSymlink(c.cfg.StubPath, c.cfg.ResolvConfPath); err != nil {
		return err
	}
	c.logger.Info("resolver configuration linked to stub",
		"link", c.cfg.ResolvConfPath,
		"target", c.cfg.StubPath,
	)
	return nil
}

// hardenNetworkManager declares the mesh interface unmanaged so the desktop
// network manager does not fight over it. Hosts without the network manager
// are skipped.
func (c *Configurer) hardenNetworkManager(_ context.Context) error {
	nmRoot := filepath.Dir(c.cfg.NMDropInDir)
	if _, err := os.Stat(nmRoot); errors.Is(err, os.ErrNotExist) {
		c.logger.Debug("network manager not present, skipping", "dir", nmRoot)
		return nil
	}

	if err := os.MkdirAll(c.cfg.NMDropInDir, 0o755); err != nil {
		return fmt.Errorf("foundation: create %s: %w", c.cfg.NMDropInDir, err)
	}

	content := fmt.Sprintf("[keyfile]\nunmanaged-devices=interface-name:%s\n", c.meshIface)
	dropIn := filepath.Join(c.cfg.NMDropInDir, "99-meshup.conf")
	if err := fsutil.WriteFileAtomic(dropIn, []byte(content), 0o644); err != nil {
		return err
	}
	c.logger.Info("network manager drop-in written", "path", dropIn)

	if c.systemd.IsActive(c.cfg.NMService) {
		if err := c.systemd.Reload(c.cfg.NMService); err != nil {
			c.logger.Debug("reload failed, falling back to restart", "service", c.cfg.NMService, "error", err)
			if err := c.systemd.Restart(c.cfg.NMService); err != nil {
				return fmt.Errorf("foundation: restart %s: %w", c.cfg.NMService, err)
			}
		}
	}
	return nil
}

// persistInputModule writes the module autoload drop-in and attempts an
// immediate load. The immediate load failing is not a mutation failure: the
// drop-in makes the module load on next boot.
func (c *Configurer) persistInputModule(ctx context.Context) error {
	if err := os.MkdirAll(c.cfg.ModulesLoadDir, 0o755); err != nil {
		return fmt.Errorf("foundation: create %s: %w", c.cfg.ModulesLoadDir, err)
	}

	dropIn := filepath.Join(c.cfg.ModulesLoadDir, "meshup.conf")
	if err := fsutil.WriteFileAtomic(dropIn, []byte(c.cfg.InputModule+"\n"), 0o644); err != nil {
		return err
	}
	c.logger.Info("module autoload drop-in written", "path", dropIn, "module", c.cfg.InputModule)

	if err := c.runner.Run(ctx, "modprobe", c.cfg.InputModule); err != nil {
		c.logger.Warn("immediate module load failed, will load on next boot", "module", c.cfg.InputModule, "error", err)
	}
	return nil
}

// removeConflictingPortal uninstalls the desktop portal package known to
// break remote input, if installed.
func (c *Configurer) removeConflictingPortal(ctx context.Context) error {
	if c.pkgs == nil {
		return nil
	}
	if !c.pkgs.Installed(ctx, c.cfg.PortalPackage) {
		return nil
	}
	if err := c.pkgs.Remove(ctx, c.cfg.PortalPackage); err != nil {
		return err
	}
	c.logger.Info("conflicting portal package removed", "package", c.cfg.PortalPackage)
	return nil
}
