// Package sysprobe implements read-only queries of current host state:
// command presence, service activity, package installation, and the live
// network interface table. Probes never fail the caller: an unavailable
// tool or service reports false/absent.
package sysprobe

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
)

// PackageQuerier answers whether a package is installed.
type PackageQuerier interface {
	Installed(ctx context.Context, name string) bool
}

// Probe bundles the read-only host state queries used by the configuration
// phases. All collaborators are injected; Probe itself performs no mutation.
type Probe struct {
	systemd SystemdController
	pkgs    PackageQuerier
	links   LinkLister
	class   Classifier
	logger  *slog.Logger
}

// New creates a Probe with the given collaborators.
func New(systemd SystemdController, pkgs PackageQuerier, links LinkLister, class Classifier, logger *slog.Logger) *Probe {
	return &Probe{
		systemd: systemd,
		pkgs:    pkgs,
		links:   links,
		class:   class,
		logger:  logger.With("component", "sysprobe"),
	}
}

// CommandExists reports whether the named command is present on PATH.
func (p *Probe) CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// ServiceActive reports whether the named service is currently running.
// A host without systemd reports false.
func (p *Probe) ServiceActive(name string) bool {
	if !p.systemd.IsAvailable() {
		return false
	}
	return p.systemd.IsActive(name)
}

// PackageInstalled reports whether the named package is installed. A host
// without a recognized package manager reports false.
func (p *Probe) PackageInstalled(ctx context.Context, name string) bool {
	if p.pkgs == nil {
		return false
	}
	return p.pkgs.Installed(ctx, name)
}

// FileExists reports whether path exists.
func (p *Probe) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListInterfaces returns the live interface table with each entry classified
// against the known VPN/tunnel prefix set. Enumeration failure reports an
// empty list rather than an error.
func (p *Probe) ListInterfaces() []Interface {
	raw, err := p.links.List()
	if err != nil {
		p.logger.Warn("interface enumeration failed", "error", err)
		return nil
	}

	ifaces := make([]Interface, 0, len(raw))
	for _, l := range raw {
		kind := p.class.Classify(l.Name)
		// A WireGuard device with an unrecognized name is still a tunnel,
		// unless it is the mesh interface this tool manages.
		if kind == KindUnknown && l.WireGuard && !p.class.Ignored(l.Name) {
			kind = KindTunnel
		}
		ifaces = append(ifaces, Interface{Name: l.Name, Kind: kind, Up: l.Up})
	}
	return ifaces
}
