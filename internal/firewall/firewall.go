// Package firewall adds a trust rule for the mesh interface to whichever
// firewall manager is active on the host. All operations here are
// best-effort from the caller's point of view: the VPN still functions with
// a manually added rule, so failures are soft.
package firewall

import (
	"context"
	"fmt"

	"github.com/oxidrift/meshup/internal/execx"
)

// Backend trusts the mesh interface in one firewall implementation.
type Backend interface {
	// Name identifies the backend ("firewalld", "ufw", "nftables").
	Name() string

	// TrustInterface permits all traffic on the named interface.
	TrustInterface(ctx context.Context, iface string) error
}

// ServiceChecker reports whether a named service is running.
type ServiceChecker interface {
	IsActive(service string) bool
}

// Detect returns the backend matching the active firewall manager, or nil
// if neither firewalld nor ufw is running. The two managers are mutually
// exclusive on a sane host; firewalld wins if both somehow report active.
func Detect(runner execx.Runner, services ServiceChecker) Backend {
	if services.IsActive("firewalld") {
		return &firewalldBackend{runner: runner}
	}
	if services.IsActive("ufw") {
		return &ufwBackend{runner: runner}
	}
	return nil
}

// --- firewalld ---

type firewalldBackend struct {
	runner execx.Runner
}

func (b *firewalldBackend) Name() string { return "firewalld" }

func (b *firewalldBackend) TrustInterface(ctx context.Context, iface string) error {
	if err := b.runner.Run(ctx, "firewall-cmd", "--permanent", "--zone=trusted", "--change-interface="+iface); err != nil {
		return fmt.Errorf("firewall: firewalld trust %s: %w", iface, err)
	}
	if err := b.runner.Run(ctx, "firewall-cmd", "--reload"); err != nil {
		return fmt.Errorf("firewall: firewalld reload: %w", err)
	}
	return nil
}

// --- ufw ---

type ufwBackend struct {
	runner execx.Runner
}

func (b *ufwBackend) Name() string { return "ufw" }

func (b *ufwBackend) TrustInterface(ctx context.Context, iface string) error {
	if err := b.runner.Run(ctx, "ufw", "allow", "in", "on", iface); err != nil {
		return fmt.Errorf("firewall: ufw trust %s: %w", iface, err)
	}
	return nil
}
