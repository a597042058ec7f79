// Package conflict detects competing VPN and tunnel interfaces and
// neutralizes them on operator consent before the mesh client is activated.
package conflict

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oxidrift/meshup/internal/execx"
	"github.com/oxidrift/meshup/internal/sysprobe"
)

// Disconnect maps an interface name prefix to the owning commercial
// client's native disconnect command. Running the native command first lets
// the client tear down cleanly before any remaining interfaces are forced
// down.
type Disconnect struct {
	Prefix  string   `yaml:"prefix"`
	Command []string `yaml:"command"`
}

// Config holds the conflict detection configuration.
type Config struct {
	// TunnelPrefixes are generic tunnel interface name prefixes.
	TunnelPrefixes []string `yaml:"tunnel_prefixes"`

	// ClientPrefixes are interface name prefixes of known commercial VPN clients.
	ClientPrefixes []string `yaml:"client_prefixes"`

	// Disconnects are native client disconnect commands keyed by prefix.
	Disconnects []Disconnect `yaml:"disconnects"`
}

// ApplyDefaults sets default values for empty fields.
func (c *Config) ApplyDefaults() {
	if len(c.TunnelPrefixes) == 0 {
		c.TunnelPrefixes = []string{"tun", "tap", "wg", "ppp"}
	}
	if len(c.ClientPrefixes) == 0 {
		c.ClientPrefixes = []string{"nordlynx", "proton", "zt", "CloudflareWARP"}
	}
	if len(c.Disconnects) == 0 {
		c.Disconnects = []Disconnect{
			{Prefix: "nordlynx", Command: []string{"nordvpn", "disconnect"}},
			{Prefix: "CloudflareWARP", Command: []string{"warp-cli", "disconnect"}},
		}
	}
}

// InterfaceLister enumerates classified host interfaces.
type InterfaceLister interface {
	ListInterfaces() []sysprobe.Interface
}

// LinkDowner forces an interface administratively down.
type LinkDowner interface {
	SetDown(name string) error
}

// ConfirmFunc asks the operator a yes/no question.
type ConfirmFunc func(question string, defaultYes bool) (bool, error)

// Resolver detects conflicting interfaces and disconnects them on consent.
type Resolver struct {
	cfg     Config
	probe   InterfaceLister
	links   LinkDowner
	runner  execx.Runner
	confirm ConfirmFunc
	logger  *slog.Logger
}

// NewResolver creates a Resolver with defaults applied.
func NewResolver(cfg Config, probe InterfaceLister, links LinkDowner, runner execx.Runner, confirm ConfirmFunc, logger *slog.Logger) *Resolver {
	cfg.ApplyDefaults()
	return &Resolver{
		cfg:     cfg,
		probe:   probe,
		links:   links,
		runner:  runner,
		confirm: confirm,
		logger:  logger.With("component", "conflict"),
	}
}

// Resolve finds conflicting interfaces and, on consent, disconnects them.
// Per-interface failures are tolerated: an interface may already have
// vanished as a side effect of a client-level disconnect. Declining is not
// a failure: the operator may deliberately keep another VPN active.
func (r *Resolver) Resolve(ctx context.Context) error {
	conflicts := r.conflicting()
	if len(conflicts) == 0 {
		r.logger.Debug("no conflicting interfaces found")
		return nil
	}

	names := make([]string, 0, len(conflicts))
	for _, iface := range conflicts {
		r.logger.Info("conflicting interface detected",
			"interface", iface.Name,
			"kind", iface.Kind.String(),
			"up", iface.Up,
		)
		names = append(names, iface.Name)
	}

	question := fmt.Sprintf("Disconnect conflicting VPN interface(s) %s?", strings.Join(names, ", "))
	ok, err := r.confirm(question, true)
	if err != nil {
		return fmt.Errorf("conflict: consent prompt: %w", err)
	}
	if !ok {
		r.logger.Warn("operator declined disconnect, proceeding with conflicting interfaces active")
		return nil
	}

	r.nativeDisconnects(ctx, conflicts)

	// Re-enumerate: client-level disconnects may have removed interfaces.
	for _, iface := range r.conflicting() {
		if err := r.links.SetDown(iface.Name); err != nil {
			r.logger.Warn("failed to bring interface down", "interface", iface.Name, "error", err)
			continue
		}
		r.logger.Info("interface disconnected", "interface", iface.Name)
	}
	return nil
}

// conflicting returns the interfaces classified as tunnels or VPN clients.
func (r *Resolver) conflicting() []sysprobe.Interface {
	var out []sysprobe.Interface
	for _, iface := range r.probe.ListInterfaces() {
		if iface.Kind != sysprobe.KindUnknown {
			out = append(out, iface)
		}
	}
	return out
}

// nativeDisconnects invokes the native disconnect command of every
// recognized client present among the conflicts, tolerating failure.
func (r *Resolver) nativeDisconnects(ctx context.Context, conflicts []sysprobe.Interface) {
	for _, d := range r.cfg.Disconnects {
		if len(d.Command) == 0 || !matchesAny(conflicts, d.Prefix) {
			continue
		}
		if err := r.runner.Run(ctx, d.Command[0], d.Command[1:]...); err != nil {
			r.logger.Warn("native client disconnect failed", "command", strings.Join(d.Command, " "), "error", err)
			continue
		}
		r.logger.Info("native client disconnected", "command", strings.Join(d.Command, " "))
	}
}

func matchesAny(ifaces []sysprobe.Interface, prefix string) bool {
	for _, iface := range ifaces {
		if strings.HasPrefix(iface.Name, prefix) {
			return true
		}
	}
	return false
}
