//go:build linux

package sysprobe

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/vishvananda/netlink"
	"golang.zx2c4.com/wireguard/wgctrl"
)

// NetlinkController reads and controls link state via Linux netlink.
// WireGuard devices are cross-checked through wgctrl so they are recognized
// even under non-standard interface names.
type NetlinkController struct {
	logger *slog.Logger
}

// NewNetlinkController returns a new NetlinkController.
func NewNetlinkController(logger *slog.Logger) *NetlinkController {
	return &NetlinkController{logger: logger.With("component", "sysprobe")}
}

// List enumerates the kernel's live link table.
func (c *NetlinkController) List() ([]RawLink, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("sysprobe: list links: %w", err)
	}

	wgNames := c.wireguardDeviceNames()

	raw := make([]RawLink, 0, len(links))
	for _, l := range links {
		attrs := l.Attrs()
		raw = append(raw, RawLink{
			Name:      attrs.Name,
			Up:        attrs.Flags&net.FlagUp != 0,
			WireGuard: l.Type() == "wireguard" || wgNames[attrs.Name],
		})
	}
	return raw, nil
}

// SetDown forces the named interface administratively down.
// It is idempotent: downing a non-existent interface returns nil, since the
// interface may already have vanished as a side effect of a client-level
// disconnect.
func (c *NetlinkController) SetDown(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		if _, ok := err.(netlink.LinkNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("sysprobe: set %s down: %w", name, err)
	}

	if err := netlink.LinkSetDown(link); err != nil {
		return fmt.Errorf("sysprobe: set %s down: %w", name, err)
	}

	c.logger.Info("interface brought down", "interface", name)
	return nil
}

// wireguardDeviceNames returns the set of WireGuard device names, or an
// empty set if the wgctrl interface is unavailable. Availability of wgctrl
// only refines classification, so failure degrades silently to
// prefix-matching.
func (c *NetlinkController) wireguardDeviceNames() map[string]bool {
	client, err := wgctrl.New()
	if err != nil {
		c.logger.Debug("wgctrl unavailable", "error", err)
		return nil
	}
	defer client.Close()

	devices, err := client.Devices()
	if err != nil {
		c.logger.Debug("wgctrl device enumeration failed", "error", err)
		return nil
	}

	names := make(map[string]bool, len(devices))
	for _, d := range devices {
		names[d.Name] = true
	}
	return names
}
