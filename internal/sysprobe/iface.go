package sysprobe

import "strings"

// Kind classifies a network interface by ownership.
type Kind int

const (
	// KindUnknown is an interface that matches no known VPN/tunnel prefix.
	KindUnknown Kind = iota

	// KindTunnel is a generic tunnel interface (tun/tap/wg/ppp).
	KindTunnel

	// KindVPNClient is an interface owned by a recognized commercial VPN client.
	KindVPNClient
)

func (k Kind) String() string {
	switch k {
	case KindTunnel:
		return "tunnel"
	case KindVPNClient:
		return "vpn-client"
	default:
		return "unknown"
	}
}

// Interface is a single entry of the live link table. Interfaces are
// observed, never owned: the only mutation ever applied to one is an
// administrative down on operator consent.
type Interface struct {
	Name string
	Kind Kind
	Up   bool
}

// RawLink is an unclassified link table entry as reported by the kernel.
type RawLink struct {
	Name      string
	Up        bool
	WireGuard bool
}

// LinkLister enumerates the kernel's live link table.
type LinkLister interface {
	List() ([]RawLink, error)
}

// Classifier assigns a Kind to an interface by name-prefix match. Names in
// Ignore (the mesh interface this tool itself manages) are never classified
// as conflicts.
type Classifier struct {
	TunnelPrefixes []string
	ClientPrefixes []string
	Ignore         []string
}

// Ignored reports whether the name is exempt from classification.
func (c Classifier) Ignored(name string) bool {
	for _, ign := range c.Ignore {
		if name == ign {
			return true
		}
	}
	return false
}

// Classify returns the Kind for the given interface name.
func (c Classifier) Classify(name string) Kind {
	if c.Ignored(name) {
		return KindUnknown
	}
	for _, p := range c.ClientPrefixes {
		if strings.HasPrefix(name, p) {
			return KindVPNClient
		}
	}
	for _, p := range c.TunnelPrefixes {
		if strings.HasPrefix(name, p) {
			return KindTunnel
		}
	}
	return KindUnknown
}
