package sysprobe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

// --- Fakes ---

type fakeSystemd struct {
	available bool
	active    map[string]bool
}

func (f *fakeSystemd) IsAvailable() bool             { return f.available }
func (f *fakeSystemd) IsActive(service string) bool  { return f.active[service] }
func (f *fakeSystemd) Enable(service string) error   { return nil }
func (f *fakeSystemd) Start(service string) error    { return nil }
func (f *fakeSystemd) Restart(service string) error  { return nil }
func (f *fakeSystemd) Reload(service string) error   { return nil }

type fakePkgs struct {
	installed map[string]bool
}

func (f *fakePkgs) Installed(_ context.Context, name string) bool { return f.installed[name] }

type fakeLister struct {
	links []RawLink
	err   error
}

func (f *fakeLister) List() ([]RawLink, error) { return f.links, f.err }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClassifier() Classifier {
	return Classifier{
		TunnelPrefixes: []string{"tun", "tap", "wg", "ppp"},
		ClientPrefixes: []string{"nordlynx", "proton", "zt", "CloudflareWARP"},
		Ignore:         []string{"tailscale0"},
	}
}

// --- Classifier ---

func TestClassifier_Classify(t *testing.T) {
	c := testClassifier()

	tests := []struct {
		name string
		want Kind
	}{
		{"tun0", KindTunnel},
		{"tap3", KindTunnel},
		{"wg0", KindTunnel},
		{"ppp0", KindTunnel},
		{"nordlynx", KindVPNClient},
		{"proton0", KindVPNClient},
		{"CloudflareWARP", KindVPNClient},
		{"eth0", KindUnknown},
		{"enp3s0", KindUnknown},
		{"lo", KindUnknown},
		{"tailscale0", KindUnknown}, // own interface is never a conflict
	}
	for _, tt := range tests {
		if got := c.Classify(tt.name); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestKind_String(t *testing.T) {
	if KindTunnel.String() != "tunnel" || KindVPNClient.String() != "vpn-client" || KindUnknown.String() != "unknown" {
		t.Error("Kind.String() returned unexpected labels")
	}
}

// --- Probe ---

func TestProbe_ServiceActive(t *testing.T) {
	systemd := &fakeSystemd{available: true, active: map[string]bool{"systemd-resolved": true}}
	p := New(systemd, nil, &fakeLister{}, testClassifier(), testLogger())

	if !p.ServiceActive("systemd-resolved") {
		t.Error("ServiceActive(systemd-resolved) = false, want true")
	}
	if p.ServiceActive("NetworkManager") {
		t.Error("ServiceActive(NetworkManager) = true, want false")
	}
}

func TestProbe_ServiceActive_NoSystemd(t *testing.T) {
	systemd := &fakeSystemd{available: false, active: map[string]bool{"tailscaled": true}}
	p := New(systemd, nil, &fakeLister{}, testClassifier(), testLogger())

	if p.ServiceActive("tailscaled") {
		t.Error("ServiceActive() = true on a host without systemd, want false")
	}
}

func TestProbe_PackageInstalled_NoManager(t *testing.T) {
	p := New(&fakeSystemd{}, nil, &fakeLister{}, testClassifier(), testLogger())
	if p.PackageInstalled(context.Background(), "tailscale") {
		t.Error("PackageInstalled() = true without a package manager, want false")
	}
}

func TestProbe_PackageInstalled(t *testing.T) {
	pkgs := &fakePkgs{installed: map[string]bool{"tailscale": true}}
	p := New(&fakeSystemd{}, pkgs, &fakeLister{}, testClassifier(), testLogger())

	if !p.PackageInstalled(context.Background(), "tailscale") {
		t.Error("PackageInstalled(tailscale) = false, want true")
	}
	if p.PackageInstalled(context.Background(), "xdg-desktop-portal-lxqt") {
		t.Error("PackageInstalled(xdg-desktop-portal-lxqt) = true, want false")
	}
}

func TestProbe_ListInterfaces_Classifies(t *testing.T) {
	lister := &fakeLister{links: []RawLink{
		{Name: "lo", Up: true},
		{Name: "tun0", Up: true},
		{Name: "mesh1", Up: true, WireGuard: true}, // odd name, wgctrl says wireguard
		{Name: "nordlynx", Up: false},
	}}
	p := New(&fakeSystemd{}, nil, lister, testClassifier(), testLogger())

	got := p.ListInterfaces()
	if len(got) != 4 {
		t.Fatalf("ListInterfaces() returned %d entries, want 4", len(got))
	}

	want := map[string]Kind{
		"lo":       KindUnknown,
		"tun0":     KindTunnel,
		"mesh1":    KindTunnel,
		"nordlynx": KindVPNClient,
	}
	for _, iface := range got {
		if iface.Kind != want[iface.Name] {
			t.Errorf("interface %s classified as %v, want %v", iface.Name, iface.Kind, want[iface.Name])
		}
	}
}

func TestProbe_ListInterfaces_EnumerationFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("netlink: permission denied")}
	p := New(&fakeSystemd{}, nil, lister, testClassifier(), testLogger())

	if got := p.ListInterfaces(); len(got) != 0 {
		t.Errorf("ListInterfaces() = %v on enumeration failure, want empty", got)
	}
}

func TestProbe_CommandExists(t *testing.T) {
	p := New(&fakeSystemd{}, nil, &fakeLister{}, testClassifier(), testLogger())

	// "sh" is present on any reasonable test host; the negative case uses a
	// name that cannot exist.
	if !p.CommandExists("sh") {
		t.Error("CommandExists(sh) = false, want true")
	}
	if p.CommandExists("definitely-not-a-real-command-xyz") {
		t.Error("CommandExists() = true for nonsense command, want false")
	}
}
