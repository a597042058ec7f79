package firewall

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeRunner struct {
	calls      []string
	failPrefix string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, cmd)
	if f.failPrefix != "" && strings.HasPrefix(cmd, f.failPrefix) {
		return errors.New("exit status 1")
	}
	return nil
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) (string, error) {
	return "", nil
}

func (f *fakeRunner) RunInteractive(_ context.Context, name string, args ...string) error {
	return nil
}

type fakeServices struct {
	active map[string]bool
}

func (f *fakeServices) IsActive(service string) bool { return f.active[service] }

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		active map[string]bool
		want   string
	}{
		{name: "firewalld active", active: map[string]bool{"firewalld": true}, want: "firewalld"},
		{name: "ufw active", active: map[string]bool{"ufw": true}, want: "ufw"},
		{name: "firewalld wins over ufw", active: map[string]bool{"firewalld": true, "ufw": true}, want: "firewalld"},
		{name: "neither active", active: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Detect(&fakeRunner{}, &fakeServices{active: tt.active})
			if tt.want == "" {
				if b != nil {
					t.Errorf("Detect() = %s, want nil", b.Name())
				}
				return
			}
			if b == nil || b.Name() != tt.want {
				t.Errorf("Detect() = %v, want %s", b, tt.want)
			}
		})
	}
}

func TestFirewalld_TrustInterface(t *testing.T) {
	runner := &fakeRunner{}
	b := &firewalldBackend{runner: runner}

	if err := b.TrustInterface(context.Background(), "tailscale0"); err != nil {
		t.Fatalf("TrustInterface() error = %v", err)
	}

	want := []string{
		"firewall-cmd --permanent --zone=trusted --change-interface=tailscale0",
		"firewall-cmd --reload",
	}
	if len(runner.calls) != len(want) {
		t.Fatalf("runner saw %d calls, want %d: %v", len(runner.calls), len(want), runner.calls)
	}
	for i, w := range want {
		if runner.calls[i] != w {
			t.Errorf("call %d = %q, want %q", i, runner.calls[i], w)
		}
	}
}

func TestFirewalld_TrustInterfaceFailure(t *testing.T) {
	b := &firewalldBackend{runner: &fakeRunner{failPrefix: "firewall-cmd --permanent"}}
	if err := b.TrustInterface(context.Background(), "tailscale0"); err == nil {
		t.Fatal("TrustInterface() = nil, want error on nonzero exit")
	}
}

func TestUfw_TrustInterface(t *testing.T) {
	runner := &fakeRunner{}
	b := &ufwBackend{runner: runner}

	if err := b.TrustInterface(context.Background(), "tailscale0"); err != nil {
		t.Fatalf("TrustInterface() error = %v", err)
	}
	if len(runner.calls) != 1 || runner.calls[0] != "ufw allow in on tailscale0" {
		t.Errorf("runner calls = %v, want single ufw allow", runner.calls)
	}
}
