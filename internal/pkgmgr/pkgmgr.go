// Package pkgmgr drives the host's package manager as a black-box
// command-line collaborator. Installed-state is decided by exit status only.
package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/oxidrift/meshup/internal/execx"
)

// ErrNoManager is returned when no supported package manager is on PATH.
var ErrNoManager = errors.New("pkgmgr: no supported package manager found")

// Manager abstracts package query, install, and remove operations.
type Manager interface {
	// Name identifies the backend ("apt", "dnf", "pacman").
	Name() string

	// Installed reports whether the named package is installed.
	// Unavailable tooling reports false rather than failing the caller.
	Installed(ctx context.Context, name string) bool

	// Install installs the named package non-interactively.
	Install(ctx context.Context, name string) error

	// Remove removes the named package non-interactively.
	Remove(ctx context.Context, name string) error
}

// LookPathFunc resolves a command name on PATH. Injectable for tests.
type LookPathFunc func(name string) (string, error)

// Detect probes for a supported package manager. Detection order is fixed:
// apt-get, dnf, pacman.
func Detect(runner execx.Runner, lookPath LookPathFunc) (Manager, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("apt-get"); err == nil {
		return &aptManager{runner: runner}, nil
	}
	if _, err := lookPath("dnf"); err == nil {
		return &dnfManager{runner: runner}, nil
	}
	if _, err := lookPath("pacman"); err == nil {
		return &pacmanManager{runner: runner}, nil
	}
	return nil, ErrNoManager
}

// --- apt ---

type aptManager struct {
	runner execx.Runner
}

func (m *aptManager) Name() string { return "apt" }

func (m *aptManager) Installed(ctx context.Context, name string) bool {
	return m.runner.Run(ctx, "dpkg", "-s", name) == nil
}

func (m *aptManager) Install(ctx context.Context, name string) error {
	if err := m.runner.Run(ctx, "apt-get", "install", "-y", name); err != nil {
		return fmt.Errorf("pkgmgr: apt install %s: %w", name, err)
	}
	return nil
}

func (m *aptManager) Remove(ctx context.Context, name string) error {
	if err := m.runner.Run(ctx, "apt-get", "remove", "-y", name); err != nil {
		return fmt.Errorf("pkgmgr: apt remove %s: %w", name, err)
	}
	return nil
}

// --- dnf ---

type dnfManager struct {
	runner execx.Runner
}

func (m *dnfManager) Name() string { return "dnf" }

func (m *dnfManager) Installed(ctx context.Context, name string) bool {
	return m.runner.Run(ctx, "rpm", "-q", name) == nil
}

func (m *dnfManager) Install(ctx context.Context, name string) error {
	if err := m.runner.Run(ctx, "dnf", "install", "-y", name); err != nil {
		return fmt.Errorf("pkgmgr: dnf install %s: %w", name, err)
	}
	return nil
}

func (m *dnfManager) Remove(ctx context.Context, name string) error {
	if err := m.runner.Run(ctx, "dnf", "remove", "-y", name); err != nil {
		return fmt.Errorf("pkgmgr: dnf remove %s: %w", name, err)
	}
	return nil
}

// --- pacman ---

type pacmanManager struct {
	runner execx.Runner
}

func (m *pacmanManager) Name() string { return "pacman" }

func (m *pacmanManager) Installed(ctx context.Context, name string) bool {
	return m.runner.Run(ctx, "pacman", "-Qi", name) == nil
}

func (m *pacmanManager) Install(ctx context.Context, name string) error {
	if err := m.runner.Run(ctx, "pacman", "-S", "--noconfirm", name); err != nil {
		return fmt.Errorf("pkgmgr: pacman install %s: %w", name, err)
	}
	return nil
}

func (m *pacmanManager) Remove(ctx context.Context, name string) error {
	if err := m.runner.Run(ctx, "pacman", "-R", "--noconfirm", name); err != nil {
		return fmt.Errorf("pkgmgr: pacman remove %s: %w", name, err)
	}
	return nil
}
