package sysprobe

import (
	"fmt"
	"os/exec"
	"strings"
)

// SystemdController abstracts systemd service management for testability.
// All methods that modify state must be idempotent: repeating an operation
// that is already applied returns nil.
type SystemdController interface {
	// IsAvailable returns true if systemd (systemctl) is available on the system.
	IsAvailable() bool

	// IsActive returns true if the named service is currently running.
	IsActive(service string) bool

	// Enable enables the named service to start on boot.
	Enable(service string) error

	// Start starts the named service.
	Start(service string) error

	// Restart restarts the named service, starting it if stopped.
	Restart(service string) error

	// Reload asks the named service to reload its configuration.
	Reload(service string) error
}

// realSystemdController implements SystemdController using os/exec to call systemctl.
type realSystemdController struct{}

// NewSystemdController returns a SystemdController that calls the real systemctl binary.
func NewSystemdController() SystemdController {
	return &realSystemdController{}
}

func (c *realSystemdController) IsAvailable() bool {
	_, err := exec.LookPath("systemctl")
	return err == nil
}

func (c *realSystemdController) IsActive(service string) bool {
	err := exec.Command("systemctl", "is-active", "--quiet", service).Run()
	return err == nil
}

func (c *realSystemdController) Enable(service string) error {
	return c.run("enable", service)
}

func (c *realSystemdController) Start(service string) error {
	return c.run("start", service)
}

func (c *realSystemdController) Restart(service string) error {
	return c.run("restart", service)
}

func (c *realSystemdController) Reload(service string) error {
	return c.run("reload", service)
}

func (c *realSystemdController) run(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("sysprobe: systemctl %s: %s: %w", args[0], strings.TrimSpace(string(output)), err)
	}
	return nil
}
