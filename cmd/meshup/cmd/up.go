package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oxidrift/meshup/internal/activation"
	"github.com/oxidrift/meshup/internal/authflow"
	"github.com/oxidrift/meshup/internal/conflict"
	"github.com/oxidrift/meshup/internal/execx"
	"github.com/oxidrift/meshup/internal/firewall"
	"github.com/oxidrift/meshup/internal/foundation"
	"github.com/oxidrift/meshup/internal/orchestrator"
	"github.com/oxidrift/meshup/internal/pkgmgr"
	"github.com/oxidrift/meshup/internal/runlock"
	"github.com/oxidrift/meshup/internal/sysprobe"
	"github.com/oxidrift/meshup/internal/ui"
	"github.com/oxidrift/meshup/internal/vpn"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Prepare this host and join the mesh",
	Long: "Run the full preparation sequence: disconnect conflicting VPN clients,\n" +
		"repair DNS, harden NetworkManager, activate the mesh daemon, authenticate,\n" +
		"and report the assigned mesh address.",
	RunE: runUp,
}

func init() {
	rootCmd.AddCommand(upCmd)
}

func runUp(_ *cobra.Command, _ []string) error {
	// 1. Privilege and platform preconditions.
	if !sysprobe.NewRootChecker().IsRoot() {
		return errors.New("meshup up: must run as root")
	}
	systemd := sysprobe.NewSystemdController()
	if !systemd.IsAvailable() {
		return errors.New("meshup up: systemd is required but not available")
	}

	// 2. Parse config and apply CLI flag overrides.
	cfg, err := orchestrator.ParseConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("meshup up: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := setupLogger(cfg.LogLevel)

	logger.Info("starting meshup", "version", buildVersion)

	// 3. Exclusive run lock. Concurrent runs mutate the same host state.
	lock, err := runlock.Acquire(cfg.LockPath)
	if errors.Is(err, runlock.ErrHeld) {
		return fmt.Errorf("meshup up: another run is already in progress (lock %s)", cfg.LockPath)
	}
	if err != nil {
		return fmt.Errorf("meshup up: %w", err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release run lock", "error", err)
		}
	}()

	// 4. Signal handling. The received signal number decides the exit code.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigCh)
		close(sigCh)
	}()

	var interrupted atomic.Int32
	go func() {
		s, ok := <-sigCh
		if !ok {
			return
		}
		if num, ok := s.(syscall.Signal); ok {
			interrupted.Store(int32(num))
		}
		cancel()
	}()

	// 5. Assemble the phase components.
	runner := execx.NewRunner()

	pkgs, err := pkgmgr.Detect(runner, exec.LookPath)
	if errors.Is(err, pkgmgr.ErrNoManager) {
		logger.Warn("no supported package manager, package operations will be skipped")
	} else if err != nil {
		return fmt.Errorf("meshup up: %w", err)
	} else {
		logger.Debug("package manager detected", "manager", pkgs.Name())
	}

	links := sysprobe.NewNetlinkController(logger)
	classifier := sysprobe.Classifier{
		TunnelPrefixes: cfg.Conflict.TunnelPrefixes,
		ClientPrefixes: cfg.Conflict.ClientPrefixes,
		Ignore:         []string{cfg.VPN.Interface},
	}
	probe := sysprobe.New(systemd, pkgs, links, classifier, logger)

	vpnClient := vpn.NewCLIClient(cfg.VPN, runner, logger)
	prompt := ui.NewPrompt()

	resolver := conflict.NewResolver(cfg.Conflict, probe, links, runner, prompt.Confirm, logger)

	var remover foundation.PackageRemover
	var installer activation.PackageInstaller
	if pkgs != nil {
		remover = pkgs
		installer = pkgs
	}
	configurer := foundation.NewConfigurer(cfg.Foundation, cfg.VPN.Interface, systemd, remover, runner, logger)

	// Prefer the host's own firewall frontend; fall back to a direct
	// nftables rule when neither frontend is active.
	firewallFor := func() firewall.Backend {
		if b := firewall.Detect(runner, systemd); b != nil {
			return b
		}
		return firewall.NewNftablesBackend(logger)
	}
	activator := activation.NewActivator(cfg.Activation, cfg.VPN.Package, cfg.VPN.Service, cfg.VPN.Interface,
		installer, systemd, vpnClient.SocketResponsive, firewallFor, logger)

	flow := authflow.NewFlow(vpnClient, prompt, logger)

	orch := orchestrator.New(cfg, resolver, configurer, activator, flow, vpnClient, prompt.Confirm, logger)

	// 6. Run end to end.
	addr, err := orch.Run(ctx)

	if sig := syscall.Signal(interrupted.Load()); sig != 0 && err != nil {
		fmt.Fprintln(os.Stderr, ui.WarnMsg("interrupted, host may be partially configured"))
		return &exitError{code: 128 + int(sig), err: fmt.Errorf("meshup up: interrupted by %s", sig)}
	}
	if errors.Is(err, orchestrator.ErrCancelled) {
		fmt.Fprintln(os.Stderr, ui.InfoMsg("cancelled by operator, nothing more to do"))
		return nil
	}
	if err != nil {
		return fmt.Errorf("meshup up: %w", err)
	}

	fmt.Println(ui.SuccessMsg("host ready, mesh address %s", addr))
	return nil
}
