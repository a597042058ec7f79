package cmd

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/oxidrift/meshup/internal/execx"
	"github.com/oxidrift/meshup/internal/firewall"
	"github.com/oxidrift/meshup/internal/orchestrator"
	"github.com/oxidrift/meshup/internal/pkgmgr"
	"github.com/oxidrift/meshup/internal/sysprobe"
	"github.com/oxidrift/meshup/internal/ui"
	"github.com/oxidrift/meshup/internal/vpn"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report host readiness without changing anything",
	Long: "Inspect the host and print what the up command would find: conflicting\n" +
		"interfaces, DNS state, daemon and authentication status. Performs no mutation.",
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := orchestrator.ParseConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("meshup check: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger := setupLogger(cfg.LogLevel)

	runner := execx.NewRunner()
	systemd := sysprobe.NewSystemdController()

	pkgs, _ := pkgmgr.Detect(runner, exec.LookPath)
	links := sysprobe.NewNetlinkController(logger)
	classifier := sysprobe.Classifier{
		TunnelPrefixes: cfg.Conflict.TunnelPrefixes,
		ClientPrefixes: cfg.Conflict.ClientPrefixes,
		Ignore:         []string{cfg.VPN.Interface},
	}
	probe := sysprobe.New(systemd, pkgs, links, classifier, logger)
	vpnClient := vpn.NewCLIClient(cfg.VPN, runner, logger)

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Root privileges:    %s\n", ui.Bool(sysprobe.NewRootChecker().IsRoot()))
	fmt.Fprintf(w, "Systemd available:  %s\n", ui.Bool(systemd.IsAvailable()))

	if pkgs != nil {
		fmt.Fprintf(w, "Package manager:    %s\n", pkgs.Name())
	} else {
		fmt.Fprintf(w, "Package manager:    %s\n", ui.WarnMsg("none detected"))
	}

	fmt.Fprintf(w, "Client installed:   %s\n", ui.Bool(probe.CommandExists(cfg.VPN.Command)))
	fmt.Fprintf(w, "Daemon active:      %s\n", ui.Bool(probe.ServiceActive(cfg.VPN.Service)))
	fmt.Fprintf(w, "Daemon socket:      %s\n", ui.Bool(vpnClient.SocketResponsive()))
	fmt.Fprintf(w, "Authenticated:      %s\n", ui.Bool(vpnClient.Authenticated(ctx)))

	fmt.Fprintf(w, "Resolver active:    %s\n", ui.Bool(probe.ServiceActive(cfg.Foundation.ResolverService)))
	fmt.Fprintf(w, "Resolver stub:      %s\n", ui.Bool(probe.FileExists(cfg.Foundation.StubPath)))

	if fw := firewall.Detect(runner, systemd); fw != nil {
		fmt.Fprintf(w, "Firewall frontend:  %s\n", fw.Name())
	} else {
		fmt.Fprintf(w, "Firewall frontend:  none (nftables fallback)\n")
	}

	var conflicts []sysprobe.Interface
	for _, iface := range probe.ListInterfaces() {
		if iface.Kind != sysprobe.KindUnknown {
			conflicts = append(conflicts, iface)
		}
	}
	if len(conflicts) == 0 {
		fmt.Fprintf(w, "Conflicts:          %s\n", ui.SuccessMsg("none"))
		return nil
	}
	fmt.Fprintln(w, "\nConflicting interfaces:")
	for _, iface := range conflicts {
		fmt.Fprintf(w, "  %s (%s, up=%t)\n", iface.Name, iface.Kind, iface.Up)
	}
	return nil
}
