//go:build linux

package firewall

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
)

// tableName is the nftables table holding the meshup trust chain.
const tableName = "meshup"

// chainName is the input-hook chain carrying the trust rule.
const chainName = "trust"

// NftablesBackend implements Backend directly against the Linux nftables
// subsystem via netlink. It is the fallback when neither firewalld nor ufw
// manages the host: a dedicated table keeps the rule out of any other
// manager's way.
type NftablesBackend struct {
	logger *slog.Logger
}

// NewNftablesBackend returns a new NftablesBackend.
func NewNftablesBackend(logger *slog.Logger) *NftablesBackend {
	return &NftablesBackend{logger: logger.With("component", "firewall")}
}

func (b *NftablesBackend) Name() string { return "nftables" }

// TrustInterface installs an accept rule for all input traffic arriving on
// the named interface. The chain is flushed first, so re-application is
// idempotent.
func (b *NftablesBackend) TrustInterface(_ context.Context, iface string) error {
	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("firewall: nftables: trust %s: %w", iface, err)
	}

	// AddTable is idempotent in nftables; adding an existing table is a no-op.
	table := conn.AddTable(&nftables.Table{
		Family: nftables.TableFamilyINet,
		Name:   tableName,
	})
	chain := conn.AddChain(&nftables.Chain{
		Name:     chainName,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
	})
	conn.FlushChain(chain)

	conn.AddRule(&nftables.Rule{
		Table: table,
		Chain: chain,
		Exprs: []expr.Any{
			&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
			&expr.Cmp{
				Op:       expr.CmpOpEq,
				Register: 1,
				Data:     ifaceNameBytes(iface),
			},
			&expr.Verdict{Kind: expr.VerdictAccept},
		},
	})

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("firewall: nftables: trust %s: %w", iface, err)
	}

	b.logger.Debug("nftables trust rule installed", "interface", iface)
	return nil
}

// ifaceNameBytes formats an interface name as a null-terminated byte slice
// for an IIFNAME comparison.
func ifaceNameBytes(name string) []byte {
	buf := make([]byte, 16)
	copy(buf, name)
	// Null terminator is already present since make() zero-initializes.
	return buf[:len(name)+1]
}
