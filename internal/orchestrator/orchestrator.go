// Package orchestrator sequences the configuration phases: conflict
// resolution, foundation configuration, service activation, device
// authentication, and address resolution. Each phase's postcondition is a
// precondition for the next, so execution is strictly sequential.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oxidrift/meshup/internal/authflow"
	"github.com/oxidrift/meshup/internal/readiness"
)

// ErrCancelled marks an explicit operator cancellation. It is not a
// failure: the caller maps it to a clean exit.
var ErrCancelled = errors.New("orchestrator: cancelled by operator")

// ErrNoAddress is returned when authentication succeeded but the tunnel
// never reported an assigned address, an inconsistent end state that must
// be surfaced rather than silently accepted.
var ErrNoAddress = errors.New("orchestrator: no mesh address assigned within budget")

// ConflictResolver neutralizes competing VPN interfaces.
type ConflictResolver interface {
	Resolve(ctx context.Context) error
}

// FoundationApplier runs the idempotent host configuration mutations.
type FoundationApplier interface {
	Apply(ctx context.Context)
}

// ServiceActivator brings the VPN daemon into a responsive state.
type ServiceActivator interface {
	Activate(ctx context.Context) error
}

// AuthFlow drives device authentication to a terminal state.
type AuthFlow interface {
	Run(ctx context.Context) (authflow.State, error)
}

// AddressReporter queries the mesh address assigned to this node.
type AddressReporter interface {
	Address(ctx context.Context) (string, error)
}

// ConfirmFunc asks the operator a yes/no question.
type ConfirmFunc func(question string, defaultYes bool) (bool, error)

// Orchestrator runs the phases in order.
type Orchestrator struct {
	cfg        Config
	conflicts  ConflictResolver
	foundation FoundationApplier
	activator  ServiceActivator
	auth       AuthFlow
	addr       AddressReporter
	confirm    ConfirmFunc
	logger     *slog.Logger
}

// New creates an Orchestrator with defaults applied.
func New(cfg Config, conflicts ConflictResolver, foundation FoundationApplier, activator ServiceActivator, auth AuthFlow, addr AddressReporter, confirm ConfirmFunc, logger *slog.Logger) *Orchestrator {
	cfg.ApplyDefaults()
	return &Orchestrator{
		cfg:        cfg,
		conflicts:  conflicts,
		foundation: foundation,
		activator:  activator,
		auth:       auth,
		addr:       addr,
		confirm:    confirm,
		logger:     logger.With("component", "orchestrator"),
	}
}

// Run executes all phases and returns the reachable mesh address. A fatal
// condition in any phase aborts the whole run; soft failures are logged by
// the phases themselves and never block progression.
func (o *Orchestrator) Run(ctx context.Context) (string, error) {
	ok, err := o.confirm("Prepare this host for the mesh VPN?", true)
	if err != nil {
		return "", fmt.Errorf("orchestrator: proceed prompt: %w", err)
	}
	if !ok {
		return "", ErrCancelled
	}

	o.logger.Info("resolving interface conflicts")
	if err := o.conflicts.Resolve(ctx); err != nil {
		return "", err
	}

	o.logger.Info("configuring host foundation")
	o.foundation.Apply(ctx)

	o.logger.Info("activating mesh daemon")
	if err := o.activator.Activate(ctx); err != nil {
		return "", err
	}

	o.logger.Info("starting device authentication")
	state, err := o.auth.Run(ctx)
	if err != nil {
		return "", err
	}
	if state == authflow.StateAborted {
		return "", ErrCancelled
	}

	addr, err := o.waitForAddress(ctx)
	if err != nil {
		return "", err
	}

	o.logger.Info("mesh address assigned", "address", addr)
	return addr, nil
}

// waitForAddress polls the client until it reports an assigned address.
func (o *Orchestrator) waitForAddress(ctx context.Context) (string, error) {
	var addr string
	err := readiness.Wait(ctx, o.cfg.AddressWait, func(ctx context.Context) bool {
		a, queryErr := o.addr.Address(ctx)
		if queryErr != nil {
			return false
		}
		addr = a
		return true
	})
	if errors.Is(err, readiness.ErrExhausted) {
		return "", ErrNoAddress
	}
	if err != nil {
		return "", err
	}
	return addr, nil
}
