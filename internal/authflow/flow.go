// Package authflow drives the VPN client through device authentication as
// an explicit state machine: QR pairing first, operator-driven retry, a
// link-based fallback, and explicit abort.
package authflow

import (
	"context"
	"fmt"
	"log/slog"
)

// State is the authentication machine state.
type State int

const (
	// StateNotAuthenticated is the entry state.
	StateNotAuthenticated State = iota

	// StateAwaitingQR blocks on the QR device-authentication flow.
	StateAwaitingQR

	// StateAwaitingLink blocks on the link-based authentication flow.
	StateAwaitingLink

	// StateAuthenticated is the terminal success state.
	StateAuthenticated

	// StateAborted is the terminal state for explicit operator cancellation.
	// Reaching it is not a failure.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateNotAuthenticated:
		return "not-authenticated"
	case StateAwaitingQR:
		return "awaiting-qr"
	case StateAwaitingLink:
		return "awaiting-link"
	case StateAuthenticated:
		return "authenticated"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Choice is the operator's answer at the QR retry prompt.
type Choice int

const (
	// ChoiceRetryQR loops on the QR flow.
	ChoiceRetryQR Choice = iota

	// ChoiceLink switches to link-based authentication.
	ChoiceLink

	// ChoiceQuit aborts the flow.
	ChoiceQuit
)

// Client is the VPN client's authentication surface.
type Client interface {
	// Authenticated reports whether the client is already logged in.
	Authenticated(ctx context.Context) bool

	// AuthenticateQR runs the QR device-authentication flow. It may block
	// indefinitely awaiting an external scan.
	AuthenticateQR(ctx context.Context) error

	// AuthenticateLink runs the plain interactive authentication flow.
	AuthenticateLink(ctx context.Context) error
}

// Prompter asks the operator how to continue after a failed QR attempt.
type Prompter interface {
	AuthChoice() (Choice, error)
}

// Flow is the authentication state machine.
type Flow struct {
	client   Client
	prompter Prompter
	logger   *slog.Logger
}

// NewFlow creates a Flow.
func NewFlow(client Client, prompter Prompter, logger *slog.Logger) *Flow {
	return &Flow{
		client:   client,
		prompter: prompter,
		logger:   logger.With("component", "authflow"),
	}
}

// Run drives the machine until a terminal state. It returns
// StateAuthenticated or StateAborted with a nil error, or the current state
// with a non-nil error when no fallback remains. The QR loop has no retry
// limit: device pairing delay is unbounded and outside this system's
// control, so only the operator or success terminates it.
func (f *Flow) Run(ctx context.Context) (State, error) {
	state := StateNotAuthenticated
	for {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("authflow: %w", err)
		}

		switch state {
		case StateNotAuthenticated:
			if f.client.Authenticated(ctx) {
				f.logger.Info("already authenticated")
				state = StateAuthenticated
			} else {
				state = StateAwaitingQR
			}

		case StateAwaitingQR:
			if err := f.client.AuthenticateQR(ctx); err != nil {
				f.logger.Warn("qr authentication failed", "error", err)
				next, err := f.afterQRFailure()
				if err != nil {
					return state, err
				}
				state = next
			} else {
				state = StateAuthenticated
			}

		case StateAwaitingLink:
			if err := f.client.AuthenticateLink(ctx); err != nil {
				// No further fallback exists.
				return state, fmt.Errorf("authflow: link authentication: %w", err)
			}
			state = StateAuthenticated

		case StateAuthenticated:
			f.logger.Info("authentication complete")
			return StateAuthenticated, nil

		case StateAborted:
			f.logger.Info("authentication aborted by operator")
			return StateAborted, nil
		}
	}
}

// afterQRFailure maps the operator's choice to the next state.
func (f *Flow) afterQRFailure() (State, error) {
	choice, err := f.prompter.AuthChoice()
	if err != nil {
		return StateNotAuthenticated, fmt.Errorf("authflow: retry prompt: %w", err)
	}
	switch choice {
	case ChoiceRetryQR:
		return StateAwaitingQR, nil
	case ChoiceLink:
		return StateAwaitingLink, nil
	case ChoiceQuit:
		return StateAborted, nil
	default:
		return StateNotAuthenticated, fmt.Errorf("authflow: unknown choice %d", choice)
	}
}
