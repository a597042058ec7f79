package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/oxidrift/meshup/internal/authflow"
)

// Prompt reads operator answers from the terminal. On a non-interactive
// stdin every question resolves to its default so a piped run does not
// hang.
type Prompt struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewPrompt creates a Prompt on the process's stdin/stderr.
func NewPrompt() *Prompt {
	return &Prompt{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// Confirm asks a yes/no question. Empty input selects the default.
func (p *Prompt) Confirm(question string, defaultYes bool) (bool, error) {
	if !p.interactive {
		return defaultYes, nil
	}

	hint := "[Y/n]"
	if !defaultYes {
		hint = "[y/N]"
	}
	fmt.Fprintf(p.out, "%s %s %s ", AccentStyle.Render("?"), question, MutedStyle.Render(hint))

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("ui: read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return defaultYes, nil
	}
}

// AuthChoice asks the three-way question after a failed QR attempt:
// retry the QR flow, fall back to the login link, or quit. Unrecognized
// input re-asks.
func (p *Prompt) AuthChoice() (authflow.Choice, error) {
	if !p.interactive {
		return authflow.ChoiceQuit, nil
	}

	for {
		fmt.Fprintf(p.out, "%s QR authentication failed. %s ",
			AccentStyle.Render("?"),
			MutedStyle.Render("[r]etry QR, switch to login [l]ink, or [q]uit?"),
		)

		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			return authflow.ChoiceQuit, fmt.Errorf("ui: read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "r", "retry", "":
			return authflow.ChoiceRetryQR, nil
		case "l", "link":
			return authflow.ChoiceLink, nil
		case "q", "quit":
			return authflow.ChoiceQuit, nil
		}
		fmt.Fprintln(p.out, WarnMsg("please answer r, l, or q"))
	}
}
