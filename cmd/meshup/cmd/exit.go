package cmd

import "errors"

// Conventional exit codes for signal-interrupted runs (128 + signal number).
const (
	exitInterrupt  = 130
	exitTerminated = 143
)

// exitError carries a specific process exit code through the cobra error
// path. Scripts drive this tool unattended and branch on the code alone.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return "exit"
}

func (e *exitError) Unwrap() error { return e.err }

// ExitCode maps the error returned by Execute to the process exit code:
// 0 on success, a carried code for signal interruptions, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
